package mempool

import "fmt"

// MessageDomainTag closes every challenge message.
const MessageDomainTag = "starRegistry"

const (
	StatusPending           = "pending"
	StatusVerified          = "verified"
	StatusSignatureMismatch = "signature mismatch"
	StatusNoPendingRequest  = "no pending validation request or request expired, please reissue"
)

// Request is a snapshot of one validation request. All times are whole epoch seconds.
type Request struct {
	Address          string `json:"walletAddress"`
	RequestTimeStamp int64  `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
	Verified         bool   `json:"messageSignature"`
	StatusMessage    string `json:"status"`
}

// ChallengeMessage builds the message an address must sign.
func ChallengeMessage(address string, requestTimeStamp int64) string {
	return fmt.Sprintf("%s:%d:%s", address, requestTimeStamp, MessageDomainTag)
}

// remainingWindow is the time-to-live left at now; <= 0 means expired.
func remainingWindow(windowSeconds, requestTimeStamp, now int64) int64 {
	return windowSeconds - (now - requestTimeStamp)
}

// Live reports whether the snapshot still had time left when it was taken.
func (r Request) Live() bool {
	return r.ValidationWindow > 0
}
