package events

import (
	"time"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventBlockAppended       EventType = "BlockAppended"
	EventValidationRequested EventType = "ValidationRequested"
	EventSignatureVerified   EventType = "SignatureVerified"
	EventValidationConsumed  EventType = "ValidationConsumed"
	EventValidationExpired   EventType = "ValidationExpired"
)

// LedgerEvent represents anything that happens to the chain or the validation mempool.
// Subject is the block hash for chain events and the wallet address for mempool events.
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	Subject() string
}

type baseEvent struct {
	subject   string
	timestamp time.Time
}

func newBase(subject string) baseEvent {
	return baseEvent{subject: subject, timestamp: time.Now()}
}

func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e baseEvent) Subject() string {
	return e.subject
}

// BlockAppended event when a block is durably stored
type BlockAppended struct {
	baseEvent
	height uint64
	kind   string
	owner  string
}

func NewBlockAppended(hash string, height uint64, kind, owner string) *BlockAppended {
	return &BlockAppended{
		baseEvent: newBase(hash),
		height:    height,
		kind:      kind,
		owner:     owner,
	}
}

func (e *BlockAppended) Type() EventType {
	return EventBlockAppended
}

func (e *BlockAppended) Height() uint64 {
	return e.height
}

func (e *BlockAppended) Kind() string {
	return e.kind
}

// Owner is empty for free-text blocks.
func (e *BlockAppended) Owner() string {
	return e.owner
}

// ValidationRequested event when a request is issued or renewed
type ValidationRequested struct {
	baseEvent
	message string
	renewed bool
}

func NewValidationRequested(address, message string, renewed bool) *ValidationRequested {
	return &ValidationRequested{
		baseEvent: newBase(address),
		message:   message,
		renewed:   renewed,
	}
}

func (e *ValidationRequested) Type() EventType {
	return EventValidationRequested
}

func (e *ValidationRequested) Message() string {
	return e.message
}

func (e *ValidationRequested) Renewed() bool {
	return e.renewed
}

// SignatureVerified event after every signature check, successful or not
type SignatureVerified struct {
	baseEvent
	valid bool
}

func NewSignatureVerified(address string, valid bool) *SignatureVerified {
	return &SignatureVerified{
		baseEvent: newBase(address),
		valid:     valid,
	}
}

func (e *SignatureVerified) Type() EventType {
	return EventSignatureVerified
}

func (e *SignatureVerified) Valid() bool {
	return e.valid
}

// ValidationConsumed event when an owned append uses up a verified request
type ValidationConsumed struct {
	baseEvent
	height uint64
}

func NewValidationConsumed(address string, height uint64) *ValidationConsumed {
	return &ValidationConsumed{
		baseEvent: newBase(address),
		height:    height,
	}
}

func (e *ValidationConsumed) Type() EventType {
	return EventValidationConsumed
}

func (e *ValidationConsumed) Height() uint64 {
	return e.height
}

// ValidationExpired event when a request's window runs out
type ValidationExpired struct {
	baseEvent
}

func NewValidationExpired(address string) *ValidationExpired {
	return &ValidationExpired{baseEvent: newBase(address)}
}

func (e *ValidationExpired) Type() EventType {
	return EventValidationExpired
}
