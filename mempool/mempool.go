package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/mezonai/starledger/logx"
)

// DefaultValidationWindow is how long a challenge stays live.
const DefaultValidationWindow = 5 * time.Minute

// SignatureVerifier checks that signature signs message with the key behind address.
// Implementations must be pure and fail closed.
type SignatureVerifier interface {
	Verify(message, address, signature string) bool
}

// VerifierFunc adapts a function to SignatureVerifier.
type VerifierFunc func(message, address, signature string) bool

func (f VerifierFunc) Verify(message, address, signature string) bool {
	return f(message, address, signature)
}

type entry struct {
	id    uuid.UUID
	req   Request
	timer *clock.Timer
}

// Mempool is the registry of pending validation requests, at most one per address.
// A request is ABSENT, PENDING unverified or PENDING verified; it leaves PENDING
// only through Consume or expiry.
type Mempool struct {
	mu       sync.Mutex
	entries  map[string]*entry
	verifier SignatureVerifier
	clock    clock.Clock
	window   time.Duration
	onExpire func(address string)
}

type Option func(*Mempool)

// WithWindow sets the validation window; it is truncated to whole seconds.
func WithWindow(d time.Duration) Option {
	return func(m *Mempool) {
		if d >= time.Second {
			m.window = d.Truncate(time.Second)
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(m *Mempool) {
		m.clock = c
	}
}

// WithOnExpire registers a callback run after a request is purged by its timer.
func WithOnExpire(fn func(address string)) Option {
	return func(m *Mempool) {
		m.onExpire = fn
	}
}

func NewMempool(verifier SignatureVerifier, opts ...Option) *Mempool {
	m := &Mempool{
		entries:  make(map[string]*entry),
		verifier: verifier,
		clock:    clock.New(),
		window:   DefaultValidationWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mempool) windowSeconds() int64 {
	return int64(m.window / time.Second)
}

func (m *Mempool) now() int64 {
	return m.clock.Now().Unix()
}

// liveLocked returns the entry for address if it has time left, refreshing its countdown.
func (m *Mempool) liveLocked(address string, now int64) (*entry, bool) {
	e, ok := m.entries[address]
	if !ok {
		return nil, false
	}
	remaining := remainingWindow(m.windowSeconds(), e.req.RequestTimeStamp, now)
	if remaining <= 0 {
		return e, false
	}
	e.req.ValidationWindow = remaining
	return e, true
}

func (m *Mempool) removeLocked(address string) {
	if e, ok := m.entries[address]; ok {
		e.timer.Stop()
		delete(m.entries, address)
	}
}

// IssueOrRenew returns the live request for address, creating one if none is live.
// Renewal keeps the original timestamp and message and only refreshes the countdown.
func (m *Mempool) IssueOrRenew(address string) Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, live := m.liveLocked(address, now); live {
		logx.Debug("MEMPOOL", fmt.Sprintf("Renewed validation request for %s, %ds left", address, e.req.ValidationWindow))
		return e.req
	}
	// an expired entry whose timer has not fired yet is replaced
	m.removeLocked(address)

	e := &entry{
		id: uuid.New(),
		req: Request{
			Address:          address,
			RequestTimeStamp: now,
			Message:          ChallengeMessage(address, now),
			ValidationWindow: m.windowSeconds(),
			StatusMessage:    StatusPending,
		},
	}
	id := e.id
	e.timer = m.clock.AfterFunc(m.window, func() {
		m.expire(address, id)
	})
	m.entries[address] = e

	logx.Info("MEMPOOL", fmt.Sprintf("Issued validation request for %s at %d", address, now))
	return e.req
}

// VerifySignature checks signature against the live challenge for address and
// records the outcome. A mismatch never consumes the request and never resets its window.
func (m *Mempool) VerifySignature(address, signature string) Request {
	m.mu.Lock()
	e, live := m.liveLocked(address, m.now())
	if !live {
		m.mu.Unlock()
		return Request{Address: address, StatusMessage: StatusNoPendingRequest}
	}
	id, message := e.id, e.req.Message
	m.mu.Unlock()

	valid := m.verifier != nil && m.verifier.Verify(message, address, signature)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, live = m.liveLocked(address, m.now())
	if !live || e.id != id {
		return Request{Address: address, StatusMessage: StatusNoPendingRequest}
	}
	// verified only goes false to true; a later mismatch just reports it.
	e.req.Verified = e.req.Verified || valid
	if valid {
		e.req.StatusMessage = StatusVerified
		logx.Info("MEMPOOL", fmt.Sprintf("Signature verified for %s", address))
	} else {
		e.req.StatusMessage = StatusSignatureMismatch
		logx.Warn("MEMPOOL", fmt.Sprintf("Signature mismatch for %s", address))
	}
	return e.req
}

// IsAppendAuthorized reports whether address holds a live, verified request.
func (m *Mempool) IsAppendAuthorized(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, live := m.liveLocked(address, m.now())
	return live && e.req.Verified
}

// Get returns the live request for address with its countdown refreshed.
func (m *Mempool) Get(address string) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, live := m.liveLocked(address, m.now())
	if !live {
		return Request{}, false
	}
	return e.req, true
}

// Consume removes the request for address and cancels its expiry.
// It reports whether a request was present; consuming nothing is not an error.
func (m *Mempool) Consume(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[address]; !ok {
		return false
	}
	m.removeLocked(address)
	logx.Info("MEMPOOL", fmt.Sprintf("Consumed validation request for %s", address))
	return true
}

// expire is the timer callback. It only removes the instance it was scheduled for.
func (m *Mempool) expire(address string, id uuid.UUID) {
	m.mu.Lock()
	e, ok := m.entries[address]
	if !ok || e.id != id {
		m.mu.Unlock()
		return
	}
	delete(m.entries, address)
	m.mu.Unlock()

	logx.Info("MEMPOOL", fmt.Sprintf("Validation request for %s expired", address))
	if m.onExpire != nil {
		m.onExpire(address)
	}
}

// Len returns the number of tracked requests, including expired ones not yet purged.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close cancels all expiry timers and drops every request.
func (m *Mempool) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for address := range m.entries {
		m.removeLocked(address)
	}
}
