package events

import (
	"fmt"
	"sync"

	"github.com/mezonai/starledger/exception"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/monitoring"
)

const DefaultJournalCapacity = 256

// Record is the serializable form of a LedgerEvent kept by the Journal.
type Record struct {
	Type      EventType              `json:"type"`
	Subject   string                 `json:"subject"`
	Timestamp int64                  `json:"timestamp"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

func toRecord(event LedgerEvent) Record {
	r := Record{
		Type:      event.Type(),
		Subject:   event.Subject(),
		Timestamp: event.Timestamp().Unix(),
	}
	switch e := event.(type) {
	case *BlockAppended:
		r.Detail = map[string]interface{}{"height": e.Height(), "kind": e.Kind()}
		if e.Owner() != "" {
			r.Detail["owner"] = e.Owner()
		}
	case *ValidationRequested:
		r.Detail = map[string]interface{}{"message": e.Message(), "renewed": e.Renewed()}
	case *SignatureVerified:
		r.Detail = map[string]interface{}{"valid": e.Valid()}
	case *ValidationConsumed:
		r.Detail = map[string]interface{}{"height": e.Height()}
	}
	return r
}

// Journal subscribes to an EventBus and keeps the most recent events in a ring.
type Journal struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
}

func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &Journal{records: make([]Record, capacity)}
}

// Run subscribes j to bus and consumes events until the returned stop func
// is called or the bus is closed.
func (j *Journal) Run(bus *EventBus) (stop func()) {
	id, ch := bus.Subscribe()
	exception.SafeGo("EventJournal", func() {
		for event := range ch {
			j.add(toRecord(event))
		}
	})
	return func() { bus.Unsubscribe(id) }
}

func (j *Journal) add(r Record) {
	monitoring.RecordEvent(string(r.Type))
	logx.Info("EVENTS", fmt.Sprintf("%s | subject=%s", r.Type, r.Subject))

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[j.next] = r
	j.next = (j.next + 1) % len(j.records)
	if j.next == 0 {
		j.full = true
	}
}

// Recent returns up to limit records, oldest first. limit <= 0 returns all held records.
func (j *Journal) Recent(limit int) []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	var ordered []Record
	if j.full {
		ordered = append(ordered, j.records[j.next:]...)
	}
	ordered = append(ordered, j.records[:j.next]...)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}
