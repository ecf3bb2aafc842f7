package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRecordsPublishedEvents(t *testing.T) {
	bus := NewEventBus()
	journal := NewJournal(8)
	stop := journal.Run(bus)
	defer stop()

	bus.Publish(NewValidationRequested("1Addr", "1Addr:1700000000:starRegistry", false))
	bus.Publish(NewSignatureVerified("1Addr", true))
	bus.Publish(NewBlockAppended("abc", 1, "owned", "1Addr"))

	require.Eventually(t, func() bool { return len(journal.Recent(0)) == 3 }, time.Second, 5*time.Millisecond)

	records := journal.Recent(0)
	assert.Equal(t, EventValidationRequested, records[0].Type)
	assert.Equal(t, true, records[1].Detail["valid"])
	assert.Equal(t, "abc", records[2].Subject)
	assert.Equal(t, uint64(1), records[2].Detail["height"])
	assert.Equal(t, "1Addr", records[2].Detail["owner"])

	last := journal.Recent(1)
	require.Len(t, last, 1)
	assert.Equal(t, EventBlockAppended, last[0].Type)
}

func TestJournalWrapsAtCapacity(t *testing.T) {
	journal := NewJournal(3)
	for i := uint64(0); i < 5; i++ {
		journal.add(toRecord(NewValidationConsumed("1Addr", i)))
	}

	records := journal.Recent(0)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(2), records[0].Detail["height"])
	assert.Equal(t, uint64(4), records[2].Detail["height"])
}

func TestJournalStopsWithBus(t *testing.T) {
	bus := NewEventBus()
	journal := NewJournal(0)
	stop := journal.Run(bus)
	assert.Equal(t, 1, bus.GetTotalSubscriptions())

	stop()
	assert.Equal(t, 0, bus.GetTotalSubscriptions())
	bus.Publish(NewValidationExpired("1Addr"))
	assert.Empty(t, journal.Recent(0))
}
