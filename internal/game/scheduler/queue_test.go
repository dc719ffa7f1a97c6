package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestQueueFIFO(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock, Options{DefaultDuration: 2 * time.Second, Floor: 500 * time.Millisecond})

	_, ok := q.Current()
	assert.False(t, ok)

	q.Enqueue(Item{Kind: KindAnimation, Tag: "slash"})
	active, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "slash", active.Tag)
	assert.Equal(t, epoch.Add(2*time.Second), active.Expires)
	assert.NotEmpty(t, active.ID)

	clock.Advance(time.Second)
	active, ok = q.Current()
	require.True(t, ok)
	assert.Equal(t, "slash", active.Tag)

	clock.Advance(time.Second)
	_, ok = q.Current()
	assert.False(t, ok)
}

func TestQueueInterruptShortensToFloor(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock, Options{DefaultDuration: 3 * time.Second, Floor: time.Second})

	q.Enqueue(Item{Tag: "first"})
	_, ok := q.Current()
	require.True(t, ok)

	clock.Advance(200 * time.Millisecond)
	q.Enqueue(Item{Tag: "second"})

	active, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "first", active.Tag)
	assert.Equal(t, epoch.Add(time.Second), active.Expires, "floor wins over now")

	clock.Set(epoch.Add(time.Second))
	active, ok = q.Current()
	require.True(t, ok)
	assert.Equal(t, "second", active.Tag)
}

func TestQueueInterruptAfterFloorExpiresNow(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock, Options{DefaultDuration: 3 * time.Second, Floor: time.Second})

	q.Enqueue(Item{Tag: "first"})
	q.Current()

	clock.Advance(1500 * time.Millisecond)
	q.Enqueue(Item{Tag: "second"})

	active, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "second", active.Tag)
	assert.Equal(t, clock.Now(), active.Start)
}

func TestQueuePromotedItemWithBacklogUsesFloor(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock, Options{DefaultDuration: 3 * time.Second, Floor: time.Second})

	q.Enqueue(Item{Tag: "a"}, Item{Tag: "b"}, Item{Tag: "c"})
	active, _ := q.Current()
	assert.Equal(t, "a", active.Tag)
	assert.Equal(t, epoch.Add(time.Second), active.Expires)

	clock.Advance(time.Second)
	active, _ = q.Current()
	assert.Equal(t, "b", active.Tag)

	clock.Advance(time.Second)
	active, _ = q.Current()
	assert.Equal(t, "c", active.Tag)
	assert.Equal(t, clock.Now().Add(3*time.Second), active.Expires, "last item runs its full duration")
}

func TestQueueKeepsArrivalOrderAcrossPriorities(t *testing.T) {
	q := NewQueue(NewFakeClock(epoch), Options{})

	q.Enqueue(
		Item{Text: "low-1", Priority: 0},
		Item{Text: "high-1", Priority: 2},
		Item{Text: "low-2", Priority: 0},
		Item{Text: "mid", Priority: 1},
		Item{Text: "high-2", Priority: 2},
	)

	var got []string
	for _, it := range q.Pending() {
		got = append(got, it.Text)
	}
	assert.Equal(t, []string{"low-1", "high-1", "low-2", "mid", "high-2"}, got)
}

func TestQueueReplaceAndClear(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock, Options{DefaultDuration: time.Second})

	q.Enqueue(Item{Tag: "a"}, Item{Tag: "b"})
	q.Current()

	replaced := q.Replace(Item{Tag: "urgent", Duration: 5 * time.Second})
	assert.Equal(t, "urgent", replaced.Tag)
	active, _ := q.Current()
	assert.Equal(t, "urgent", active.Tag)
	assert.Equal(t, 1, q.Len())

	q.Clear()
	_, ok := q.Current()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}
