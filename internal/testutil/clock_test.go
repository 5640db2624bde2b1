package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_StartsAtZero(t *testing.T) {
	clock := NewManualClock()
	assert.Equal(t, time.Duration(0), clock.Now())
	assert.Equal(t, 0, clock.Pending())
}

func TestManualClock_FiresOnlyWhenDue(t *testing.T) {
	clock := NewManualClock()
	fired := 0
	clock.AfterFunc(100*time.Millisecond, func() { fired++ })

	assert.Equal(t, 0, clock.Advance(99*time.Millisecond))
	assert.Equal(t, 0, fired)

	assert.Equal(t, 1, clock.Advance(1*time.Millisecond))
	assert.Equal(t, 1, fired)

	// Never fires twice
	assert.Equal(t, 0, clock.Advance(time.Second))
	assert.Equal(t, 1, fired)
}

func TestManualClock_StopPreventsFire(t *testing.T) {
	clock := NewManualClock()
	fired := false
	timer := clock.AfterFunc(10*time.Millisecond, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second Stop reports nothing was pending")
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualClock_StopAfterFire(t *testing.T) {
	clock := NewManualClock()
	timer := clock.AfterFunc(10*time.Millisecond, func() {})
	clock.Advance(10 * time.Millisecond)
	assert.False(t, timer.Stop())
}

func TestManualClock_DeadlineOrder(t *testing.T) {
	clock := NewManualClock()
	var order []string
	clock.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

	require.Equal(t, 3, clock.Advance(time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestManualClock_CallbackMaySchedule(t *testing.T) {
	clock := NewManualClock()
	fired := 0
	clock.AfterFunc(10*time.Millisecond, func() {
		fired++
		clock.AfterFunc(10*time.Millisecond, func() { fired++ })
	})

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, 2, fired)
}

func TestSequenceIDs(t *testing.T) {
	gen := NewSequenceIDs("")
	assert.Equal(t, "script-0001", gen.NewID())
	assert.Equal(t, "script-0002", gen.NewID())

	custom := NewSequenceIDs("imp")
	assert.Equal(t, "imp-0001", custom.NewID())
}

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("a", "a", "b")
	assert.Equal(t, "a", gen.NewID())
	assert.Equal(t, "a", gen.NewID())
	assert.Equal(t, "b", gen.NewID())
	assert.Panics(t, func() { gen.NewID() })
}
