package autosave_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scriptrunner/internal/autosave"
	"github.com/roach88/scriptrunner/internal/testutil"
)

func TestDebouncer_SingleNotifyFlushesAfterQuiet(t *testing.T) {
	clock := testutil.NewManualClock()
	flushes := 0
	d := autosave.New(clock, 500*time.Millisecond, func() { flushes++ })

	d.NotifyChanged()
	assert.True(t, d.Pending())

	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, flushes)

	clock.Advance(1 * time.Millisecond)
	assert.Equal(t, 1, flushes)
	assert.False(t, d.Pending())
}

func TestDebouncer_BurstCoalescesToOneFlush(t *testing.T) {
	clock := testutil.NewManualClock()
	var value string
	var written []string
	d := autosave.New(clock, 500*time.Millisecond, func() { written = append(written, value) })

	for _, v := range []string{"h", "he", "hel", "hell", "hello"} {
		value = v
		d.NotifyChanged()
		clock.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, written, "every notify resets the quiet period")
	assert.Equal(t, 1, clock.Pending(), "only one timer may be pending")

	clock.Advance(300 * time.Millisecond)
	require.Len(t, written, 1)
	assert.Equal(t, "hello", written[0])
}

func TestDebouncer_FlushReadsStateAtFireTime(t *testing.T) {
	clock := testutil.NewManualClock()
	state := "scheduled"
	var seen string
	d := autosave.New(clock, 100*time.Millisecond, func() { seen = state })

	d.NotifyChanged()
	state = "changed during quiet window"
	clock.Advance(100 * time.Millisecond)

	assert.Equal(t, "changed during quiet window", seen)
}

func TestDebouncer_CancelDropsPendingWrite(t *testing.T) {
	clock := testutil.NewManualClock()
	flushes := 0
	d := autosave.New(clock, 100*time.Millisecond, func() { flushes++ })

	d.NotifyChanged()
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel(), "nothing pending after cancel")

	clock.Advance(time.Second)
	assert.Equal(t, 0, flushes)
}

func TestDebouncer_FlushRunsPendingNow(t *testing.T) {
	clock := testutil.NewManualClock()
	flushes := 0
	d := autosave.New(clock, 100*time.Millisecond, func() { flushes++ })

	assert.False(t, d.Flush(), "no pending write to flush")
	assert.Equal(t, 0, flushes)

	d.NotifyChanged()
	assert.True(t, d.Flush())
	assert.Equal(t, 1, flushes)

	clock.Advance(time.Second)
	assert.Equal(t, 1, flushes, "flushed timer must not fire again")
}

func TestDebouncer_Defaults(t *testing.T) {
	d := autosave.New(nil, 0, func() {})
	assert.Equal(t, autosave.DefaultQuiet, d.Quiet())
	assert.Equal(t, 500*time.Millisecond, autosave.DefaultQuiet)
}

func TestDebouncer_RealClock(t *testing.T) {
	var flushes atomic.Int32
	done := make(chan struct{}, 1)
	d := autosave.New(autosave.RealClock{}, 20*time.Millisecond, func() {
		flushes.Add(1)
		done <- struct{}{}
	})

	for i := 0; i < 5; i++ {
		d.NotifyChanged()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced flush never ran")
	}

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), flushes.Load())
}
