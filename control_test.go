package funnel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelIdleIsIdempotent(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(50*time.Millisecond))

	f.Cancel()
	f.Cancel()
	assert.True(t, f.IsIdle())

	f.Flush()
	assert.Equal(t, 0, c.count(), "nothing to execute after cancel on idle")
}

func TestCancelDuringBurstDiscardsBatch(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(80*time.Millisecond))

	f.Call("a")
	f.Call("b")
	f.Cancel()
	assert.True(t, f.IsIdle())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, c.count(), "no residual scheduled execution")

	f.Flush()
	assert.Equal(t, 0, c.count(), "batch is not carried forward past cancel")
}

func TestCancelDuringDelay(t *testing.T) {
	var c collector[string]
	f := New(lastArg, c.execute,
		WithInvokedAt(Start),
		WithDelay(120*time.Millisecond),
	)

	f.Call("a") // leading edge executes, delay moratorium begins
	require.Equal(t, 1, c.count())
	assert.False(t, f.IsIdle())

	f.Cancel()
	assert.True(t, f.IsIdle())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, c.count())
}

func TestCancelAfterNaturalCompletion(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(30*time.Millisecond))

	f.Call("a")
	require.Eventually(t, func() bool { return c.count() == 1 },
		time.Second, 5*time.Millisecond)

	f.Cancel()
	assert.True(t, f.IsIdle())
	assert.Equal(t, 1, c.count())
}

func TestFlushMidCoolDown(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(32*time.Millisecond))

	f.Call("a")
	time.Sleep(time.Millisecond)

	f.Flush()
	require.Equal(t, 1, c.count(), "flush executes the pending batch synchronously")
	assert.Equal(t, []string{"a"}, c.batch(0))
	assert.True(t, f.IsIdle())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, c.count(), "the cleared burst timer must not fire")
}

func TestFlushWithNoPendingBatch(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(30*time.Millisecond))

	f.Flush()
	assert.Equal(t, 0, c.count())

	f.Call("a")
	f.Flush()
	f.Flush() // second flush finds everything consumed
	assert.Equal(t, 1, c.count())
}

func TestFlushExecutesOnceWithBothTimersActive(t *testing.T) {
	// Both + delay: the leading edge arms the delay timer, the call
	// arms the burst timer, so both moratoriums overlap.
	var c collector[[]string]
	f := New(appendAll, c.execute,
		WithInvokedAt(Both),
		WithBurstCoolDown(100*time.Millisecond),
		WithDelay(60*time.Millisecond),
	)

	f.Call("a")
	require.Equal(t, 1, c.count())
	assert.False(t, f.IsIdle())

	f.Call("b")
	f.Call("c")

	f.Flush()
	require.Equal(t, 2, c.count(), "flush runs both handlers but executes once")
	assert.Equal(t, []string{"b", "c"}, c.batch(1))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, c.count())
	assert.True(t, f.IsIdle())
}

func TestExecutorPanicPropagatesAndClearsState(t *testing.T) {
	var calls int
	f := New(appendAll,
		func(batch []string) {
			calls++
			if calls == 1 {
				panic("executor failure")
			}
		},
		WithBurstCoolDown(time.Hour),
	)

	f.Call("a")
	require.Panics(t, func() { f.Flush() })

	// Timer handles and the batch were cleared before the executor ran.
	assert.True(t, f.IsIdle())
	f.Flush() // nothing pending, executor not reached
	assert.Equal(t, 1, calls)

	// The funnel remains usable.
	f.Call("b")
	f.Flush()
	assert.Equal(t, 2, calls)
}

func TestReducerPanicLeavesBatchIntact(t *testing.T) {
	var c collector[[]string]
	reduce := func(batch []string, ok bool, args ...string) []string {
		if args[0] == "bad" {
			panic("reducer failure")
		}
		return append(batch, args...)
	}
	f := New(reduce, c.execute, WithBurstCoolDown(time.Hour))

	f.Call("a")
	require.Panics(t, func() { f.Call("bad") })

	f.Flush()
	require.Equal(t, 1, c.count())
	assert.Equal(t, []string{"a"}, c.batch(0),
		"a throwing fold must not partially apply")
}

func TestIsIdleTransitions(t *testing.T) {
	var c collector[[]string]
	f := New(appendAll, c.execute, WithBurstCoolDown(40*time.Millisecond))

	assert.True(t, f.IsIdle())

	f.Call("a")
	assert.False(t, f.IsIdle())

	require.Eventually(t, func() bool { return f.IsIdle() },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, c.count())
}
