// Package funnel provides a single reusable timing-control primitive
// that governs when a potentially-expensive callback runs in response
// to a rapid, irregular stream of calls. One configurable state machine
// generalizes debouncing, throttling, batching, and leaky-bucket style
// rate limiting.
//
// # The Funnel
//
// A [Funnel] is constructed once with a [Reducer] that folds successive
// call arguments into a single pending batch, an executor that consumes
// that batch, and a timing policy:
//
//	f := funnel.New(
//	    func(batch []string, ok bool, args ...string) []string {
//	        return append(batch, args...)
//	    },
//	    func(batch []string) { save(batch) },
//	    funnel.WithBurstCoolDown(100*time.Millisecond),
//	)
//	f.Call("a")
//	f.Call("b") // folded into the same batch
//
// Internally two timers cooperate. The burst timer tracks a cooldown
// window that resets on every call ([WithBurstCoolDown]), optionally
// capped so a continuously-extended burst cannot starve execution
// forever ([WithMaxBurstDuration]). The delay timer enforces a minimum
// spacing between consecutive executions ([WithDelay]). The executor
// runs only when neither timer is active.
//
// # Edges
//
// [WithInvokedAt] selects which edge of an activity window triggers the
// executor. [End] (the default) executes on the trailing edge, from a
// timer goroutine, once all moratoriums clear — never synchronously
// inside the [Funnel.Call] that scheduled it, even with a zero
// cooldown. [Start] executes synchronously on the first call of a
// window and absorbs calls made while active. [Both] does both; the
// trailing execution carries only the arguments folded after the
// leading one.
//
// # Manual Control
//
// [Funnel.Flush] forces completion of both moratoriums, delivering a
// pending batch exactly once. [Funnel.Cancel] discards the pending
// batch and all scheduled work. [Funnel.IsIdle] reports whether any
// timer is active. Every path that arms a timer has a matching clear
// path, so an abandoned Funnel holds no resources once its timers have
// fired or been cancelled.
//
// # Concurrency
//
// All state transitions are serialized by an internal mutex, so Call,
// Cancel, Flush, and timer callbacks never run concurrently. The
// executor itself runs outside the lock: it may call back into the
// funnel, and a reentrant call starts a fresh batch because the pending
// batch is always cleared before the executor is entered. Panics from
// the reducer or executor propagate to whichever caller triggered them,
// leaving the funnel's timer state consistent.
//
// # Common Policies
//
//   - Debounce: [WithBurstCoolDown] alone.
//   - Debounce with a bound: add [WithMaxBurstDuration].
//   - Throttle: [WithInvokedAt]([Both]) with [WithBurstCoolDown].
//   - Rate limit: [WithInvokedAt]([Both]) with [WithDelay].
//   - Batch on demand: no options; fold calls and [Funnel.Flush].
package funnel
