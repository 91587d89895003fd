package funnel

import (
	"sync"
	"time"
)

// Reducer folds the arguments of one [Funnel.Call] into the pending
// batch. ok reports whether a batch is already pending; when ok is
// false, batch is the zero value and the reducer builds a fresh batch
// from args alone. The returned value becomes the new pending batch.
//
// Reducers must be cheap and side-effect free: one runs inline on
// every call.
type Reducer[B, T any] func(batch B, ok bool, args ...T) B

// Funnel coalesces a rapid, irregular stream of calls into batched
// executions of a single executor. It generalizes debouncing,
// throttling, batching, and rate limiting into one timing policy built
// from two timers:
//
//   - a burst timer tracking a cooldown window that resets on every
//     call, optionally capped by a maximum burst duration, and
//   - a delay timer enforcing a minimum spacing between consecutive
//     executions.
//
// The executor runs only when neither timer is active. Create a Funnel
// with [New]; the zero value is not usable.
type Funnel[B, T any] struct {
	mu      sync.Mutex
	reduce  Reducer[B, T]
	execute func(B)
	cfg     config
	now     func() time.Time

	batch    B
	hasBatch bool

	// Timer handles are nil when inactive. The generation counters
	// invalidate callbacks from timers that fired but lost the race
	// against a Call, Cancel, or Flush that superseded them.
	burstTimer *time.Timer
	burstGen   uint64
	burstStart time.Time // zero while no burst window is open

	delayTimer *time.Timer
	delayGen   uint64
}

// New creates a Funnel that folds call arguments with reduce and
// delivers the folded batch to execute according to the timing policy
// in opts. With no options the funnel only accumulates: the batch is
// delivered by an explicit [Funnel.Flush].
//
// New panics if reduce or execute is nil.
func New[B, T any](reduce Reducer[B, T], execute func(B), opts ...Option) *Funnel[B, T] {
	if reduce == nil {
		panic("funnel: New requires a reducer")
	}
	if execute == nil {
		panic("funnel: New requires an executor")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Funnel[B, T]{
		reduce:  reduce,
		execute: execute,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Call feeds args into the funnel. Depending on the policy it may run
// the executor synchronously (leading edge) and/or schedule a later
// execution (trailing edge). Panics from the reducer or a
// synchronously-invoked executor propagate to the caller.
//
// Call is safe for concurrent use, including reentrantly from inside
// the executor.
func (f *Funnel[B, T]) Call(args ...T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wasIdle := f.burstTimer == nil && f.delayTimer == nil

	// A call made while a leading-only funnel is active belongs to a
	// cycle whose invocation already happened; its args are dropped.
	if f.cfg.invokedAt != Start || wasIdle {
		batch := f.reduce(f.batch, f.hasBatch, args...)
		f.batch = batch
		f.hasBatch = true
	}

	if f.cfg.invokedAt != End && wasIdle {
		f.invokeLocked()
	}

	if !f.cfg.hasBurstCoolDown {
		return
	}

	// A new burst never starts while only the delay moratorium is
	// active; it would stretch the spacing guarantee across the delay
	// boundary. The burst begins once the moratorium fully clears.
	if f.burstTimer == nil && !wasIdle {
		return
	}

	if f.burstTimer != nil {
		f.burstTimer.Stop()
		f.burstTimer = nil
	}
	if f.burstStart.IsZero() {
		f.burstStart = f.now()
	}
	d := f.cfg.burstCoolDown
	if f.cfg.hasMaxBurstDuration {
		if left := f.cfg.maxBurstDuration - f.now().Sub(f.burstStart); left < d {
			d = left
		}
	}
	f.burstGen++
	gen := f.burstGen
	f.burstTimer = time.AfterFunc(d, func() { f.onBurstTimeout(gen) })
}

// Flush forces completion of both moratoriums, executing the pending
// batch (if any) exactly once and returning the funnel to idle. A
// panic from the executor propagates to the caller of Flush; the
// funnel itself stays consistent.
func (f *Funnel[B, T]) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Each handler clears its own timer before checking the other, so
	// invoke is reached exactly once; the second reaches an already-
	// consumed batch and is a no-op.
	f.burstEndLocked()
	f.delayEndLocked()
}

// Cancel clears both timers and discards the pending batch without
// executing. It is idempotent and safe to call on an idle funnel.
func (f *Funnel[B, T]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopBurstLocked()
	f.stopDelayLocked()
	var zero B
	f.batch = zero
	f.hasBatch = false
}

// IsIdle reports whether neither timer is active. A pending batch that
// has no timer scheduled (possible with a flush-only policy) does not
// make the funnel non-idle.
func (f *Funnel[B, T]) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.burstTimer == nil && f.delayTimer == nil
}

func (f *Funnel[B, T]) onBurstTimeout(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.burstGen {
		return // superseded while this callback was in flight
	}
	f.burstEndLocked()
}

func (f *Funnel[B, T]) onDelayTimeout(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.delayGen {
		return
	}
	f.delayEndLocked()
}

// burstEndLocked closes the burst window. If the delay moratorium is
// still in effect, execution is deferred to its handler.
func (f *Funnel[B, T]) burstEndLocked() {
	f.stopBurstLocked()
	if f.delayTimer != nil {
		return
	}
	f.invokeLocked()
}

// delayEndLocked closes the delay moratorium. If a burst is still in
// progress, execution is deferred to its handler.
func (f *Funnel[B, T]) delayEndLocked() {
	f.stopDelayLocked()
	if f.burstTimer != nil {
		return
	}
	f.invokeLocked()
}

func (f *Funnel[B, T]) stopBurstLocked() {
	if f.burstTimer != nil {
		f.burstTimer.Stop()
		f.burstTimer = nil
	}
	f.burstGen++
	f.burstStart = time.Time{}
}

func (f *Funnel[B, T]) stopDelayLocked() {
	if f.delayTimer != nil {
		f.delayTimer.Stop()
		f.delayTimer = nil
	}
	f.delayGen++
}

// invokeLocked delivers the pending batch, if any. The batch is
// snapshotted and cleared before the executor runs, so a reentrant
// Call starts a fresh batch instead of corrupting the one being
// consumed. The lock is released around the executor; it is held again
// when invokeLocked returns, and re-acquired before an executor panic
// propagates.
func (f *Funnel[B, T]) invokeLocked() {
	if !f.hasBatch {
		return
	}
	batch := f.batch
	var zero B
	f.batch = zero
	f.hasBatch = false

	f.mu.Unlock()
	func() {
		defer f.mu.Lock()
		f.execute(batch)
	}()

	// Spacing before the next execution. Skipped when the executor
	// panics: there is no pending batch left to strand.
	if f.cfg.hasDelay {
		if f.delayTimer != nil {
			f.delayTimer.Stop()
		}
		f.delayGen++
		gen := f.delayGen
		f.delayTimer = time.AfterFunc(f.cfg.delay, func() { f.onDelayTimeout(gen) })
	}
}
