package funnel

import "time"

// InvokedAt selects which edge(s) of an activity window trigger the
// executor.
type InvokedAt int

const (
	// End invokes the executor only when all moratoriums have cleared
	// (trailing edge). This is the default.
	End InvokedAt = iota

	// Start invokes the executor synchronously on the first call of a
	// window (leading edge). Calls made while the funnel is active are
	// absorbed without folding their arguments.
	Start

	// Both invokes on the leading edge and again on the trailing edge.
	// The trailing invocation carries only the arguments folded after
	// the leading one.
	Both
)

type config struct {
	invokedAt InvokedAt

	burstCoolDown    time.Duration
	hasBurstCoolDown bool

	maxBurstDuration    time.Duration
	hasMaxBurstDuration bool

	delay    time.Duration
	hasDelay bool
}

// Option configures a [Funnel].
type Option func(*config)

func defaultConfig() config {
	return config{
		invokedAt: End,
	}
}

// WithInvokedAt sets which edge(s) trigger the executor.
// It panics if at is not a known InvokedAt value.
func WithInvokedAt(at InvokedAt) Option {
	return func(c *config) {
		switch at {
		case End, Start, Both:
			c.invokedAt = at
		default:
			panic("funnel: invalid InvokedAt")
		}
	}
}

// WithBurstCoolDown enables burst tracking: every call (re)opens a
// cooldown window of d, and the trailing edge fires once d elapses with
// no further calls. Without this option the burst mechanism is unused
// and quiescence is governed only by the delay timer, if any.
//
// Durations are not bounds-checked: zero or negative values are legal
// and mean the window closes as soon as the scheduler allows.
func WithBurstCoolDown(d time.Duration) Option {
	return func(c *config) {
		c.burstCoolDown = d
		c.hasBurstCoolDown = true
	}
}

// WithMaxBurstDuration caps how long a continuously-extended burst may
// delay the trailing edge: the executor fires no later than d after the
// burst began, even if calls keep arriving within the cooldown window.
// It is meaningful only together with [WithBurstCoolDown].
func WithMaxBurstDuration(d time.Duration) Option {
	return func(c *config) {
		c.maxBurstDuration = d
		c.hasMaxBurstDuration = true
	}
}

// WithDelay enforces a minimum spacing of d between consecutive
// executions, independent of burst activity. After each execution the
// funnel stays in a delay moratorium for d; a pending payload folded
// during the moratorium executes when it clears.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
		c.hasDelay = true
	}
}
