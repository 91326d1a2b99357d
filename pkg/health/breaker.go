// Package health tracks per-platform dispatch outcomes and gates
// traffic through a circuit breaker.
package health

import (
	"sync"
	"time"
)

// State is a circuit state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// TransitionFunc observes circuit state changes.
type TransitionFunc func(id string, from, to State)

// Config holds breaker tunables.
type Config struct {
	Window           int           // dispatches considered for the failure rate
	FailureThreshold float64       // rate above which the circuit opens
	Cooldown         time.Duration // open duration before a half-open trial
}

// DefaultConfig returns the default breaker tunables.
func DefaultConfig() Config {
	return Config{
		Window:           20,
		FailureThreshold: 0.5,
		Cooldown:         30 * time.Second,
	}
}

type entry struct {
	state          State
	window         []bool // ring of outcomes, true = failure
	idx            int
	count          int
	failures       int
	lastTransition time.Time
	trialInFlight  bool
}

// Breaker owns all failure/success observations. The dispatcher reports
// outcomes here and never mutates circuit state itself.
type Breaker struct {
	mu           sync.Mutex
	cfg          Config
	now          func() time.Time
	onTransition TransitionFunc
	entries      map[string]*entry
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the breaker's time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithTransitionFunc registers a state-change observer.
func WithTransitionFunc(fn TransitionFunc) Option {
	return func(b *Breaker) { b.onTransition = fn }
}

// NewBreaker creates a breaker with the given tunables.
func NewBreaker(cfg Config, opts ...Option) *Breaker {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 0.5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	b := &Breaker{
		cfg:     cfg,
		now:     time.Now,
		entries: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) entry(id string) *entry {
	e, ok := b.entries[id]
	if !ok {
		e = &entry{
			state:          StateClosed,
			window:         make([]bool, b.cfg.Window),
			lastTransition: b.now(),
		}
		b.entries[id] = e
	}
	return e
}

// Available reports whether a platform may be scored as a candidate:
// CLOSED, HALF_OPEN, or OPEN with its cooldown elapsed. It does not
// claim the half-open trial.
func (b *Breaker) Available(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(id)
	if e.state != StateOpen {
		return true
	}
	return b.now().Sub(e.lastTransition) >= b.cfg.Cooldown
}

// Allow asks permission to dispatch to a platform. CLOSED always
// allows. OPEN moves to HALF_OPEN once the cooldown has elapsed;
// HALF_OPEN admits exactly one in-flight trial.
func (b *Breaker) Allow(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(id)
	switch e.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(e.lastTransition) < b.cfg.Cooldown {
			return false
		}
		b.transition(id, e, StateHalfOpen)
		e.trialInFlight = true
		return true
	default: // half-open
		if e.trialInFlight {
			return false
		}
		e.trialInFlight = true
		return true
	}
}

// Record reports one dispatch outcome. This is the only write path for
// circuit state.
func (b *Breaker) Record(id string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(id)
	switch e.state {
	case StateHalfOpen:
		e.trialInFlight = false
		if success {
			b.reset(e)
			b.transition(id, e, StateClosed)
		} else {
			b.transition(id, e, StateOpen) // cooldown restarts
		}
	case StateClosed:
		b.push(e, !success)
		if e.count >= b.cfg.Window && b.failureRate(e) > b.cfg.FailureThreshold {
			b.transition(id, e, StateOpen)
		}
	default:
		// Late report for a dispatch that started before the circuit
		// opened; the window no longer matters.
	}
}

// ReleaseTrial frees the half-open trial slot without recording an
// outcome. Used when a caller-driven deadline abandons the attempt:
// that is not evidence about the platform's health.
func (b *Breaker) ReleaseTrial(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(id)
	if e.state == StateHalfOpen {
		e.trialInFlight = false
	}
}

// State returns the current circuit state for a platform.
func (b *Breaker) State(id string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entry(id).state
}

// States returns a snapshot of every tracked platform's state.
func (b *Breaker) States() map[string]State {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]State, len(b.entries))
	for id, e := range b.entries {
		out[id] = e.state
	}
	return out
}

func (b *Breaker) push(e *entry, failure bool) {
	if e.count >= b.cfg.Window && e.window[e.idx] {
		e.failures--
	}
	e.window[e.idx] = failure
	if failure {
		e.failures++
	}
	e.idx = (e.idx + 1) % b.cfg.Window
	if e.count < b.cfg.Window {
		e.count++
	}
}

func (b *Breaker) failureRate(e *entry) float64 {
	if e.count == 0 {
		return 0
	}
	return float64(e.failures) / float64(e.count)
}

func (b *Breaker) reset(e *entry) {
	e.window = make([]bool, b.cfg.Window)
	e.idx = 0
	e.count = 0
	e.failures = 0
}

func (b *Breaker) transition(id string, e *entry, to State) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	e.lastTransition = b.now()
	if b.onTransition != nil {
		b.onTransition(id, from, to)
	}
}
