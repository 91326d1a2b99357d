// Package admission bounds gateway throughput before any dispatch work
// happens.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBackpressure is returned when a caller or the gateway as a whole
// is over its admission rate.
var ErrBackpressure = errors.New("admission rejected: rate limit exceeded")

// Config holds admission tunables. Rates are requests per second.
type Config struct {
	CallerRate    float64
	CallerBurst   int
	GlobalRate    float64
	GlobalBurst   int
	QueueDepth    int           // callers allowed to wait instead of failing fast
	MaxQueueDelay time.Duration // upper bound on that wait
}

// DefaultConfig returns the default admission tunables. The wait queue
// is disabled by default: rejection is immediate.
func DefaultConfig() Config {
	return Config{
		CallerRate:    10,
		CallerBurst:   20,
		GlobalRate:    200,
		GlobalBurst:   400,
		QueueDepth:    0,
		MaxQueueDelay: 200 * time.Millisecond,
	}
}

// Controller admits or rejects requests using a token bucket per caller
// plus one global bucket for overall gateway capacity.
type Controller struct {
	cfg     Config
	global  *rate.Limiter
	mu      sync.Mutex
	callers map[string]*rate.Limiter
	queued  chan struct{}
}

// NewController creates an admission controller.
func NewController(cfg Config) *Controller {
	if cfg.CallerRate <= 0 {
		cfg.CallerRate = DefaultConfig().CallerRate
	}
	if cfg.CallerBurst <= 0 {
		cfg.CallerBurst = DefaultConfig().CallerBurst
	}
	if cfg.GlobalRate <= 0 {
		cfg.GlobalRate = DefaultConfig().GlobalRate
	}
	if cfg.GlobalBurst <= 0 {
		cfg.GlobalBurst = DefaultConfig().GlobalBurst
	}

	c := &Controller{
		cfg:     cfg,
		global:  rate.NewLimiter(rate.Limit(cfg.GlobalRate), cfg.GlobalBurst),
		callers: map[string]*rate.Limiter{},
	}
	if cfg.QueueDepth > 0 {
		c.queued = make(chan struct{}, cfg.QueueDepth)
	}
	return c
}

// Admit decides whether a request may proceed. It returns nil when
// admitted and ErrBackpressure when rejected; it never queues
// indefinitely. With a configured queue depth, up to that many excess
// requests wait briefly for a token before being rejected.
func (c *Controller) Admit(ctx context.Context, callerID string) error {
	limiter := c.limiterFor(callerID)

	if limiter.Allow() && c.global.Allow() {
		return nil
	}

	if c.queued == nil {
		return ErrBackpressure
	}

	select {
	case c.queued <- struct{}{}:
		defer func() { <-c.queued }()
	default:
		return ErrBackpressure
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxQueueDelay)
	defer cancel()
	if err := limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBackpressure
	}
	if err := c.global.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBackpressure
	}
	return nil
}

func (c *Controller) limiterFor(callerID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.callers[callerID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.cfg.CallerRate), c.cfg.CallerBurst)
		c.callers[callerID] = l
	}
	return l
}
