package health

import (
	"context"
	"log"
	"time"
)

// Pinger is the probe surface of a platform adapter.
type Pinger interface {
	HealthPing(ctx context.Context) bool
}

// Prober periodically probes platforms whose circuit is not closed so
// an idle gateway still recovers: probe outcomes drive the half-open
// trial when no live traffic does.
type Prober struct {
	breaker  *Breaker
	pingers  map[string]Pinger
	interval time.Duration
}

// NewProber creates a prober over the given adapters.
func NewProber(breaker *Breaker, pingers map[string]Pinger, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{breaker: breaker, pingers: pingers, interval: interval}
}

// Run probes until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	for id, pinger := range p.pingers {
		if p.breaker.State(id) == StateClosed {
			continue
		}
		if !p.breaker.Allow(id) {
			continue
		}
		ok := pinger.HealthPing(ctx)
		p.breaker.Record(id, ok)
		if ok {
			log.Printf("[health] probe recovered platform %s", id)
		}
	}
}
