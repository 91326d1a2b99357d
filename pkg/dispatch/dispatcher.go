// Package dispatch executes routing decisions against platform adapters.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zen-systems/unigate/pkg/adapter"
	"github.com/zen-systems/unigate/pkg/health"
	"github.com/zen-systems/unigate/pkg/schema"
	"github.com/zen-systems/unigate/pkg/telemetry"
)

// maxAttempts bounds retry cost: the first candidate plus at most one
// retry against the next-ranked candidate.
const maxAttempts = 2

// Attempt captures one adapter call for error reporting.
type Attempt struct {
	Platform  string `json:"platform"`
	Error     string `json:"error"`
	LatencyMS int64  `json:"latency_ms"`
}

// FailedError aggregates the attempts behind a failed dispatch.
type FailedError struct {
	Attempts []Attempt
}

func (e *FailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Platform, a.Error))
	}
	return "dispatch failed: " + strings.Join(parts, "; ")
}

// ErrNoCandidates is returned when no ranked candidate could even be
// attempted.
var ErrNoCandidates = errors.New("dispatch: no usable candidate")

// Outcome is the result of a successful dispatch. It feeds the unifier
// and telemetry and is then discarded.
type Outcome struct {
	PlatformID string
	Payload    adapter.Payload
	Latency    time.Duration
	Attempt    int // 1-based attempt number that succeeded
	Score      float64
}

// Dispatcher invokes exactly one adapter per attempt, reporting every
// attempt to the circuit breaker and telemetry recorder exactly once.
type Dispatcher struct {
	adapters map[string]adapter.Adapter
	breaker  *health.Breaker
	recorder *telemetry.Recorder
	timeout  time.Duration
}

// New creates a dispatcher over the given adapters.
func New(adapters map[string]adapter.Adapter, breaker *health.Breaker, recorder *telemetry.Recorder, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		adapters: adapters,
		breaker:  breaker,
		recorder: recorder,
		timeout:  timeout,
	}
}

// Dispatch walks the ranked candidates, invoking the best one and
// retrying once against the next-ranked candidate on failure. A
// caller-driven deadline abandons the request without charging the
// platform's circuit.
func (d *Dispatcher) Dispatch(ctx context.Context, req *schema.Request, ranked []schema.ScoreResult) (*Outcome, error) {
	var attempts []Attempt

	for _, candidate := range ranked {
		if len(attempts) >= maxAttempts {
			break
		}

		a, ok := d.adapters[candidate.PlatformID]
		if !ok {
			log.Printf("[dispatch] no adapter registered for platform %s", candidate.PlatformID)
			continue
		}
		if !d.breaker.Allow(candidate.PlatformID) {
			continue
		}

		start := time.Now()
		payload, err := a.Invoke(ctx, req, d.timeout)
		latency := time.Since(start)

		if err == nil {
			d.breaker.Record(candidate.PlatformID, true)
			d.recorder.Dispatch(candidate.PlatformID, req.CallerID, latency, true, map[string]string{
				"request_id": req.ID,
			})
			return &Outcome{
				PlatformID: candidate.PlatformID,
				Payload:    payload,
				Latency:    latency,
				Attempt:    len(attempts) + 1,
				Score:      candidate.Score,
			}, nil
		}

		if ctx.Err() != nil {
			// The caller's deadline expired or it went away. Not
			// evidence of platform failure; release any trial slot
			// and surface the cancellation.
			d.breaker.ReleaseTrial(candidate.PlatformID)
			d.recorder.Dispatch(candidate.PlatformID, req.CallerID, latency, false, map[string]string{
				"request_id": req.ID,
				"abandoned":  "caller_deadline",
			})
			return nil, ctx.Err()
		}

		d.breaker.Record(candidate.PlatformID, false)
		d.recorder.Dispatch(candidate.PlatformID, req.CallerID, latency, false, map[string]string{
			"request_id": req.ID,
			"error":      err.Error(),
		})
		attempts = append(attempts, Attempt{
			Platform:  candidate.PlatformID,
			Error:     err.Error(),
			LatencyMS: latency.Milliseconds(),
		})
		log.Printf("[dispatch] platform %s failed (attempt %d): %v", candidate.PlatformID, len(attempts), err)
	}

	if len(attempts) == 0 {
		return nil, ErrNoCandidates
	}
	return nil, &FailedError{Attempts: attempts}
}
