// Package telemetry emits structured gateway events to external sinks
// and keeps the small in-process aggregates served by /v1/stats. The
// gateway owns neither storage nor visualization of events; sinks hand
// them off.
package telemetry

import (
	"sync"
	"time"
)

// Event kinds.
const (
	KindDispatch          = "dispatch"
	KindCircuitTransition = "circuit_transition"
	KindCacheHit          = "cache_hit"
	KindCacheMiss         = "cache_miss"
	KindAdmissionRejected = "admission_rejected"
)

// Event is one structured telemetry record.
type Event struct {
	Kind      string            `json:"kind"`
	Time      time.Time         `json:"time"`
	Platform  string            `json:"platform,omitempty"`
	CallerID  string            `json:"caller_id,omitempty"`
	LatencyMS int64             `json:"latency_ms,omitempty"`
	Success   bool              `json:"success"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(event Event)
	Close() error
}

// PlatformStats are the aggregates retained per platform. Individual
// DispatchOutcomes are discarded once recorded.
type PlatformStats struct {
	Dispatches   int64   `json:"dispatches"`
	Failures     int64   `json:"failures"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS int64   `json:"avg_latency_ms"`
}

// Recorder fans events out to sinks and maintains aggregates.
type Recorder struct {
	mu     sync.Mutex
	sinks  []Sink
	now    func() time.Time
	stats  map[string]*platformAgg
	hits   int64
	misses int64
	shed   int64
}

type platformAgg struct {
	dispatches   int64
	failures     int64
	totalLatency time.Duration
}

// NewRecorder creates a recorder emitting to the given sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{
		sinks: sinks,
		now:   time.Now,
		stats: map[string]*platformAgg{},
	}
}

func (r *Recorder) emit(e Event) {
	for _, s := range r.sinks {
		s.Emit(e)
	}
}

// Dispatch records one adapter attempt.
func (r *Recorder) Dispatch(platform, callerID string, latency time.Duration, success bool, detail map[string]string) {
	r.mu.Lock()
	agg, ok := r.stats[platform]
	if !ok {
		agg = &platformAgg{}
		r.stats[platform] = agg
	}
	agg.dispatches++
	agg.totalLatency += latency
	if !success {
		agg.failures++
	}
	r.mu.Unlock()

	r.emit(Event{
		Kind:      KindDispatch,
		Time:      r.now(),
		Platform:  platform,
		CallerID:  callerID,
		LatencyMS: latency.Milliseconds(),
		Success:   success,
		Detail:    detail,
	})
}

// CircuitTransition records a breaker state change.
func (r *Recorder) CircuitTransition(platform, from, to string) {
	r.emit(Event{
		Kind:     KindCircuitTransition,
		Time:     r.now(),
		Platform: platform,
		Success:  to == "closed",
		Detail:   map[string]string{"from": from, "to": to},
	})
}

// CacheHit records a cache hit for a request key.
func (r *Recorder) CacheHit(callerID, key string) {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
	r.emit(Event{
		Kind:     KindCacheHit,
		Time:     r.now(),
		CallerID: callerID,
		Success:  true,
		Detail:   map[string]string{"key": key},
	})
}

// CacheMiss records a cache miss for a request key.
func (r *Recorder) CacheMiss(callerID, key string) {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
	r.emit(Event{
		Kind:     KindCacheMiss,
		Time:     r.now(),
		CallerID: callerID,
		Detail:   map[string]string{"key": key},
	})
}

// AdmissionRejected records a shed request.
func (r *Recorder) AdmissionRejected(callerID string) {
	r.mu.Lock()
	r.shed++
	r.mu.Unlock()
	r.emit(Event{
		Kind:     KindAdmissionRejected,
		Time:     r.now(),
		CallerID: callerID,
	})
}

// Stats returns a snapshot of per-platform aggregates.
func (r *Recorder) Stats() map[string]PlatformStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]PlatformStats, len(r.stats))
	for platform, agg := range r.stats {
		stats := PlatformStats{
			Dispatches: agg.dispatches,
			Failures:   agg.failures,
		}
		if agg.dispatches > 0 {
			stats.SuccessRate = float64(agg.dispatches-agg.failures) / float64(agg.dispatches)
			stats.AvgLatencyMS = (agg.totalLatency / time.Duration(agg.dispatches)).Milliseconds()
		}
		out[platform] = stats
	}
	return out
}

// CacheStats returns total hits, misses, and admission rejections.
func (r *Recorder) CacheStats() (hits, misses, rejected int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits, r.misses, r.shed
}

// Close closes every sink.
func (r *Recorder) Close() error {
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
