package telemetry

import (
	"sync"
	"testing"
	"time"
)

// captureSink retains emitted events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestRecorder_DispatchAggregates(t *testing.T) {
	r := NewRecorder()

	r.Dispatch("ragflow", "team-a", 100*time.Millisecond, true, nil)
	r.Dispatch("ragflow", "team-a", 300*time.Millisecond, false, nil)
	r.Dispatch("dify", "team-b", 50*time.Millisecond, true, nil)

	stats := r.Stats()
	rf := stats["ragflow"]
	if rf.Dispatches != 2 {
		t.Errorf("ragflow dispatches = %d, want 2", rf.Dispatches)
	}
	if rf.Failures != 1 {
		t.Errorf("ragflow failures = %d, want 1", rf.Failures)
	}
	if rf.SuccessRate != 0.5 {
		t.Errorf("ragflow success rate = %v, want 0.5", rf.SuccessRate)
	}
	if rf.AvgLatencyMS != 200 {
		t.Errorf("ragflow avg latency = %d, want 200", rf.AvgLatencyMS)
	}
	if stats["dify"].Dispatches != 1 {
		t.Errorf("dify dispatches = %d, want 1", stats["dify"].Dispatches)
	}
}

func TestRecorder_CacheCounters(t *testing.T) {
	r := NewRecorder()

	r.CacheHit("team-a", "k1")
	r.CacheHit("team-a", "k2")
	r.CacheMiss("team-a", "k3")
	r.AdmissionRejected("team-b")

	hits, misses, rejected := r.CacheStats()
	if hits != 2 || misses != 1 || rejected != 1 {
		t.Errorf("CacheStats() = %d,%d,%d, want 2,1,1", hits, misses, rejected)
	}
}

func TestRecorder_FansOutToSinks(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	r := NewRecorder(a, b)

	r.Dispatch("ragflow", "team-a", time.Millisecond, true, map[string]string{"request_id": "req-1"})
	r.CircuitTransition("ragflow", "closed", "open")

	for _, s := range []*captureSink{a, b} {
		if len(s.events) != 2 {
			t.Fatalf("sink received %d events, want 2", len(s.events))
		}
		if s.events[0].Kind != KindDispatch {
			t.Errorf("event 0 kind = %s, want %s", s.events[0].Kind, KindDispatch)
		}
		if s.events[0].Detail["request_id"] != "req-1" {
			t.Errorf("event 0 detail = %v, want request_id", s.events[0].Detail)
		}
		if s.events[1].Kind != KindCircuitTransition {
			t.Errorf("event 1 kind = %s, want %s", s.events[1].Kind, KindCircuitTransition)
		}
		if s.events[1].Detail["to"] != "open" {
			t.Errorf("transition detail = %v, want to=open", s.events[1].Detail)
		}
	}
}

func TestRecorder_CloseClosesSinks(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	r := NewRecorder(a, b)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close() did not close every sink")
	}
}
