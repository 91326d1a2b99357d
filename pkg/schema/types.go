package schema

import (
	"fmt"
	"time"
)

// PerformanceHint expresses the caller's latency/quality preference.
type PerformanceHint string

const (
	HintFast     PerformanceHint = "fast"
	HintBalanced PerformanceHint = "balanced"
	HintAccurate PerformanceHint = "accurate"
)

// ParsePerformanceHint validates a hint string. Empty defaults to balanced.
func ParsePerformanceHint(s string) (PerformanceHint, error) {
	switch PerformanceHint(s) {
	case "":
		return HintBalanced, nil
	case HintFast, HintBalanced, HintAccurate:
		return PerformanceHint(s), nil
	default:
		return "", fmt.Errorf("unknown performance hint %q", s)
	}
}

// TaskCategory is the normalized category assigned to a request.
type TaskCategory string

const (
	CategoryConversational TaskCategory = "conversational"
	CategoryRetrieval      TaskCategory = "retrieval"
	CategoryAutomation     TaskCategory = "automation"
	CategoryVisualFlow     TaskCategory = "visual_flow"
	CategoryUnknown        TaskCategory = "unknown"
)

// Categories lists every valid task category in a stable order.
func Categories() []TaskCategory {
	return []TaskCategory{
		CategoryConversational,
		CategoryRetrieval,
		CategoryAutomation,
		CategoryVisualFlow,
		CategoryUnknown,
	}
}

// ParseTaskCategory validates a category string.
func ParseTaskCategory(s string) (TaskCategory, error) {
	for _, c := range Categories() {
		if TaskCategory(s) == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown task category %q", s)
}

// LatencyClass ranks a platform's typical response time. Lower is faster.
type LatencyClass string

const (
	LatencyLow    LatencyClass = "low"
	LatencyMedium LatencyClass = "medium"
	LatencyHigh   LatencyClass = "high"
)

// Rank returns the ordinal of the class, low first.
func (l LatencyClass) Rank() int {
	switch l {
	case LatencyLow:
		return 0
	case LatencyMedium:
		return 1
	default:
		return 2
	}
}

// ParseLatencyClass validates a latency class string.
func ParseLatencyClass(s string) (LatencyClass, error) {
	switch LatencyClass(s) {
	case LatencyLow, LatencyMedium, LatencyHigh:
		return LatencyClass(s), nil
	default:
		return "", fmt.Errorf("unknown latency class %q", s)
	}
}

// CostClass ranks a platform's relative cost per request. Lower is cheaper.
type CostClass string

const (
	CostLow    CostClass = "low"
	CostMedium CostClass = "medium"
	CostHigh   CostClass = "high"
)

// Rank returns the ordinal of the class, low first.
func (c CostClass) Rank() int {
	switch c {
	case CostLow:
		return 0
	case CostMedium:
		return 1
	default:
		return 2
	}
}

// ParseCostClass validates a cost class string.
func ParseCostClass(s string) (CostClass, error) {
	switch CostClass(s) {
	case CostLow, CostMedium, CostHigh:
		return CostClass(s), nil
	default:
		return "", fmt.Errorf("unknown cost class %q", s)
	}
}

// Turn is one prior exchange supplied as conversational context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the immutable inbound request. Fields are fixed once the
// gateway accepts the request; nothing downstream mutates it.
type Request struct {
	ID         string            `json:"id"`
	CallerID   string            `json:"caller_id"`
	Query      string            `json:"query"`
	Context    map[string]string `json:"context,omitempty"`
	History    []Turn            `json:"history,omitempty"`
	Hint       PerformanceHint   `json:"performance_hint"`
	ReceivedAt time.Time         `json:"received_at"`
}

// IntentFeatures is the analyzer's normalized view of a request.
// Created once per request, never mutated.
type IntentFeatures struct {
	Category     TaskCategory    `json:"category"`
	Capabilities []string        `json:"capabilities"` // sorted, deduplicated
	Complexity   float64         `json:"complexity"`   // 0.0 - 1.0
	Hint         PerformanceHint `json:"performance_hint"`
}

// PlatformProfile describes one registered backend platform's declared
// strengths and classes. Profiles are immutable snapshots; a reload
// produces a new profile rather than editing one in place.
type PlatformProfile struct {
	ID        string       `json:"id"`
	Strengths []string     `json:"strengths"`
	Latency   LatencyClass `json:"latency_class"`
	Cost      CostClass    `json:"cost_class"`
	Tier      int          `json:"enterprise_tier"` // 0 - 3
}

// HasStrength reports whether the profile declares the given capability tag.
func (p *PlatformProfile) HasStrength(tag string) bool {
	for _, s := range p.Strengths {
		if s == tag {
			return true
		}
	}
	return false
}

// ScoreResult is one candidate's score for one routing decision.
type ScoreResult struct {
	PlatformID  string  `json:"platform_id"`
	Score       float64 `json:"score"`
	Capability  float64 `json:"capability_match"`
	Performance float64 `json:"performance_match"`
	Enterprise  float64 `json:"enterprise_fit"`
	CostFit     float64 `json:"cost_fit"`
}

// Source attributes part of an answer to a backing document or node.
type Source struct {
	Title     string  `json:"title,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// MetricsSnapshot records how a response was produced.
type MetricsSnapshot struct {
	LatencyMS  int64   `json:"latency_ms"`
	Attempts   int     `json:"attempts"`
	RouteScore float64 `json:"route_score"`
}

// UnifiedResponse is the single envelope returned to callers regardless of
// which backend platform produced the answer.
type UnifiedResponse struct {
	Platform   string            `json:"platform"`
	Category   TaskCategory      `json:"category"`
	Answer     string            `json:"answer"`
	Sources    []Source          `json:"sources"`
	Extensions map[string]string `json:"extensions,omitempty"`
	Metrics    MetricsSnapshot   `json:"metrics"`
	Timestamp  time.Time         `json:"timestamp"`
	Cached     bool              `json:"cached"`
}
