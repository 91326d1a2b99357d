package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// MockAdapter returns deterministic payloads for local runs and tests.
type MockAdapter struct {
	name      string
	kind      PayloadKind
	responses map[string]string
	Err       error
	Healthy   bool
	Delay     time.Duration
	Calls     int
}

// NewMockAdapter creates a mock adapter producing the given payload kind.
func NewMockAdapter(name string, kind PayloadKind) *MockAdapter {
	return &MockAdapter{
		name:      name,
		kind:      kind,
		responses: make(map[string]string),
		Healthy:   true,
	}
}

// WithResponse registers a canned answer for an exact query.
func (a *MockAdapter) WithResponse(query, answer string) *MockAdapter {
	a.responses[query] = answer
	return a
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return a.name
}

// Invoke returns the canned answer, or a deterministic echo.
func (a *MockAdapter) Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error) {
	a.Calls++
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}

	answer, ok := a.responses[req.Query]
	if !ok {
		answer = fmt.Sprintf("mock %s response: %s", a.name, req.Query)
	}

	switch a.kind {
	case KindRetrieval:
		return &RetrievalHits{
			Answer: answer,
			Hits:   []Hit{{Content: answer, Document: "mock.txt", Score: 0.9}},
		}, nil
	case KindAutomation:
		return &AutomationRun{Summary: answer, RunID: "mock-run", Status: "success", Steps: 1}, nil
	case KindFlowTrace:
		return &FlowTrace{Output: answer, FlowID: "mock-flow", Nodes: []NodeRun{{Node: "start", Status: "completed"}}}, nil
	default:
		return &ConversationTurn{Answer: answer, ConversationID: "mock-conv"}, nil
	}
}

// HealthPing reports the configured health.
func (a *MockAdapter) HealthPing(ctx context.Context) bool {
	return a.Healthy
}
