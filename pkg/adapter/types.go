package adapter

import "github.com/zen-systems/unigate/pkg/schema"

// PayloadKind tags the concrete shape of an adapter payload.
type PayloadKind string

const (
	KindConversation PayloadKind = "conversation_turn"
	KindRetrieval    PayloadKind = "retrieval_hits"
	KindAutomation   PayloadKind = "automation_run"
	KindFlowTrace    PayloadKind = "flow_trace"
)

// Payload is the tagged union over the known platform response shapes.
// The unifier maps each variant into the common response envelope; the
// Meta map carries platform-specific fields that have no common slot.
type Payload interface {
	Kind() PayloadKind
}

// ConversationTurn is one answer from a conversational-app engine.
type ConversationTurn struct {
	Answer         string            `json:"answer"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

func (ConversationTurn) Kind() PayloadKind { return KindConversation }

// Hit is one retrieved chunk from a document-retrieval engine.
type Hit struct {
	Content  string  `json:"content"`
	Document string  `json:"document,omitempty"`
	Score    float64 `json:"score"`
}

// RetrievalHits is the ranked hit list from a document-retrieval engine.
type RetrievalHits struct {
	Answer string            `json:"answer"`
	Hits   []Hit             `json:"hits"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (RetrievalHits) Kind() PayloadKind { return KindRetrieval }

// AutomationRun summarizes one workflow execution on a task-automation engine.
type AutomationRun struct {
	Summary string            `json:"summary"`
	RunID   string            `json:"run_id,omitempty"`
	Status  string            `json:"status"`
	Steps   int               `json:"steps"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (AutomationRun) Kind() PayloadKind { return KindAutomation }

// NodeRun is one executed node in a visual-flow trace.
type NodeRun struct {
	Node   string `json:"node"`
	Status string `json:"status"`
}

// FlowTrace is the execution trace returned by a visual-flow engine.
type FlowTrace struct {
	Output string            `json:"output"`
	FlowID string            `json:"flow_id,omitempty"`
	Nodes  []NodeRun         `json:"nodes,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (FlowTrace) Kind() PayloadKind { return KindFlowTrace }

// AnswerOf extracts the best common answer text from a payload.
func AnswerOf(p Payload) string {
	switch v := p.(type) {
	case *ConversationTurn:
		return v.Answer
	case *RetrievalHits:
		return v.Answer
	case *AutomationRun:
		return v.Summary
	case *FlowTrace:
		return v.Output
	default:
		return ""
	}
}

// SourcesOf extracts source attributions from a payload, if any.
func SourcesOf(p Payload) []schema.Source {
	hits, ok := p.(*RetrievalHits)
	if !ok {
		return nil
	}
	sources := make([]schema.Source, 0, len(hits.Hits))
	for _, h := range hits.Hits {
		sources = append(sources, schema.Source{
			Title:     h.Document,
			Reference: h.Document,
			Score:     h.Score,
		})
	}
	return sources
}
