// Package unify maps heterogeneous adapter payloads into the single
// response envelope callers parse.
package unify

import (
	"strconv"
	"time"

	"github.com/zen-systems/unigate/pkg/adapter"
	"github.com/zen-systems/unigate/pkg/dispatch"
	"github.com/zen-systems/unigate/pkg/schema"
)

// Unify converts a dispatch outcome into the unified envelope. Payload
// fields without a common slot land in the extension map so nothing is
// dropped even though the top-level shape is uniform.
func Unify(outcome *dispatch.Outcome, features *schema.IntentFeatures) *schema.UnifiedResponse {
	resp := &schema.UnifiedResponse{
		Platform:   outcome.PlatformID,
		Category:   features.Category,
		Answer:     adapter.AnswerOf(outcome.Payload),
		Sources:    adapter.SourcesOf(outcome.Payload),
		Extensions: extensions(outcome.Payload),
		Metrics: schema.MetricsSnapshot{
			LatencyMS:  outcome.Latency.Milliseconds(),
			Attempts:   outcome.Attempt,
			RouteScore: outcome.Score,
		},
		Timestamp: time.Now().UTC(),
	}
	if resp.Sources == nil {
		resp.Sources = []schema.Source{}
	}
	return resp
}

// extensions flattens variant-specific fields into the opaque map.
func extensions(p adapter.Payload) map[string]string {
	ext := map[string]string{"payload_kind": string(p.Kind())}

	switch v := p.(type) {
	case *adapter.ConversationTurn:
		if v.ConversationID != "" {
			ext["conversation_id"] = v.ConversationID
		}
		merge(ext, v.Meta)
	case *adapter.RetrievalHits:
		ext["hit_count"] = strconv.Itoa(len(v.Hits))
		merge(ext, v.Meta)
	case *adapter.AutomationRun:
		if v.RunID != "" {
			ext["run_id"] = v.RunID
		}
		ext["run_status"] = v.Status
		ext["run_steps"] = strconv.Itoa(v.Steps)
		merge(ext, v.Meta)
	case *adapter.FlowTrace:
		if v.FlowID != "" {
			ext["flow_id"] = v.FlowID
		}
		ext["node_count"] = strconv.Itoa(len(v.Nodes))
		merge(ext, v.Meta)
	}
	return ext
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
