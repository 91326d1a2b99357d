package cache

import (
	"testing"

	"github.com/zen-systems/unigate/pkg/schema"
)

func retrievalFeatures(hint schema.PerformanceHint) *schema.IntentFeatures {
	return &schema.IntentFeatures{
		Category:     schema.CategoryRetrieval,
		Capabilities: []string{"document_qa"},
		Hint:         hint,
	}
}

func TestFingerprint_Stable(t *testing.T) {
	req := &schema.Request{
		Query:   "summarize the contract",
		Context: map[string]string{"workspace": "legal", "lang": "en"},
		History: []schema.Turn{{Role: "user", Content: "hello"}},
	}

	first := Fingerprint(retrievalFeatures(schema.HintBalanced), req)
	if len(first) != 32 {
		t.Fatalf("Fingerprint() length = %d, want 32", len(first))
	}
	for i := 0; i < 10; i++ {
		if got := Fingerprint(retrievalFeatures(schema.HintBalanced), req); got != first {
			t.Fatalf("Fingerprint() run %d = %s, want %s", i, got, first)
		}
	}
}

func TestFingerprint_IgnoresCallerAndWhitespace(t *testing.T) {
	base := &schema.Request{CallerID: "team-a", Query: "summarize the contract"}
	other := &schema.Request{CallerID: "team-b", Query: "  Summarize   THE contract "}

	a := Fingerprint(retrievalFeatures(schema.HintBalanced), base)
	b := Fingerprint(retrievalFeatures(schema.HintBalanced), other)
	if a != b {
		t.Errorf("Fingerprint() differs across caller/whitespace: %s vs %s", a, b)
	}
}

func TestFingerprint_SensitiveInputs(t *testing.T) {
	base := &schema.Request{
		Query:   "summarize the contract",
		Context: map[string]string{"workspace": "legal"},
	}
	baseKey := Fingerprint(retrievalFeatures(schema.HintBalanced), base)

	tests := []struct {
		name     string
		features *schema.IntentFeatures
		req      *schema.Request
	}{
		{
			name:     "different query",
			features: retrievalFeatures(schema.HintBalanced),
			req:      &schema.Request{Query: "summarize the invoice", Context: base.Context},
		},
		{
			name:     "different hint",
			features: retrievalFeatures(schema.HintFast),
			req:      base,
		},
		{
			name: "different category",
			features: &schema.IntentFeatures{
				Category: schema.CategoryAutomation,
				Hint:     schema.HintBalanced,
			},
			req: base,
		},
		{
			name:     "different context value",
			features: retrievalFeatures(schema.HintBalanced),
			req:      &schema.Request{Query: base.Query, Context: map[string]string{"workspace": "sales"}},
		},
		{
			name:     "history added",
			features: retrievalFeatures(schema.HintBalanced),
			req: &schema.Request{
				Query:   base.Query,
				Context: base.Context,
				History: []schema.Turn{{Role: "user", Content: "about clause 7"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.features, tt.req); got == baseKey {
				t.Errorf("Fingerprint() = %s, want different from base", got)
			}
		})
	}
}

func TestFingerprint_HistoryWindowBounded(t *testing.T) {
	old := []schema.Turn{
		{Role: "user", Content: "ancient turn one"},
		{Role: "assistant", Content: "ancient turn two"},
	}
	recent := []schema.Turn{
		{Role: "user", Content: "turn a"},
		{Role: "assistant", Content: "turn b"},
		{Role: "user", Content: "turn c"},
		{Role: "assistant", Content: "turn d"},
	}

	withOld := &schema.Request{Query: "summarize", History: append(append([]schema.Turn{}, old...), recent...)}
	withoutOld := &schema.Request{Query: "summarize", History: recent}

	a := Fingerprint(retrievalFeatures(schema.HintBalanced), withOld)
	b := Fingerprint(retrievalFeatures(schema.HintBalanced), withoutOld)
	if a != b {
		t.Errorf("Fingerprint() counts turns beyond the window: %s vs %s", a, b)
	}
}
