package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

func testRequest() *schema.Request {
	return &schema.Request{
		ID:       "req-1",
		CallerID: "team-a",
		Query:    "summarize the contract",
		Context:  map[string]string{"workspace": "legal"},
	}
}

func TestDifyAdapter_Invoke(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat-messages" {
			t.Errorf("path = %s, want /chat-messages", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var body difyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.ResponseMode != "blocking" {
			t.Errorf("response_mode = %s, want blocking", body.ResponseMode)
		}
		if body.User != "team-a" {
			t.Errorf("user = %s, want team-a", body.User)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"answer":          "the contract limits liability",
			"conversation_id": "conv-1",
			"metadata":        map[string]any{"usage": map[string]any{"total_tokens": 42}},
		})
	}))
	defer ts.Close()

	a, err := NewDifyAdapter(ts.URL, "secret")
	if err != nil {
		t.Fatalf("NewDifyAdapter() error = %v", err)
	}

	payload, err := a.Invoke(context.Background(), testRequest(), time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	turn, ok := payload.(*ConversationTurn)
	if !ok {
		t.Fatalf("Invoke() payload = %T, want *ConversationTurn", payload)
	}
	if turn.Answer != "the contract limits liability" {
		t.Errorf("Answer = %q", turn.Answer)
	}
	if turn.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want conv-1", turn.ConversationID)
	}
	if turn.Meta["total_tokens"] != "42" {
		t.Errorf("Meta = %v, want total_tokens 42", turn.Meta)
	}
}

func TestDifyAdapter_EmptyAnswerIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"answer": ""})
	}))
	defer ts.Close()

	a, _ := NewDifyAdapter(ts.URL, "")
	if _, err := a.Invoke(context.Background(), testRequest(), time.Second); err == nil {
		t.Error("Invoke() error = nil, want error for empty answer")
	}
}

func TestRAGFlowAdapter_Invoke(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/retrieval" {
			t.Errorf("path = %s, want /retrieval", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"total": 2,
				"chunks": []map[string]any{
					{"content": "clause 7 caps damages", "document_name": "contract.pdf", "similarity": 0.92},
					{"content": "appendix b defines terms", "document_name": "contract.pdf", "similarity": 0.81},
				},
			},
		})
	}))
	defer ts.Close()

	a, err := NewRAGFlowAdapter(ts.URL, "key")
	if err != nil {
		t.Fatalf("NewRAGFlowAdapter() error = %v", err)
	}

	payload, err := a.Invoke(context.Background(), testRequest(), time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	hits, ok := payload.(*RetrievalHits)
	if !ok {
		t.Fatalf("Invoke() payload = %T, want *RetrievalHits", payload)
	}
	if len(hits.Hits) != 2 {
		t.Fatalf("Hits = %d, want 2", len(hits.Hits))
	}
	if hits.Hits[0].Document != "contract.pdf" || hits.Hits[0].Score != 0.92 {
		t.Errorf("Hits[0] = %+v", hits.Hits[0])
	}
	if hits.Answer == "" {
		t.Error("Answer empty, want synthesized text")
	}
	if hits.Meta["total_chunks"] != "2" {
		t.Errorf("Meta = %v, want total_chunks 2", hits.Meta)
	}
}

func TestRAGFlowAdapter_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 102, "message": "dataset not found"})
	}))
	defer ts.Close()

	a, _ := NewRAGFlowAdapter(ts.URL, "")
	_, err := a.Invoke(context.Background(), testRequest(), time.Second)
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("Invoke() error = %T, want *Error", err)
	}
	if IsTransient(err) {
		t.Error("IsTransient() = true for an API-level error")
	}
}

func TestN8NAdapter_Invoke(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webhook/invoices" {
			t.Errorf("path = %s, want /webhook/invoices", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"execution_id": "exec-7",
			"status":       "success",
			"summary":      "3 invoices processed",
			"steps": []map[string]any{
				{"name": "fetch", "status": "success"},
				{"name": "transform", "status": "success"},
				{"name": "store", "status": "success"},
			},
		})
	}))
	defer ts.Close()

	a, err := NewN8NAdapter(ts.URL, "", "invoices")
	if err != nil {
		t.Fatalf("NewN8NAdapter() error = %v", err)
	}

	payload, err := a.Invoke(context.Background(), testRequest(), time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	run, ok := payload.(*AutomationRun)
	if !ok {
		t.Fatalf("Invoke() payload = %T, want *AutomationRun", payload)
	}
	if run.RunID != "exec-7" || run.Status != "success" || run.Steps != 3 {
		t.Errorf("run = %+v", run)
	}
}

func TestN8NAdapter_WorkflowError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "error", "summary": "node crashed"})
	}))
	defer ts.Close()

	a, _ := NewN8NAdapter(ts.URL, "", "")
	if _, err := a.Invoke(context.Background(), testRequest(), time.Second); err == nil {
		t.Error("Invoke() error = nil, want workflow error")
	}
}

func TestLangflowAdapter_Invoke(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run/flow-9" {
			t.Errorf("path = %s, want /run/flow-9", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"session_id": "sess-1",
			"outputs": []map[string]any{
				{
					"outputs": []map[string]any{
						{
							"results":                map[string]any{"message": map[string]any{"text": "flow says hi"}},
							"component_display_name": "ChatOutput",
						},
					},
				},
			},
		})
	}))
	defer ts.Close()

	a, err := NewLangflowAdapter(ts.URL, "", "flow-9")
	if err != nil {
		t.Fatalf("NewLangflowAdapter() error = %v", err)
	}

	payload, err := a.Invoke(context.Background(), testRequest(), time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	trace, ok := payload.(*FlowTrace)
	if !ok {
		t.Fatalf("Invoke() payload = %T, want *FlowTrace", payload)
	}
	if trace.Output != "flow says hi" {
		t.Errorf("Output = %q", trace.Output)
	}
	if len(trace.Nodes) != 1 || trace.Nodes[0].Node != "ChatOutput" {
		t.Errorf("Nodes = %+v", trace.Nodes)
	}
	if trace.Meta["session_id"] != "sess-1" {
		t.Errorf("Meta = %v, want session_id", trace.Meta)
	}
}

func TestLangflowAdapter_NoOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"outputs": []any{}})
	}))
	defer ts.Close()

	a, _ := NewLangflowAdapter(ts.URL, "", "flow-9")
	if _, err := a.Invoke(context.Background(), testRequest(), time.Second); err == nil {
		t.Error("Invoke() error = nil, want error for empty output")
	}
}

func TestPostJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{name: "rate limited", status: 429, wantTransient: true},
		{name: "server error", status: 503, wantTransient: true},
		{name: "bad request", status: 400, wantTransient: false},
		{name: "unauthorized", status: 401, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			a, _ := NewDifyAdapter(ts.URL, "")
			_, err := a.Invoke(context.Background(), testRequest(), time.Second)

			var aerr *Error
			if !errors.As(err, &aerr) {
				t.Fatalf("Invoke() error = %T, want *Error", err)
			}
			if aerr.Status != tt.status {
				t.Errorf("Status = %d, want %d", aerr.Status, tt.status)
			}
			if got := IsTransient(err); got != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.wantTransient)
			}
		})
	}
}

func TestPostJSON_ConnectionRefusedIsTransient(t *testing.T) {
	a, _ := NewDifyAdapter("http://127.0.0.1:1", "")
	_, err := a.Invoke(context.Background(), testRequest(), time.Second)
	if err == nil {
		t.Fatal("Invoke() error = nil, want transport error")
	}
	if !IsTransient(err) {
		t.Error("IsTransient() = false for a transport error")
	}
}

func TestHealthPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parameters" {
			t.Errorf("path = %s, want /parameters", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	a, _ := NewDifyAdapter(healthy.URL, "")
	if !a.HealthPing(context.Background()) {
		t.Error("HealthPing() = false against a healthy endpoint")
	}

	down, _ := NewDifyAdapter("http://127.0.0.1:1", "")
	if down.HealthPing(context.Background()) {
		t.Error("HealthPing() = true against a dead endpoint")
	}
}

func TestMockAdapter(t *testing.T) {
	a := NewMockAdapter("dify", KindConversation).WithResponse("ping", "pong")

	payload, err := a.Invoke(context.Background(), &schema.Request{Query: "ping"}, time.Second)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	turn := payload.(*ConversationTurn)
	if turn.Answer != "pong" {
		t.Errorf("Answer = %q, want pong", turn.Answer)
	}
	if a.Calls != 1 {
		t.Errorf("Calls = %d, want 1", a.Calls)
	}
}
