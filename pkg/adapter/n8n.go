package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// N8NAdapter implements the Adapter interface for an n8n task-automation
// engine. Requests trigger a webhook workflow and return its run summary.
type N8NAdapter struct {
	baseURL    string
	apiKey     string
	webhook    string
	httpClient *http.Client
}

type n8nRequest struct {
	Query    string            `json:"query"`
	Caller   string            `json:"caller"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type n8nResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	Steps       []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"steps,omitempty"`
}

// NewN8NAdapter creates a new n8n adapter. webhook names the workflow
// entry point under /webhook/.
func NewN8NAdapter(baseURL, apiKey, webhook string) (*N8NAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("n8n endpoint is required")
	}
	if webhook == "" {
		webhook = "unigate"
	}
	return &N8NAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		webhook:    webhook,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *N8NAdapter) Name() string {
	return "n8n"
}

// Invoke triggers the configured webhook workflow.
func (a *N8NAdapter) Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error) {
	body := n8nRequest{
		Query:    req.Query,
		Caller:   req.CallerID,
		Metadata: req.Context,
	}

	var resp n8nResponse
	url := fmt.Sprintf("%s/webhook/%s", a.baseURL, a.webhook)
	if err := postJSON(ctx, a.httpClient, a.Name(), url, a.apiKey, body, &resp, timeout); err != nil {
		return nil, err
	}

	if resp.Status == "error" {
		return nil, &Error{Platform: a.Name(), Err: fmt.Errorf("workflow failed: %s", resp.Summary)}
	}

	summary := resp.Summary
	if summary == "" {
		summary = fmt.Sprintf("Workflow %s finished with status %s.", a.webhook, resp.Status)
	}
	return &AutomationRun{
		Summary: summary,
		RunID:   resp.ExecutionID,
		Status:  resp.Status,
		Steps:   len(resp.Steps),
	}, nil
}

// HealthPing checks the instance health endpoint.
func (a *N8NAdapter) HealthPing(ctx context.Context) bool {
	return pingURL(ctx, a.httpClient, a.baseURL+"/healthz")
}
