package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// LangflowAdapter implements the Adapter interface for a Langflow
// visual-flow engine.
type LangflowAdapter struct {
	baseURL    string
	apiKey     string
	flowID     string
	httpClient *http.Client
}

type langflowRequest struct {
	InputValue string            `json:"input_value"`
	InputType  string            `json:"input_type"`
	OutputType string            `json:"output_type"`
	Tweaks     map[string]string `json:"tweaks,omitempty"`
}

type langflowResponse struct {
	SessionID string `json:"session_id"`
	Outputs   []struct {
		Outputs []struct {
			Results struct {
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
			} `json:"results"`
			Component string `json:"component_display_name"`
		} `json:"outputs"`
	} `json:"outputs"`
}

// NewLangflowAdapter creates a new Langflow adapter bound to one flow.
func NewLangflowAdapter(baseURL, apiKey, flowID string) (*LangflowAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("langflow endpoint is required")
	}
	if flowID == "" {
		return nil, fmt.Errorf("langflow flow id is required")
	}
	return &LangflowAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		flowID:     flowID,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *LangflowAdapter) Name() string {
	return "langflow"
}

// Invoke runs the flow with the query as chat input.
func (a *LangflowAdapter) Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error) {
	body := langflowRequest{
		InputValue: req.Query,
		InputType:  "chat",
		OutputType: "chat",
		Tweaks:     req.Context,
	}

	var resp langflowResponse
	url := fmt.Sprintf("%s/run/%s", a.baseURL, a.flowID)
	if err := postJSON(ctx, a.httpClient, a.Name(), url, a.apiKey, body, &resp, timeout); err != nil {
		return nil, err
	}

	trace := &FlowTrace{
		FlowID: a.flowID,
		Meta:   map[string]string{"session_id": resp.SessionID},
	}
	for _, run := range resp.Outputs {
		for _, out := range run.Outputs {
			if text := out.Results.Message.Text; text != "" && trace.Output == "" {
				trace.Output = text
			}
			trace.Nodes = append(trace.Nodes, NodeRun{Node: out.Component, Status: "completed"})
		}
	}
	if trace.Output == "" {
		return nil, &Error{Platform: a.Name(), Err: fmt.Errorf("flow produced no output")}
	}
	return trace, nil
}

// HealthPing checks the instance health endpoint.
func (a *LangflowAdapter) HealthPing(ctx context.Context) bool {
	return pingURL(ctx, a.httpClient, a.baseURL+"/health")
}
