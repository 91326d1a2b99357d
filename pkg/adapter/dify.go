package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// DifyAdapter implements the Adapter interface for a Dify
// conversational-app engine.
type DifyAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// difyRequest is the chat-messages request shape.
type difyRequest struct {
	Inputs       map[string]string `json:"inputs"`
	Query        string            `json:"query"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
}

// difyResponse is the blocking-mode chat-messages response shape.
type difyResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	Metadata       struct {
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
		RetrieverResources []struct {
			DocumentName string  `json:"document_name"`
			Content      string  `json:"content"`
			Score        float64 `json:"score"`
		} `json:"retriever_resources"`
	} `json:"metadata"`
}

// NewDifyAdapter creates a new Dify adapter.
func NewDifyAdapter(baseURL, apiKey string) (*DifyAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("dify endpoint is required")
	}
	return &DifyAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *DifyAdapter) Name() string {
	return "dify"
}

// Invoke sends the query as one blocking chat turn.
func (a *DifyAdapter) Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error) {
	body := difyRequest{
		Inputs:       req.Context,
		Query:        req.Query,
		ResponseMode: "blocking",
		User:         req.CallerID,
	}
	if body.Inputs == nil {
		body.Inputs = map[string]string{}
	}

	var resp difyResponse
	if err := postJSON(ctx, a.httpClient, a.Name(), a.baseURL+"/chat-messages", a.apiKey, body, &resp, timeout); err != nil {
		return nil, err
	}

	if resp.Answer == "" {
		return nil, &Error{Platform: a.Name(), Err: fmt.Errorf("empty answer")}
	}

	meta := map[string]string{}
	if resp.Metadata.Usage.TotalTokens > 0 {
		meta["total_tokens"] = strconv.Itoa(resp.Metadata.Usage.TotalTokens)
	}
	return &ConversationTurn{
		Answer:         resp.Answer,
		ConversationID: resp.ConversationID,
		Meta:           meta,
	}, nil
}

// HealthPing checks the app parameters endpoint.
func (a *DifyAdapter) HealthPing(ctx context.Context) bool {
	return pingURL(ctx, a.httpClient, a.baseURL+"/parameters")
}
