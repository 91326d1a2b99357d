package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// RAGFlowAdapter implements the Adapter interface for a RAGFlow
// document-retrieval engine. RAGFlow returns ranked chunks; the adapter
// synthesizes a short answer from the top chunks so the payload carries
// both the answer and its attributions.
type RAGFlowAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	topK       int
}

type ragflowRequest struct {
	Question            string  `json:"question"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type ragflowResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"message,omitempty"`
	Data struct {
		Chunks []struct {
			Content      string  `json:"content"`
			DocumentName string  `json:"document_name"`
			Similarity   float64 `json:"similarity"`
		} `json:"chunks"`
		Total int `json:"total"`
	} `json:"data"`
}

// NewRAGFlowAdapter creates a new RAGFlow adapter.
func NewRAGFlowAdapter(baseURL, apiKey string) (*RAGFlowAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ragflow endpoint is required")
	}
	return &RAGFlowAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		topK:       5,
	}, nil
}

// Name returns the adapter identifier.
func (a *RAGFlowAdapter) Name() string {
	return "ragflow"
}

// Invoke runs a retrieval query and assembles the hit list.
func (a *RAGFlowAdapter) Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error) {
	body := ragflowRequest{
		Question:            req.Query,
		TopK:                a.topK,
		SimilarityThreshold: 0.2,
	}

	var resp ragflowResponse
	if err := postJSON(ctx, a.httpClient, a.Name(), a.baseURL+"/retrieval", a.apiKey, body, &resp, timeout); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &Error{Platform: a.Name(), Err: fmt.Errorf("code %d: %s", resp.Code, resp.Msg)}
	}

	hits := make([]Hit, 0, len(resp.Data.Chunks))
	for _, c := range resp.Data.Chunks {
		hits = append(hits, Hit{
			Content:  c.Content,
			Document: c.DocumentName,
			Score:    c.Similarity,
		})
	}

	return &RetrievalHits{
		Answer: synthesizeAnswer(hits),
		Hits:   hits,
		Meta:   map[string]string{"total_chunks": strconv.Itoa(resp.Data.Total)},
	}, nil
}

// HealthPing checks the API root.
func (a *RAGFlowAdapter) HealthPing(ctx context.Context) bool {
	return pingURL(ctx, a.httpClient, a.baseURL+"/health")
}

// synthesizeAnswer joins the highest-ranked chunks into a readable answer.
func synthesizeAnswer(hits []Hit) string {
	if len(hits) == 0 {
		return "No relevant passages found."
	}
	limit := 3
	if len(hits) < limit {
		limit = len(hits)
	}
	parts := make([]string, 0, limit)
	for _, h := range hits[:limit] {
		parts = append(parts, strings.TrimSpace(h.Content))
	}
	return strings.Join(parts, "\n\n")
}
