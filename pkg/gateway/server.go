package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/zen-systems/unigate/pkg/health"
	"github.com/zen-systems/unigate/pkg/registry"
	"github.com/zen-systems/unigate/pkg/schema"
	"github.com/zen-systems/unigate/pkg/telemetry"
)

// Server exposes the gateway over HTTP.
type Server struct {
	gateway  *Gateway
	registry *registry.Registry
	breaker  *health.Breaker
	recorder *telemetry.Recorder
	http     *http.Server
}

// NewServer builds the HTTP front end on the given listen address.
func NewServer(addr string, g *Gateway, reg *registry.Registry, b *health.Breaker, rec *telemetry.Recorder) *Server {
	s := &Server{gateway: g, registry: reg, breaker: b, recorder: rec}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/query", s.handleQuery)
	mux.HandleFunc("GET /v1/platforms", s.handlePlatforms)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("[server] listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// queryRequest is the /v1/query request body.
type queryRequest struct {
	Query    string            `json:"query"`
	CallerID string            `json:"caller_id,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
	History  []schema.Turn     `json:"history,omitempty"`
	Hint     string            `json:"performance_hint,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, &Error{Kind: KindInvalidRequest, Reason: "malformed request body"})
		return
	}

	req := &schema.Request{
		CallerID: body.CallerID,
		Query:    body.Query,
		Context:  body.Context,
		History:  body.History,
		Hint:     schema.PerformanceHint(body.Hint),
	}

	resp, err := s.gateway.Handle(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// platformStatus is one entry of the /v1/platforms listing.
type platformStatus struct {
	*schema.PlatformProfile
	Circuit string `json:"circuit_state"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, _ *http.Request) {
	profiles := s.registry.All()
	out := make([]platformStatus, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, platformStatus{
			PlatformProfile: p,
			Circuit:         string(s.breaker.State(p.ID)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	states := s.breaker.States()
	healthy := false
	for _, p := range s.registry.All() {
		if states[p.ID] != health.StateOpen {
			healthy = true
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy":  healthy,
		"circuits": states,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	hits, misses, rejected := s.recorder.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"platforms":          s.recorder.Stats(),
		"cache_hits":         hits,
		"cache_misses":       misses,
		"admission_rejected": rejected,
	})
}

func writeError(w http.ResponseWriter, err error) {
	var gerr *Error
	if !errors.As(err, &gerr) {
		gerr = &Error{Kind: KindDispatchFailed, Reason: "internal error"}
	}
	writeJSON(w, statusOf(gerr.Kind), errorResponse{
		Error:  string(gerr.Kind),
		Reason: gerr.Reason,
	})
}

func statusOf(kind Kind) int {
	switch kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindBackpressure:
		return http.StatusTooManyRequests
	case KindNoHealthyPlatform:
		return http.StatusServiceUnavailable
	case KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] failed to write response: %v", err)
	}
}
