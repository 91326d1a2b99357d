// Package gateway orchestrates a request's full path: admission,
// intent analysis, platform scoring, cached dispatch, unification.
package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/unigate/pkg/admission"
	"github.com/zen-systems/unigate/pkg/cache"
	"github.com/zen-systems/unigate/pkg/dispatch"
	"github.com/zen-systems/unigate/pkg/intent"
	"github.com/zen-systems/unigate/pkg/registry"
	"github.com/zen-systems/unigate/pkg/schema"
	"github.com/zen-systems/unigate/pkg/scorer"
	"github.com/zen-systems/unigate/pkg/telemetry"
	"github.com/zen-systems/unigate/pkg/unify"
)

const maxQueryBytes = 32 << 10

// Gateway ties the routing stages together. All fields are set at
// construction and safe for concurrent use.
type Gateway struct {
	registry   *registry.Registry
	analyzer   *intent.Analyzer
	scorer     *scorer.Scorer
	cache      *cache.Cache
	admission  *admission.Controller
	dispatcher *dispatch.Dispatcher
	recorder   *telemetry.Recorder
}

// New assembles a gateway from already-constructed stages.
func New(
	reg *registry.Registry,
	analyzer *intent.Analyzer,
	sc *scorer.Scorer,
	c *cache.Cache,
	adm *admission.Controller,
	d *dispatch.Dispatcher,
	rec *telemetry.Recorder,
) *Gateway {
	return &Gateway{
		registry:   reg,
		analyzer:   analyzer,
		scorer:     sc,
		cache:      c,
		admission:  adm,
		dispatcher: d,
		recorder:   rec,
	}
}

// Handle runs one request through the gateway and returns the unified
// response. Errors are always *Error with a stable Kind.
func (g *Gateway) Handle(ctx context.Context, req *schema.Request) (*schema.UnifiedResponse, error) {
	if err := g.prepare(req); err != nil {
		return nil, err
	}

	if err := g.admission.Admit(ctx, req.CallerID); err != nil {
		if errors.Is(err, admission.ErrBackpressure) {
			g.recorder.AdmissionRejected(req.CallerID)
			return nil, &Error{Kind: KindBackpressure, Reason: "rate limit exceeded, retry later", err: err}
		}
		return nil, g.mapError(err)
	}

	features := g.analyzer.Analyze(req)
	key := cache.Fingerprint(features, req)

	resp, hit, err := g.cache.GetOrCompute(ctx, key, features.Category, func(ctx context.Context) (*schema.UnifiedResponse, error) {
		return g.route(ctx, req, features)
	})
	if err != nil {
		return nil, g.mapError(err)
	}

	if hit {
		g.recorder.CacheHit(req.CallerID, key)
	} else {
		g.recorder.CacheMiss(req.CallerID, key)
	}
	return resp, nil
}

// prepare validates the inbound request and stamps identity fields.
func (g *Gateway) prepare(req *schema.Request) error {
	if req.Query == "" {
		return invalidRequest("query must not be empty")
	}
	if len(req.Query) > maxQueryBytes {
		return invalidRequest("query exceeds %d bytes", maxQueryBytes)
	}
	hint, err := schema.ParsePerformanceHint(string(req.Hint))
	if err != nil {
		return invalidRequest("%v", err)
	}
	req.Hint = hint
	if req.CallerID == "" {
		req.CallerID = "anonymous"
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now().UTC()
	}
	return nil
}

// route scores the registered platforms and dispatches to the ranked
// candidates. Called on cache miss only.
func (g *Gateway) route(ctx context.Context, req *schema.Request, features *schema.IntentFeatures) (*schema.UnifiedResponse, error) {
	ranked := g.scorer.Score(features, g.registry.All())
	if len(ranked) == 0 {
		return nil, &Error{Kind: KindNoHealthyPlatform, Reason: "no healthy platform can serve this request"}
	}

	log.Printf("[gateway] request %s category=%s top=%s score=%.3f",
		req.ID, features.Category, ranked[0].PlatformID, ranked[0].Score)

	outcome, err := g.dispatcher.Dispatch(ctx, req, ranked)
	if err != nil {
		return nil, err
	}
	return unify.Unify(outcome, features), nil
}

// mapError normalizes internal errors into the gateway's stable kinds.
func (g *Gateway) mapError(err error) error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}

	var failed *dispatch.FailedError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindDeadlineExceeded, Reason: "request deadline exceeded", err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindDeadlineExceeded, Reason: "request cancelled", err: err}
	case errors.Is(err, dispatch.ErrNoCandidates):
		return &Error{Kind: KindNoHealthyPlatform, Reason: "no healthy platform can serve this request", err: err}
	case errors.As(err, &failed):
		return &Error{Kind: KindDispatchFailed, Reason: "all candidate platforms failed", err: err}
	default:
		return &Error{Kind: KindDispatchFailed, Reason: "dispatch failed", err: err}
	}
}
