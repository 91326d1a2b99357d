package adapter

import (
	"context"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// Adapter defines the uniform interface to one backend AI-workflow platform.
// Concrete adapters hide the platform's native protocol behind Invoke and
// share no mutable state with each other.
type Adapter interface {
	// Invoke sends the request to the platform and returns its payload.
	// The timeout bounds the single call; implementations must honor ctx.
	Invoke(ctx context.Context, req *schema.Request, timeout time.Duration) (Payload, error)

	// HealthPing reports whether the platform currently answers.
	HealthPing(ctx context.Context) bool

	// Name returns the adapter's identifier.
	Name() string
}
