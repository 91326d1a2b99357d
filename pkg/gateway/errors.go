package gateway

import "fmt"

// Kind classifies a gateway error for callers. Kinds are stable API
// strings; adapters and internal errors never leak through them.
type Kind string

const (
	KindInvalidRequest    Kind = "invalid_request"
	KindBackpressure      Kind = "backpressure"
	KindNoHealthyPlatform Kind = "no_healthy_platform"
	KindDispatchFailed    Kind = "dispatch_failed"
	KindDeadlineExceeded  Kind = "deadline_exceeded"
)

// Error is the gateway's caller-facing error. Reason is safe to return
// to callers verbatim.
type Error struct {
	Kind   Kind
	Reason string
	err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.err }

func invalidRequest(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Reason: fmt.Sprintf(format, args...)}
}
