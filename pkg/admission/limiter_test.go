package admission

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestController_AllowsWithinBurst(t *testing.T) {
	c := NewController(Config{CallerRate: 1, CallerBurst: 5, GlobalRate: 100, GlobalBurst: 100})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.Admit(ctx, "team-a"); err != nil {
			t.Fatalf("Admit() call %d error = %v, want nil", i, err)
		}
	}
}

func TestController_RejectsPastCallerBurst(t *testing.T) {
	c := NewController(Config{CallerRate: 1, CallerBurst: 2, GlobalRate: 100, GlobalBurst: 100})
	ctx := context.Background()

	c.Admit(ctx, "team-a")
	c.Admit(ctx, "team-a")
	if err := c.Admit(ctx, "team-a"); !errors.Is(err, ErrBackpressure) {
		t.Errorf("Admit() error = %v, want ErrBackpressure", err)
	}
}

func TestController_CallersAreIndependent(t *testing.T) {
	c := NewController(Config{CallerRate: 1, CallerBurst: 1, GlobalRate: 100, GlobalBurst: 100})
	ctx := context.Background()

	if err := c.Admit(ctx, "team-a"); err != nil {
		t.Fatalf("Admit(team-a) error = %v", err)
	}
	if err := c.Admit(ctx, "team-a"); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("Admit(team-a) error = %v, want ErrBackpressure", err)
	}
	if err := c.Admit(ctx, "team-b"); err != nil {
		t.Errorf("Admit(team-b) error = %v, want nil", err)
	}
}

func TestController_GlobalCapBindsAcrossCallers(t *testing.T) {
	c := NewController(Config{CallerRate: 100, CallerBurst: 100, GlobalRate: 1, GlobalBurst: 2})
	ctx := context.Background()

	c.Admit(ctx, "team-a")
	c.Admit(ctx, "team-b")
	if err := c.Admit(ctx, "team-c"); !errors.Is(err, ErrBackpressure) {
		t.Errorf("Admit() error = %v, want ErrBackpressure", err)
	}
}

func TestController_QueueWaitsBriefly(t *testing.T) {
	// High rate, burst of 1: the second request has no token on
	// arrival but one refills within the queue delay.
	c := NewController(Config{
		CallerRate:    50,
		CallerBurst:   1,
		GlobalRate:    1000,
		GlobalBurst:   1000,
		QueueDepth:    1,
		MaxQueueDelay: 500 * time.Millisecond,
	})
	ctx := context.Background()

	if err := c.Admit(ctx, "team-a"); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if err := c.Admit(ctx, "team-a"); err != nil {
		t.Errorf("Admit() queued error = %v, want nil", err)
	}
}

func TestController_QueueDelayBounded(t *testing.T) {
	// Refill takes a minute; the queue gives up at the delay bound
	// instead of waiting for the token.
	c := NewController(Config{
		CallerRate:    1.0 / 60.0,
		CallerBurst:   1,
		GlobalRate:    1000,
		GlobalBurst:   1000,
		QueueDepth:    1,
		MaxQueueDelay: 50 * time.Millisecond,
	})
	ctx := context.Background()

	c.Admit(ctx, "team-a")

	start := time.Now()
	err := c.Admit(ctx, "team-a")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrBackpressure) {
		t.Errorf("Admit() error = %v, want ErrBackpressure", err)
	}
	if elapsed > time.Second {
		t.Errorf("Admit() waited %v, want bounded by the queue delay", elapsed)
	}
}

func TestController_CancelledContextSurfaces(t *testing.T) {
	c := NewController(Config{
		CallerRate:    1.0 / 60.0,
		CallerBurst:   1,
		GlobalRate:    1000,
		GlobalBurst:   1000,
		QueueDepth:    1,
		MaxQueueDelay: 10 * time.Second,
	})

	c.Admit(context.Background(), "team-a")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := c.Admit(ctx, "team-a"); !errors.Is(err, context.Canceled) {
		t.Errorf("Admit() error = %v, want context.Canceled", err)
	}
}
