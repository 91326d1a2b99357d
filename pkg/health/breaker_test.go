package health

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(window int, opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	opts = append(opts, WithClock(clock.now))
	b := NewBreaker(Config{
		Window:           window,
		FailureThreshold: 0.5,
		Cooldown:         30 * time.Second,
	}, opts...)
	return b, clock
}

func fill(b *Breaker, id string, outcomes ...bool) {
	for _, ok := range outcomes {
		b.Record(id, ok)
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b, _ := newTestBreaker(4)

	fill(b, "dify", true, true, false, true)
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
	if !b.Allow("dify") {
		t.Error("Allow() = false, want true while closed")
	}
}

func TestBreaker_OpensAboveThreshold(t *testing.T) {
	b, _ := newTestBreaker(4)

	fill(b, "dify", false, false, false, true)
	if got := b.State("dify"); got != StateOpen {
		t.Errorf("State() = %v, want %v", got, StateOpen)
	}
	if b.Allow("dify") {
		t.Error("Allow() = true, want false while open")
	}
	if b.Available("dify") {
		t.Error("Available() = true, want false while cooling down")
	}
}

func TestBreaker_DoesNotOpenBeforeWindowFills(t *testing.T) {
	b, _ := newTestBreaker(10)

	// 100% failures, but only 3 observations against a window of 10.
	fill(b, "dify", false, false, false)
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State() = %v, want %v before the window fills", got, StateClosed)
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(4)
	fill(b, "dify", false, false, false, false)

	clock.advance(29 * time.Second)
	if b.Allow("dify") {
		t.Fatal("Allow() = true before cooldown elapsed")
	}

	clock.advance(2 * time.Second)
	if !b.Available("dify") {
		t.Error("Available() = false after cooldown elapsed")
	}
	if !b.Allow("dify") {
		t.Fatal("Allow() = false after cooldown elapsed")
	}
	if got := b.State("dify"); got != StateHalfOpen {
		t.Errorf("State() = %v, want %v", got, StateHalfOpen)
	}
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	b, clock := newTestBreaker(4)
	fill(b, "dify", false, false, false, false)
	clock.advance(31 * time.Second)

	if !b.Allow("dify") {
		t.Fatal("Allow() = false for the trial")
	}
	if b.Allow("dify") {
		t.Error("Allow() = true for a second concurrent trial")
	}

	// Trial outcome frees the slot.
	b.Record("dify", false)
	if got := b.State("dify"); got != StateOpen {
		t.Errorf("State() after failed trial = %v, want %v", got, StateOpen)
	}
}

func TestBreaker_SuccessfulTrialCloses(t *testing.T) {
	b, clock := newTestBreaker(4)
	fill(b, "dify", false, false, false, false)
	clock.advance(31 * time.Second)

	b.Allow("dify")
	b.Record("dify", true)
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}

	// The window was reset: old failures no longer count.
	fill(b, "dify", false, true, true, true)
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State() after reset window = %v, want %v", got, StateClosed)
	}
}

func TestBreaker_FailedTrialRestartsCooldown(t *testing.T) {
	b, clock := newTestBreaker(4)
	fill(b, "dify", false, false, false, false)
	clock.advance(31 * time.Second)

	b.Allow("dify")
	b.Record("dify", false)

	clock.advance(10 * time.Second)
	if b.Allow("dify") {
		t.Error("Allow() = true before the restarted cooldown elapsed")
	}
	clock.advance(25 * time.Second)
	if !b.Allow("dify") {
		t.Error("Allow() = false after the restarted cooldown elapsed")
	}
}

func TestBreaker_ReleaseTrialFreesSlotWithoutOutcome(t *testing.T) {
	b, clock := newTestBreaker(4)
	fill(b, "dify", false, false, false, false)
	clock.advance(31 * time.Second)

	b.Allow("dify")
	b.ReleaseTrial("dify")

	if got := b.State("dify"); got != StateHalfOpen {
		t.Errorf("State() = %v, want %v", got, StateHalfOpen)
	}
	if !b.Allow("dify") {
		t.Error("Allow() = false after trial was released")
	}
}

func TestBreaker_TransitionCallback(t *testing.T) {
	type change struct {
		id       string
		from, to State
	}
	var changes []change

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	b := NewBreaker(Config{Window: 2, FailureThreshold: 0.5, Cooldown: 30 * time.Second},
		WithClock(clock.now),
		WithTransitionFunc(func(id string, from, to State) {
			changes = append(changes, change{id: id, from: from, to: to})
		}))

	fill(b, "n8n", false, false)
	clock.advance(31 * time.Second)
	b.Allow("n8n")
	b.Record("n8n", true)

	want := []change{
		{id: "n8n", from: StateClosed, to: StateOpen},
		{id: "n8n", from: StateOpen, to: StateHalfOpen},
		{id: "n8n", from: StateHalfOpen, to: StateClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("got %d transitions, want %d: %+v", len(changes), len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

func TestBreaker_CircuitsAreIndependent(t *testing.T) {
	b, _ := newTestBreaker(2)

	fill(b, "n8n", false, false)
	if got := b.State("n8n"); got != StateOpen {
		t.Fatalf("State(n8n) = %v, want %v", got, StateOpen)
	}
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State(dify) = %v, want %v", got, StateClosed)
	}
	if !b.Allow("dify") {
		t.Error("Allow(dify) = false, want true")
	}
}

func TestBreaker_WindowSlides(t *testing.T) {
	b, _ := newTestBreaker(4)

	// Two early failures, then enough successes to push them out.
	fill(b, "dify", false, false, true, true)
	fill(b, "dify", true, true)
	if got := b.State("dify"); got != StateClosed {
		t.Fatalf("State() = %v, want %v", got, StateClosed)
	}

	// Window is now all successes; two fresh failures put the rate at
	// exactly 0.5, which does not exceed the threshold.
	fill(b, "dify", false, false)
	if got := b.State("dify"); got != StateClosed {
		t.Errorf("State() at exactly threshold = %v, want %v", got, StateClosed)
	}

	// One more failure tips it.
	fill(b, "dify", false)
	if got := b.State("dify"); got != StateOpen {
		t.Errorf("State() above threshold = %v, want %v", got, StateOpen)
	}
}
