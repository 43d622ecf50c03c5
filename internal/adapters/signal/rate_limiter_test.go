package signal

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestJoinRateLimiter_AllowsUpToLimit(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	rl := NewJoinRateLimiter(3, 10*time.Second)
	rl.now = clk.Now

	for i := 0; i < 3; i++ {
		if !rl.Allow("p1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("p1") {
		t.Fatalf("fourth attempt inside the window must be blocked")
	}
	// Other identities have their own budget.
	if !rl.Allow("p2") {
		t.Fatalf("unrelated identity must not be throttled")
	}
}

func TestJoinRateLimiter_WindowSlides(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	rl := NewJoinRateLimiter(2, 10*time.Second)
	rl.now = clk.Now

	rl.Allow("p1")
	clk.Advance(6 * time.Second)
	rl.Allow("p1")
	if rl.Allow("p1") {
		t.Fatalf("window still holds two attempts")
	}

	clk.Advance(5 * time.Second) // first attempt now outside the window
	if !rl.Allow("p1") {
		t.Fatalf("expected a slot after the oldest attempt expired")
	}
}

func TestJoinRateLimiter_ForgetResets(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	rl := NewJoinRateLimiter(1, time.Minute)
	rl.now = clk.Now

	rl.Allow("p1")
	if rl.Allow("p1") {
		t.Fatalf("limit reached")
	}
	rl.Forget("p1")
	if !rl.Allow("p1") {
		t.Fatalf("history should be gone after Forget")
	}
}
