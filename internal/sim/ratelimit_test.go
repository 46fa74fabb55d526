package sim

import "testing"

// TestLimiterWindow tests the sliding-window budget and its reset.
func TestLimiterWindow(t *testing.T) {
	l := NewActionLimiter()

	for i := 0; i < 5; i++ {
		if !l.Allow("p1", ActionBuild, 100, 20, 5) {
			t.Fatalf("request %d inside the budget should pass", i)
		}
	}
	if l.Allow("p1", ActionBuild, 100, 20, 5) {
		t.Error("sixth request should be rejected")
	}
	if l.Allow("p1", ActionBuild, 119, 20, 5) {
		t.Error("budget should stay exhausted inside the window")
	}
	if !l.Allow("p1", ActionBuild, 120, 20, 5) {
		t.Error("a fresh window should open after windowTicks")
	}
}

// TestLimiterIsolation tests that players and action kinds do not
// share budgets.
func TestLimiterIsolation(t *testing.T) {
	l := NewActionLimiter()

	for i := 0; i < 5; i++ {
		l.Allow("p1", ActionBuild, 10, 20, 5)
	}
	if !l.Allow("p2", ActionBuild, 10, 20, 5) {
		t.Error("p2 should have an independent budget")
	}
	if !l.Allow("p1", ActionInteract, 10, 20, 5) {
		t.Error("interact budget should be independent of build")
	}
}

// TestLimiterDisabled tests that a zero budget means unlimited.
func TestLimiterDisabled(t *testing.T) {
	l := NewActionLimiter()
	for i := 0; i < 1000; i++ {
		if !l.Allow("p1", ActionInput, uint64(i), 0, 0) {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

// TestLimiterForget tests cleanup on disconnect.
func TestLimiterForget(t *testing.T) {
	l := NewActionLimiter()
	for i := 0; i < 5; i++ {
		l.Allow("p1", ActionBuild, 10, 20, 5)
	}
	l.Forget("p1")
	if !l.Allow("p1", ActionBuild, 11, 20, 5) {
		t.Error("forgotten player should start with a fresh budget")
	}
	if len(l.windows) != 1 {
		t.Errorf("expected one window after forget+allow, got %d", len(l.windows))
	}
}
