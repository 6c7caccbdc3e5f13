package risk

import (
	"log/slog"
	"os"
	"testing"
)

func newTestCircuitBreaker(t *testing.T, threshold int, onTrip func(string)) *CircuitBreaker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewCircuitBreaker("kcex", threshold, onTrip, nil, logger)
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	var tripped bool
	var reason string
	cb := newTestCircuitBreaker(t, 3, func(r string) {
		tripped = true
		reason = r
	})

	cb.Observe("unfilled")
	cb.Observe("failed")
	if tripped {
		t.Fatal("did not expect a trip before reaching the threshold")
	}

	cb.Observe("reverted 1")
	if !tripped {
		t.Fatal("expected the breaker to trip on the third consecutive non-normal scenario")
	}
	if reason == "" {
		t.Error("expected a non-empty trip reason")
	}
	if cb.Streak() != 0 {
		t.Errorf("expected streak to reset after tripping, got %d", cb.Streak())
	}
}

func TestCircuitBreakerResetsOnNormal(t *testing.T) {
	tripped := false
	cb := newTestCircuitBreaker(t, 3, func(string) { tripped = true })

	cb.Observe("unfilled")
	cb.Observe("failed")
	cb.Observe("normal")

	if cb.Streak() != 0 {
		t.Errorf("expected a normal scenario to reset the streak, got %d", cb.Streak())
	}

	cb.Observe("unfilled")
	cb.Observe("failed")
	if tripped {
		t.Fatal("did not expect a trip: the earlier streak should have been cleared by the normal scenario")
	}
}

func TestCircuitBreakerStreakTracksConsecutiveCount(t *testing.T) {
	cb := newTestCircuitBreaker(t, 100, nil)

	for i := 1; i <= 5; i++ {
		cb.Observe("unfilled")
		if cb.Streak() != i {
			t.Errorf("after %d non-normal scenarios, expected streak %d, got %d", i, i, cb.Streak())
		}
	}
}

func TestCircuitBreakerNilOnTripDoesNotPanic(t *testing.T) {
	cb := newTestCircuitBreaker(t, 1, nil)
	cb.Observe("failed")
	if cb.Streak() != 0 {
		t.Errorf("expected streak reset after trip even with a nil onTrip callback, got %d", cb.Streak())
	}
}
