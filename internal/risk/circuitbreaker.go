package risk

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/crypto-trading/trading/internal/monitor"
)

// CircuitBreaker counts consecutive non-normal execution scenarios and trips
// the kill switch once the streak reaches a configured length. It is the
// triarb executor's ScenarioObserver.
type CircuitBreaker struct {
	mu sync.Mutex

	venue     string
	threshold int
	streak    int

	onTrip  func(reason string)
	metrics *monitor.Metrics
	logger  *slog.Logger
}

func NewCircuitBreaker(venue string, threshold int, onTrip func(reason string), metrics *monitor.Metrics, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		venue:     venue,
		threshold: threshold,
		onTrip:    onTrip,
		metrics:   metrics,
		logger:    logger,
	}
}

// Observe records one execution's scenario label. "normal" resets the
// streak; anything else (unfilled, failed, finalized, reverted N) extends
// it.
func (b *CircuitBreaker) Observe(scenario string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if scenario == "normal" {
		if b.streak > 0 {
			b.logger.Info("circuit breaker streak reset", "previous_streak", b.streak)
		}
		b.streak = 0
		return
	}

	b.streak++
	b.logger.Warn("non-normal execution scenario",
		"scenario", scenario, "streak", b.streak, "threshold", b.threshold)

	if b.streak >= b.threshold {
		reason := fmt.Sprintf("circuit breaker tripped: %d non-normal scenarios in a row", b.streak)
		b.logger.Error("CIRCUIT BREAKER TRIPPED", "streak", b.streak)
		if b.metrics != nil {
			b.metrics.ArbCircuitBreakerTrips.WithLabelValues(b.venue).Inc()
		}
		if b.onTrip != nil {
			b.onTrip(reason)
		}
		b.streak = 0
	}
}

// Streak returns the current consecutive non-normal count.
func (b *CircuitBreaker) Streak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streak
}
