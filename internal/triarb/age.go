package triarb

import (
	"sync"
	"time"

	"github.com/crypto-trading/trading/internal/domain"
)

// ageKey identifies a (triangle, direction) pair for the persistence filter.
type ageKey struct {
	triangle  string
	direction domain.CycleDirection
}

// AgeTracker is the persistence filter: a field of the Detector, never a
// package-level singleton.
type AgeTracker struct {
	mu        sync.Mutex
	firstSeen map[ageKey]time.Time
}

func NewAgeTracker() *AgeTracker {
	return &AgeTracker{firstSeen: make(map[ageKey]time.Time)}
}

// Observe records whether (t, dir) is profitable on this scan. It returns the
// age the opportunity has persisted (zero if just started or not profitable)
// and whether a "disappeared" notification should fire.
func (a *AgeTracker) Observe(t domain.Triangle, dir domain.CycleDirection, profitable bool, now time.Time) (age time.Duration, disappeared bool) {
	key := ageKey{triangle: t.Key(), direction: dir}

	a.mu.Lock()
	defer a.mu.Unlock()

	seenAt, tracked := a.firstSeen[key]

	if !profitable {
		if tracked {
			delete(a.firstSeen, key)
			return 0, true
		}
		return 0, false
	}

	if !tracked {
		a.firstSeen[key] = now
		return 0, false
	}

	return now.Sub(seenAt), false
}

// Qualifies reports whether an opportunity that has persisted `age` with the
// given `depth` clears the minimum age and depth gates.
func Qualifies(age time.Duration, depth int, minAge time.Duration, minDepth int) bool {
	return age >= minAge && depth >= minDepth
}
