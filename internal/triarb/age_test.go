package triarb

import (
	"testing"
	"time"

	"github.com/crypto-trading/trading/internal/domain"
)

func testTriangle() domain.Triangle {
	return domain.Triangle{
		YZ: domain.Pair{Base: "ETH", Quote: "BTC"},
		XZ: domain.Pair{Base: "LTC", Quote: "BTC"},
		XY: domain.Pair{Base: "LTC", Quote: "ETH"},
	}
}

func TestAgeTrackerFirstSeenStartsAtZero(t *testing.T) {
	tr := NewAgeTracker()
	now := time.Unix(1000, 0)

	age, disappeared := tr.Observe(testTriangle(), domain.DirectionA, true, now)
	if age != 0 {
		t.Errorf("expected zero age on first sighting, got %s", age)
	}
	if disappeared {
		t.Error("did not expect disappeared on first sighting")
	}
}

func TestAgeTrackerAccumulatesAge(t *testing.T) {
	tr := NewAgeTracker()
	tri := testTriangle()
	start := time.Unix(1000, 0)

	tr.Observe(tri, domain.DirectionA, true, start)
	age, disappeared := tr.Observe(tri, domain.DirectionA, true, start.Add(5*time.Second))
	if age != 5*time.Second {
		t.Errorf("expected 5s age, got %s", age)
	}
	if disappeared {
		t.Error("did not expect disappeared while still profitable")
	}
}

func TestAgeTrackerDisappearedFiresOnce(t *testing.T) {
	tr := NewAgeTracker()
	tri := testTriangle()
	start := time.Unix(1000, 0)

	tr.Observe(tri, domain.DirectionA, true, start)
	tr.Observe(tri, domain.DirectionA, true, start.Add(time.Second))

	_, disappeared := tr.Observe(tri, domain.DirectionA, false, start.Add(2*time.Second))
	if !disappeared {
		t.Error("expected disappeared notification when profitability is lost")
	}

	_, disappearedAgain := tr.Observe(tri, domain.DirectionA, false, start.Add(3*time.Second))
	if disappearedAgain {
		t.Error("expected disappeared to fire only once, not on every subsequent unprofitable scan")
	}
}

func TestAgeTrackerRestartsAfterDisappearance(t *testing.T) {
	tr := NewAgeTracker()
	tri := testTriangle()
	start := time.Unix(1000, 0)

	tr.Observe(tri, domain.DirectionA, true, start)
	tr.Observe(tri, domain.DirectionA, false, start.Add(time.Second))

	age, disappeared := tr.Observe(tri, domain.DirectionA, true, start.Add(2*time.Second))
	if age != 0 {
		t.Errorf("expected age to restart at zero after reappearing, got %s", age)
	}
	if disappeared {
		t.Error("did not expect disappeared on a fresh sighting")
	}
}

func TestAgeTrackerDirectionsAreIndependent(t *testing.T) {
	tr := NewAgeTracker()
	tri := testTriangle()
	start := time.Unix(1000, 0)

	tr.Observe(tri, domain.DirectionA, true, start)
	age, _ := tr.Observe(tri, domain.DirectionB, true, start.Add(10*time.Second))
	if age != 0 {
		t.Errorf("expected direction B to track age independently of direction A, got %s", age)
	}
}

func TestQualifies(t *testing.T) {
	cases := []struct {
		age      time.Duration
		depth    int
		minAge   time.Duration
		minDepth int
		want     bool
	}{
		{2 * time.Second, 3, time.Second, 2, true},
		{500 * time.Millisecond, 3, time.Second, 2, false},
		{2 * time.Second, 1, time.Second, 2, false},
		{time.Second, 2, time.Second, 2, true},
	}

	for _, c := range cases {
		got := Qualifies(c.age, c.depth, c.minAge, c.minDepth)
		if got != c.want {
			t.Errorf("Qualifies(%s, %d, %s, %d) = %v, want %v",
				c.age, c.depth, c.minAge, c.minDepth, got, c.want)
		}
	}
}
