package execution

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQualityTrackerRecordsSlippage(t *testing.T) {
	qt := NewQualityTracker(10)

	qt.RecordFill("BTCUSDT", "BUY", decimal.NewFromInt(100), decimal.NewFromInt(101))

	records := qt.RecentRecords(1)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	want := decimal.NewFromInt(100) // (101-100)/100 * 10000
	if !records[0].SlippageBps.Equal(want) {
		t.Errorf("SlippageBps = %s, want %s", records[0].SlippageBps, want)
	}
}

func TestQualityTrackerNegatesSlippageForSells(t *testing.T) {
	qt := NewQualityTracker(10)

	qt.RecordFill("BTCUSDT", "SELL", decimal.NewFromInt(100), decimal.NewFromInt(101))

	records := qt.RecentRecords(1)
	if records[0].SlippageBps.Sign() >= 0 {
		t.Errorf("expected negative slippage for a sell filled above expected price, got %s", records[0].SlippageBps)
	}
}

func TestQualityTrackerSkipsZeroExpectedPrice(t *testing.T) {
	qt := NewQualityTracker(10)

	qt.RecordFill("BTCUSDT", "BUY", decimal.Zero, decimal.NewFromInt(101))

	if len(qt.RecentRecords(10)) != 0 {
		t.Error("expected zero-expected-price fills to be skipped")
	}
}

func TestQualityTrackerEvictsOldestBeyondMaxSize(t *testing.T) {
	qt := NewQualityTracker(2)

	qt.RecordFill("A", "BUY", decimal.NewFromInt(1), decimal.NewFromInt(1))
	qt.RecordFill("B", "BUY", decimal.NewFromInt(1), decimal.NewFromInt(1))
	qt.RecordFill("C", "BUY", decimal.NewFromInt(1), decimal.NewFromInt(1))

	records := qt.RecentRecords(10)
	if len(records) != 2 {
		t.Fatalf("expected tracker capped at 2 records, got %d", len(records))
	}
	if records[0].Symbol != "B" || records[1].Symbol != "C" {
		t.Errorf("expected oldest record evicted, got %v", records)
	}
}

func TestQualityTrackerAverageSlippageBps(t *testing.T) {
	qt := NewQualityTracker(10)

	qt.RecordFill("A", "BUY", decimal.NewFromInt(100), decimal.NewFromInt(101)) // +100bps
	qt.RecordFill("A", "BUY", decimal.NewFromInt(100), decimal.NewFromInt(99))  // -100bps

	avg := qt.AverageSlippageBps()
	if !avg.IsZero() {
		t.Errorf("AverageSlippageBps() = %s, want 0", avg)
	}
}
