package triarb

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestQuantizeDown(t *testing.T) {
	cases := []struct {
		amount, step, want string
	}{
		{"1.2345", "0.001", "1.234"},
		{"1.0", "0.001", "1.000"},
		{"0.0009", "0.001", "0.000"},
		{"10", "5", "10"},
		{"12", "5", "10"},
	}

	for _, c := range cases {
		got := quantizeDown(d(c.amount), d(c.step))
		if !got.Equal(d(c.want)) {
			t.Errorf("quantizeDown(%s, %s) = %s, want %s", c.amount, c.step, got, c.want)
		}
	}
}

func TestQuantizeDownZeroStep(t *testing.T) {
	got := quantizeDown(d("1.2345"), decimal.Zero)
	if !got.Equal(d("1.2345")) {
		t.Errorf("expected amount unchanged for zero step, got %s", got)
	}
}

func TestSnapAmount(t *testing.T) {
	req := domain.SymbolRequirements{
		MinAmount:   d("0.01"),
		MaxAmount:   d("100"),
		AmountStep:  d("0.001"),
		MinNotional: d("10"),
	}

	if _, ok := snapAmount(d("0.001"), d("1000"), req); ok {
		t.Error("expected below-minimum amount to be rejected")
	}

	got, ok := snapAmount(d("500"), d("1000"), req)
	if !ok {
		t.Fatal("expected amount capped to max, not rejected")
	}
	if !got.Equal(d("100")) {
		t.Errorf("expected cap to max_amount 100, got %s", got)
	}

	got, ok = snapAmount(d("1.2348"), d("1000"), req)
	if !ok {
		t.Fatal("expected amount within bounds to be accepted")
	}
	if !got.Equal(d("1.234")) {
		t.Errorf("expected snap to 1.234, got %s", got)
	}

	if _, ok := snapAmount(d("0.05"), d("1"), req); ok {
		t.Error("expected amount below min_notional to be rejected")
	}
}

func TestNormalizeDirectionARoundTrip(t *testing.T) {
	roomyReq := domain.SymbolRequirements{MinAmount: d("0.0001"), MaxAmount: d("1000"), AmountStep: d("0.0001"), MinNotional: d("0")}

	// Before fee, Z got from selling Y (1000/unit) exceeds Z spent buying X
	// (999/unit); after the 0.1% fee Z got is 999, exactly Z spent, so z
	// profit is zero and still clears min_profit 0. What X fetches back via
	// the X/Y leg (1.1/unit) covers amount_y with room to spare, so no
	// non-negativity reduction triggers.
	in := NormalizeInput{
		Direction:       domain.DirectionA,
		YZReq:           roomyReq,
		XZReq:           roomyReq,
		XYReq:           roomyReq,
		AmountY:         d("1"),
		AmountXBuy:      d("1"),
		AmountXSell:     d("0.999"),
		MarginalYZPrice: d("1000"),
		MarginalXZPrice: d("999"),
		MarginalXYPrice: d("1.1"),
		YZLevels:        []domain.BookLevel{{Price: d("1000"), Volume: d("10")}},
		XZLevels:        []domain.BookLevel{{Price: d("999"), Volume: d("10")}},
		XYLevels:        []domain.BookLevel{{Price: d("1.1"), Volume: d("10")}},
		Fee:             d("0.001"),
		MinProfit:       d("0"),
		ReduceFactor:    d("1"),
	}

	result, ok := Normalize(in)
	if !ok {
		t.Fatal("expected a profitable normalisation result")
	}
	if result.ZProfit.IsNegative() {
		t.Errorf("expected non-negative z profit, got %s", result.ZProfit)
	}
	if !result.AmountY.Equal(d("1")) {
		t.Errorf("expected amount_y unchanged when no reduction is needed, got %s", result.AmountY)
	}
}

func TestNormalizeRejectsBelowMinAmount(t *testing.T) {
	tiny := domain.SymbolRequirements{MinAmount: d("10"), MaxAmount: d("1000"), AmountStep: d("0.0001"), MinNotional: d("0")}

	in := NormalizeInput{
		Direction:       domain.DirectionA,
		YZReq:           tiny,
		XZReq:           tiny,
		XYReq:           tiny,
		AmountY:         d("1"),
		AmountXBuy:      d("0.07"),
		AmountXSell:     d("0.0699"),
		MarginalYZPrice: d("15"),
		MarginalXZPrice: d("1000"),
		MarginalXYPrice: d("15.2"),
		YZLevels:        []domain.BookLevel{{Price: d("15"), Volume: d("10")}},
		XZLevels:        []domain.BookLevel{{Price: d("1000"), Volume: d("1")}},
		XYLevels:        []domain.BookLevel{{Price: d("15.2"), Volume: d("1")}},
		Fee:             d("0.001"),
		MinProfit:       d("0"),
		ReduceFactor:    d("1"),
	}

	if _, ok := Normalize(in); ok {
		t.Error("expected normalisation to reject amounts below min_amount")
	}
}
