package triarb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/crypto-trading/trading/internal/config"
	"github.com/crypto-trading/trading/internal/domain"
	"github.com/crypto-trading/trading/internal/eventbus"
)

func TestFillStatusFromFraction(t *testing.T) {
	cases := []struct {
		name             string
		executed, amount string
		want             domain.OrderResultStatus
	}{
		{"nothing executed", "0", "1", domain.OrderResultNew},
		{"partial fill", "0.5", "1", domain.OrderResultPartiallyFilled},
		{"exact fill", "1", "1", domain.OrderResultFilled},
		{"over-fill rounding", "1.0001", "1", domain.OrderResultFilled},
	}

	for _, c := range cases {
		got := fillStatusFromFraction(d(c.executed), d(c.amount))
		if got != c.want {
			t.Errorf("%s: fillStatusFromFraction(%s, %s) = %v, want %v",
				c.name, c.executed, c.amount, got, c.want)
		}
	}
}

// fakeOrderManager is a minimal, in-memory stand-in for order.Manager: it
// lets a test script exactly which symbols reject placement (and how many
// times) and which symbols fill the instant they're placed, without a real
// venue gateway.
type fakeOrderManager struct {
	mu sync.Mutex

	orders      map[uuid.UUID]*domain.Order
	failFirst   map[string]int
	fillOnPlace map[string]bool
	submitted   []domain.OrderRequest
}

func newFakeOrderManager() *fakeOrderManager {
	return &fakeOrderManager{
		orders:      make(map[uuid.UUID]*domain.Order),
		failFirst:   make(map[string]int),
		fillOnPlace: make(map[string]bool),
	}
}

func (f *fakeOrderManager) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, req)

	if n := f.failFirst[req.Symbol]; n > 0 {
		f.failFirst[req.Symbol] = n - 1
		return nil, fmt.Errorf("fake venue rejected %s", req.Symbol)
	}

	ord := &domain.Order{
		InternalID: req.InternalID,
		VenueID:    "v-" + req.InternalID.String(),
		Venue:      req.Venue,
		Symbol:     req.Symbol,
		Side:       req.Side,
		OrderType:  req.OrderType,
		Price:      req.Price,
		Size:       req.Size,
		Status:     domain.OrderStatusAcknowledged,
	}
	if f.fillOnPlace[req.Symbol] {
		ord.Status = domain.OrderStatusFilled
		ord.FilledSize = req.Size
		ord.AvgFillPrice = req.Price
	}

	f.orders[req.InternalID] = ord
	return ord, nil
}

func (f *fakeOrderManager) CancelOrder(ctx context.Context, internalID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ord, ok := f.orders[internalID]
	if !ok {
		return fmt.Errorf("order not found: %s", internalID)
	}
	if ord.Status == domain.OrderStatusFilled {
		return fmt.Errorf("order already filled: %s", internalID)
	}
	ord.Status = domain.OrderStatusCancelled
	return nil
}

func (f *fakeOrderManager) GetOrder(internalID uuid.UUID) (*domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ord, ok := f.orders[internalID]
	if !ok {
		return nil, false
	}
	cp := *ord
	return &cp, true
}

type fakeBookReader struct{}

func (fakeBookReader) GetOrderBook(venue, symbol string) (*domain.OrderBookSnapshot, bool) {
	return nil, false
}

func testArbConfig() config.ArbitrageConfig {
	return config.ArbitrageConfig{
		TradeFee:                  d("0.001"),
		MinProfit:                 d("0"),
		AmountReduceFactor:        d("0.9"),
		CheckOrderIntervalSeconds: 0.001,
		MinFillTimeSeconds:        0,
		MinFillTimeLastSeconds:    0,
		MaxFillTimeSeconds:        0.01,
		MinParallelActions:        1,
	}
}

func newTestExecutor(orderMgr *fakeOrderManager) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor("test-venue", orderMgr, fakeBookReader{}, testArbConfig(), eventbus.New(8, logger), nil, nil, nil, logger)
}

func action(pair domain.Pair, side domain.Side, amount string) domain.MarketAction {
	return domain.MarketAction{Pair: pair, Side: side, Price: d("1"), Amount: d(amount)}
}

// TestExecuteAllLegsFailToPlaceAtLastStep covers the "last step, every leg
// fails to place" scenario: the prior step's fill stands, and the failed
// leg's original amount is finalized rather than silently dropped.
func TestExecuteAllLegsFailToPlaceAtLastStep(t *testing.T) {
	legA := action(domain.Pair{Base: "A", Quote: "B"}, domain.SideSell, "10")
	legB := action(domain.Pair{Base: "B", Quote: "C"}, domain.SideBuy, "10")
	legC := action(domain.Pair{Base: "C", Quote: "A"}, domain.SideSell, "10")

	plan := domain.Plan{Steps: []domain.PlanStep{
		{Actions: []domain.MarketAction{legA, legB}},
		{Actions: []domain.MarketAction{legC}},
	}}

	mgr := newFakeOrderManager()
	mgr.fillOnPlace[legA.Pair.Symbol()] = true
	mgr.fillOnPlace[legB.Pair.Symbol()] = true
	mgr.failFirst[legC.Pair.Symbol()] = 1 // the real placement fails; the finalize retry succeeds

	exec := newTestExecutor(mgr)
	result := exec.Execute(context.Background(), domain.Arbitrage{}, plan)

	if result.Scenario != string(domain.ScenarioFinalized) {
		t.Errorf("scenario = %q, want %q", result.Scenario, domain.ScenarioFinalized)
	}

	foundFinalize := false
	for _, req := range mgr.submitted {
		if req.Symbol == legC.Pair.Symbol() && req.OrderType == domain.OrderTypeMarket && req.Side == legC.Side {
			foundFinalize = true
		}
	}
	if !foundFinalize {
		t.Error("expected a same-side MARKET finalize order for the leg that failed to place")
	}
}

// TestExecuteOneOfTwoFilledReverts covers the "one of two legs filled, the
// other never does" scenario: the filled leg must itself be reverted rather
// than finalizing the leg that never filled.
func TestExecuteOneOfTwoFilledReverts(t *testing.T) {
	legA := action(domain.Pair{Base: "A", Quote: "B"}, domain.SideSell, "10")
	legB := action(domain.Pair{Base: "B", Quote: "A"}, domain.SideBuy, "10")

	plan := domain.Plan{Steps: []domain.PlanStep{
		{Actions: []domain.MarketAction{legA, legB}},
	}}

	mgr := newFakeOrderManager()
	mgr.fillOnPlace[legA.Pair.Symbol()] = true // B is placed but never fills

	exec := newTestExecutor(mgr)
	result := exec.Execute(context.Background(), domain.Arbitrage{}, plan)

	if result.Scenario != "reverted 1" {
		t.Errorf("scenario = %q, want %q", result.Scenario, "reverted 1")
	}

	revertSide := domain.SideBuy
	foundRevertOfA := false
	for _, req := range mgr.submitted {
		if req.Symbol == legA.Pair.Symbol() && req.OrderType == domain.OrderTypeMarket && req.Side == revertSide {
			foundRevertOfA = true
		}
	}
	if !foundRevertOfA {
		t.Error("expected the filled leg (A) to be reverted with an opposite-side MARKET order")
	}
}

// TestExecuteMiddleStepOfThreeUnfilledRevertsFirstStep covers the "step 2 of
// 3 never fills" scenario: step 1's already-filled leg must be compensated
// even though step 1 itself completed cleanly.
func TestExecuteMiddleStepOfThreeUnfilledRevertsFirstStep(t *testing.T) {
	legD := action(domain.Pair{Base: "D", Quote: "E"}, domain.SideSell, "10")
	legE := action(domain.Pair{Base: "E", Quote: "F"}, domain.SideBuy, "10")
	legF := action(domain.Pair{Base: "F", Quote: "D"}, domain.SideSell, "10")

	plan := domain.Plan{Steps: []domain.PlanStep{
		{Actions: []domain.MarketAction{legD}},
		{Actions: []domain.MarketAction{legE}},
		{Actions: []domain.MarketAction{legF}},
	}}

	mgr := newFakeOrderManager()
	mgr.fillOnPlace[legD.Pair.Symbol()] = true // step 1 fills; step 2 (legE) never does

	exec := newTestExecutor(mgr)
	result := exec.Execute(context.Background(), domain.Arbitrage{}, plan)

	if result.Scenario != "reverted 1" {
		t.Errorf("scenario = %q, want %q", result.Scenario, "reverted 1")
	}

	revertSideForD := domain.SideBuy
	foundRevertOfD := false
	for _, req := range mgr.submitted {
		if req.Symbol == legD.Pair.Symbol() && req.OrderType == domain.OrderTypeMarket && req.Side == revertSideForD {
			foundRevertOfD = true
		}
	}
	if !foundRevertOfD {
		t.Error("expected step 1's already-filled leg (D) to be reverted once step 2 failed to fill")
	}

	// legF (step 3) must never have been placed at all.
	for _, req := range mgr.submitted {
		if req.Symbol == legF.Pair.Symbol() && req.OrderType == domain.OrderTypeLimit {
			t.Error("step 3 should never have been attempted once step 2 failed to fill")
		}
	}
}

// TestExecuteAllLegsFillCleanly is the baseline: every leg of every step
// fills, so nothing is reverted or finalized.
func TestExecuteAllLegsFillCleanly(t *testing.T) {
	legA := action(domain.Pair{Base: "A", Quote: "B"}, domain.SideSell, "10")
	legB := action(domain.Pair{Base: "B", Quote: "C"}, domain.SideBuy, "10")
	legC := action(domain.Pair{Base: "C", Quote: "A"}, domain.SideSell, "10")

	plan := domain.Plan{Steps: []domain.PlanStep{
		{Actions: []domain.MarketAction{legA, legB, legC}},
	}}

	mgr := newFakeOrderManager()
	mgr.fillOnPlace[legA.Pair.Symbol()] = true
	mgr.fillOnPlace[legB.Pair.Symbol()] = true
	mgr.fillOnPlace[legC.Pair.Symbol()] = true

	exec := newTestExecutor(mgr)
	result := exec.Execute(context.Background(), domain.Arbitrage{}, plan)

	if result.Scenario != string(domain.ScenarioNormal) {
		t.Errorf("scenario = %q, want %q", result.Scenario, domain.ScenarioNormal)
	}
}
