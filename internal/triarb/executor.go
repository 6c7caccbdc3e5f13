package triarb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/config"
	"github.com/crypto-trading/trading/internal/domain"
	"github.com/crypto-trading/trading/internal/eventbus"
	"github.com/crypto-trading/trading/internal/execution"
	"github.com/crypto-trading/trading/internal/monitor"
)

// OrderManager is the subset of order.Manager the executor drives. Narrowed
// to an interface so tests can exercise Execute's state machine against a
// fake venue without a real gateway.
type OrderManager interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)
	CancelOrder(ctx context.Context, internalID uuid.UUID) error
	GetOrder(internalID uuid.UUID) (*domain.Order, bool)
}

// Executor drives a Plan through placement, fill-waiting, and compensating
// recovery trades. It owns its in-flight OrderResults and the timing vector
// for the duration of one execution, matching the source's per-execution
// ownership model. Recovery orders are submitted as soon as each is decided;
// there is no emergency-action queue.
type Executor struct {
	venue    string
	orderMgr OrderManager
	books    BookReader
	cfg      config.ArbitrageConfig
	bus      *eventbus.EventBus
	breaker  ScenarioObserver
	quality  *execution.QualityTracker
	metrics  *monitor.Metrics
	logger   *slog.Logger
}

// ScenarioObserver receives every execution's scenario label. internal/risk's
// CircuitBreaker implements this to count non-normal scenarios in a row.
type ScenarioObserver interface {
	Observe(scenario string)
}

func NewExecutor(
	venue string,
	orderMgr OrderManager,
	books BookReader,
	cfg config.ArbitrageConfig,
	bus *eventbus.EventBus,
	breaker ScenarioObserver,
	quality *execution.QualityTracker,
	metrics *monitor.Metrics,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		venue:    venue,
		orderMgr: orderMgr,
		books:    books,
		cfg:      cfg,
		bus:      bus,
		breaker:  breaker,
		quality:  quality,
		metrics:  metrics,
		logger:   logger,
	}
}

type legOutcome struct {
	action      domain.MarketAction
	internalID  uuid.UUID
	result      domain.OrderResult
	placeFailed bool
}

// Execute runs a Plan step by step to completion. Any step whose legs don't
// all fully fill triggers compensating recovery trades and stops the plan
// right there — later steps never run once an earlier one needs
// compensation, matching the source's per-step break semantics. Always
// emits an execution_finished event regardless of outcome.
func (e *Executor) Execute(ctx context.Context, arb domain.Arbitrage, plan domain.Plan) *domain.ExecutionResult {
	started := time.Now()
	result := &domain.ExecutionResult{
		Triangle:    arb.Triangle,
		Direction:   arb.Direction,
		Parallelism: plan.Parallelism(),
		StartedAt:   started,
	}

	var allLegs []domain.OrderResult
	var history [][]legOutcome
	scenario := string(domain.ScenarioNormal)

stepLoop:
	for stepIdx, step := range plan.Steps {
		isFirstStep := stepIdx == 0
		isMiddleOfThree := stepIdx == 1 && len(plan.Steps) == 3
		isLastStep := stepIdx == len(plan.Steps)-1

		outcomes := e.placeStep(ctx, step.Actions)

		var failedIdx, placedIdx []int
		for i, o := range outcomes {
			if o.placeFailed {
				failedIdx = append(failedIdx, i)
			} else {
				placedIdx = append(placedIdx, i)
			}
		}

		switch {
		case len(failedIdx) == len(outcomes):
			// Nothing in this step ever reached the venue: no cancel is
			// needed, only compensation for what a prior step already did.
			for _, i := range failedIdx {
				allLegs = append(allLegs, outcomes[i].result)
			}
			switch {
			case isFirstStep:
				scenario = string(domain.ScenarioFailed)
			case isMiddleOfThree:
				e.revertLeg(ctx, &history[0][0])
				scenario = "reverted 1"
			default:
				e.finalizeLeg(ctx, &outcomes[failedIdx[0]])
				scenario = string(domain.ScenarioFinalized)
			}
			history = append(history, outcomes)
			break stepLoop

		case len(failedIdx) == 1 && len(outcomes) == 2:
			// 1 of 2 failed to place: the sibling never gets a chance to
			// fill, revert it outright.
			reverted := e.revertLeg(ctx, &outcomes[placedIdx[0]])
			allLegs = append(allLegs, outcomes[0].result, outcomes[1].result)
			scenario = revertScenario(reverted)
			history = append(history, outcomes)
			break stepLoop

		case len(failedIdx) == 2 && len(outcomes) == 3:
			// 2 of 3 failed to place: revert the lone one that placed.
			reverted := e.revertLeg(ctx, &outcomes[placedIdx[0]])
			for i := range outcomes {
				allLegs = append(allLegs, outcomes[i].result)
			}
			scenario = revertScenario(reverted)
			history = append(history, outcomes)
			break stepLoop

		}

		// Either every leg placed, or exactly 1 of 3 failed and the other
		// two still race to fill; we'll decide its fate once we see how
		// they land.
		e.waitStep(ctx, outcomes, isLastStep, stepIdx)

		var filledIdx, unfilledIdx []int
		for _, i := range placedIdx {
			if outcomes[i].result.Status == domain.OrderResultFilled {
				filledIdx = append(filledIdx, i)
			} else {
				unfilledIdx = append(unfilledIdx, i)
			}
		}

		for i := range outcomes {
			allLegs = append(allLegs, outcomes[i].result)
		}
		history = append(history, outcomes)

		switch {
		case len(filledIdx) == len(outcomes):
			// Every leg of this step filled: carry on to the next step.
			continue

		case len(filledIdx) == 0:
			switch {
			case isFirstStep:
				reverts := 0
				for _, i := range unfilledIdx {
					if e.revertLeg(ctx, &outcomes[i]) {
						reverts++
					}
				}
				if reverts > 0 {
					scenario = fmt.Sprintf("reverted %d", reverts)
				} else {
					scenario = string(domain.ScenarioUnfilled)
				}
			case isMiddleOfThree:
				reverted := false
				for _, i := range unfilledIdx {
					if e.revertLeg(ctx, &outcomes[i]) {
						reverted = true
					}
				}
				e.revertLeg(ctx, &history[0][0])
				if reverted {
					scenario = "reverted 2"
				} else {
					scenario = "reverted 1"
				}
			default:
				finalized := 0
				for _, i := range unfilledIdx {
					if e.finalizeLeg(ctx, &outcomes[i]) {
						finalized++
					}
				}
				if finalized > 0 {
					scenario = string(domain.ScenarioFinalized)
				} else {
					scenario = string(domain.ScenarioNormal)
				}
			}
			break stepLoop

		case len(filledIdx) == 1 && len(outcomes) > 1:
			// Exactly one leg filled and the rest didn't: revert everything,
			// including the leg that did fill, regardless of step position.
			reverts := 0
			for _, i := range unfilledIdx {
				if e.revertLeg(ctx, &outcomes[i]) {
					reverts++
				}
			}
			if e.revertLeg(ctx, &outcomes[filledIdx[0]]) {
				reverts++
			}
			scenario = fmt.Sprintf("reverted %d", reverts)
			break stepLoop

		case len(filledIdx) == 2 && len(outcomes) == 3:
			// Only arises for a single 3-parallel-action step.
			if len(unfilledIdx) > 0 {
				if e.finalizeLeg(ctx, &outcomes[unfilledIdx[0]]) {
					scenario = string(domain.ScenarioFinalized)
				} else {
					scenario = string(domain.ScenarioNormal)
				}
			} else {
				// The third leg never placed at all.
				e.finalizeLeg(ctx, &outcomes[failedIdx[0]])
				scenario = string(domain.ScenarioFinalized)
			}
			break stepLoop
		}
	}

	result.Scenario = scenario
	result.Legs = allLegs
	result.CompletedAt = time.Now()
	result.CompletedInMs = result.CompletedAt.Sub(started).Milliseconds()
	startedMs := started.UnixMilli()
	for _, leg := range allLegs {
		placedIn := leg.PlacedAtMs - startedMs
		result.PerLegPlacedMs = append(result.PerLegPlacedMs, placedIn)
		if placedIn > result.AllPlacedInMs {
			result.AllPlacedInMs = placedIn
		}
		var doneIn int64
		if leg.DoneAtMs > 0 {
			doneIn = leg.DoneAtMs - startedMs
		}
		result.PerLegDoneMs = append(result.PerLegDoneMs, doneIn)
	}

	e.bus.PublishExecutionFinished(*result)
	if e.breaker != nil {
		e.breaker.Observe(scenario)
	}
	if e.metrics != nil {
		e.metrics.ArbExecutionScenarioTotal.WithLabelValues(e.venue, scenario).Inc()
	}

	e.logger.Info("arbitrage execution finished",
		"venue", e.venue,
		"triangle", arb.Triangle.Key(),
		"scenario", scenario,
		"completed_in_ms", result.CompletedInMs,
	)

	return result
}

// revertScenario labels a single-revert-or-nothing outcome: "reverted 1" if
// the compensating trade was actually issued, "failed" if there was nothing
// to revert (the sibling never filled either).
func revertScenario(reverted bool) string {
	if reverted {
		return "reverted 1"
	}
	return string(domain.ScenarioFailed)
}

// placeStep submits every action of a step concurrently.
func (e *Executor) placeStep(ctx context.Context, actions []domain.MarketAction) []legOutcome {
	outcomes := make([]legOutcome, len(actions))

	var wg sync.WaitGroup
	for i, act := range actions {
		wg.Add(1)
		go func(i int, act domain.MarketAction) {
			defer wg.Done()
			outcomes[i] = e.placeLeg(ctx, act)
		}(i, act)
	}
	wg.Wait()

	return outcomes
}

func (e *Executor) placeLeg(ctx context.Context, act domain.MarketAction) legOutcome {
	internalID := uuid.New()
	req := domain.OrderRequest{
		InternalID:     internalID,
		Venue:          e.venue,
		Symbol:         act.Pair.Symbol(),
		Side:           act.Side,
		InstrumentType: domain.InstrumentSpot,
		OrderType:      domain.OrderTypeLimit,
		Price:          act.Price,
		Size:           act.Amount,
	}

	placedAt := time.Now().UnixMilli()

	o, err := e.orderMgr.SubmitOrder(ctx, req)
	if err != nil {
		return legOutcome{
			action:      act,
			placeFailed: true,
			result: domain.OrderResult{
				Symbol:         act.Pair.Symbol(),
				Side:           act.Side,
				Price:          act.Price,
				AmountOriginal: act.Amount,
				Status:         domain.OrderResultOther,
				PlacedAtMs:     placedAt,
			},
		}
	}

	return legOutcome{
		action:     act,
		internalID: o.InternalID,
		result: domain.OrderResult{
			Symbol:         act.Pair.Symbol(),
			OrderID:        o.VenueID,
			Side:           act.Side,
			Price:          act.Price,
			AmountOriginal: act.Amount,
			Status:         domain.OrderResultNew,
			PlacedAtMs:     placedAt,
		},
	}
}

// waitStep runs an independent wait loop per placed order, joined with a
// "wait for all" combinator.
func (e *Executor) waitStep(ctx context.Context, outcomes []legOutcome, isLastStep bool, stepIdx int) {
	var wg sync.WaitGroup
	for i := range outcomes {
		if outcomes[i].placeFailed {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.waitLeg(ctx, &outcomes[i], isLastStep, stepIdx)
		}(i)
	}
	wg.Wait()
}

func (e *Executor) waitLeg(ctx context.Context, o *legOutcome, isLastStep bool, stepIdx int) {
	waitStart := time.Now()
	if e.metrics != nil {
		defer func() {
			e.metrics.ArbFillWaitDuration.WithLabelValues(e.venue, fmt.Sprintf("%d", stepIdx)).
				Observe(float64(time.Since(waitStart).Milliseconds()))
		}()
	}

	minFillTime := e.cfg.MinFillTime()
	if isLastStep {
		minFillTime = e.cfg.MinFillTimeLast()
	}
	maxFillTime := e.cfg.MaxFillTime()
	interval := e.cfg.CheckOrderInterval()

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastOrd *domain.Order
	defer func() {
		if lastOrd != nil {
			e.recordFillQuality(o.action, lastOrd)
		}
	}()

	for {
		ord, ok := e.orderMgr.GetOrder(o.internalID)
		if ok {
			lastOrd = ord
			o.result.AmountExecuted = ord.FilledSize
			o.result.QuoteAmountExecuted = ord.FilledSize.Mul(ord.AvgFillPrice)

			if ord.Status == domain.OrderStatusFilled {
				o.result.Status = domain.OrderResultFilled
				o.result.DoneAtMs = time.Now().UnixMilli()
				return
			}
			if ord.Status.IsTerminal() {
				if ord.FilledSize.IsPositive() {
					o.result.Status = domain.OrderResultPartiallyFilled
				} else {
					o.result.Status = domain.OrderResultCancelled
				}
				o.result.DoneAtMs = time.Now().UnixMilli()
				return
			}
		}

		elapsed := time.Since(start)

		if elapsed >= minFillTime {
			remaining := o.action.Amount
			if ok {
				remaining = ord.Size.Sub(ord.FilledSize)
			}
			ahead := GetBookVolumeInFront(e.books, e.venue, o.action.Pair.Symbol(), o.action.Side, o.action.Price)
			if ahead.GreaterThanOrEqual(remaining) {
				// Lost in the book: give up, regardless of fill fraction so far.
				o.result.Status = fillStatusFromFraction(o.result.AmountExecuted, o.action.Amount)
				o.result.DoneAtMs = time.Now().UnixMilli()
				return
			}
		}

		if elapsed >= maxFillTime {
			o.result.Status = fillStatusFromFraction(o.result.AmountExecuted, o.action.Amount)
			o.result.DoneAtMs = time.Now().UnixMilli()
			return
		}

		select {
		case <-ctx.Done():
			o.result.Status = fillStatusFromFraction(o.result.AmountExecuted, o.action.Amount)
			o.result.DoneAtMs = time.Now().UnixMilli()
			return
		case <-ticker.C:
		}
	}
}

// recordFillQuality feeds a completed leg's expected vs. actual fill price
// into the shared slippage tracker, when one is configured.
func (e *Executor) recordFillQuality(action domain.MarketAction, ord *domain.Order) {
	if e.quality == nil || !ord.FilledSize.IsPositive() {
		return
	}
	e.quality.RecordFill(action.Pair.Symbol(), string(action.Side), action.Price, ord.AvgFillPrice)
}

func fillStatusFromFraction(executed, original decimal.Decimal) domain.OrderResultStatus {
	if executed.IsPositive() && executed.LessThan(original) {
		return domain.OrderResultPartiallyFilled
	}
	if executed.GreaterThanOrEqual(original) && original.IsPositive() {
		return domain.OrderResultFilled
	}
	return domain.OrderResultNew
}

// cancelIdempotent cancels a leg that never reached Filled. If the venue
// reports "unknown order", the source re-queries status: if Filled, treat as
// filled rather than cancellable.
func (e *Executor) cancelIdempotent(ctx context.Context, o *legOutcome) {
	if err := e.orderMgr.CancelOrder(ctx, o.internalID); err != nil {
		if ord, ok := e.orderMgr.GetOrder(o.internalID); ok && ord.Status == domain.OrderStatusFilled {
			o.result.Status = domain.OrderResultFilled
			o.result.AmountExecuted = ord.FilledSize
		}
		return
	}
	if o.result.Status != domain.OrderResultPartiallyFilled {
		o.result.Status = domain.OrderResultCancelled
	}
}

// revertLeg cancels a leg if still open and places a MARKET order in the
// opposite direction for the amount filled, net of fee. A leg from a step
// already known to be fully filled (e.g. a prior step being compensated for
// a later step's failure) cancels as a no-op and reverts its full original
// amount. Reports whether a revert order was actually issued.
func (e *Executor) revertLeg(ctx context.Context, o *legOutcome) bool {
	if o.result.Status != domain.OrderResultFilled {
		e.cancelIdempotent(ctx, o)
	}

	oneMinusFee := decimal.NewFromInt(1).Sub(e.cfg.TradeFee)
	amount := o.result.AmountExecuted.Mul(oneMinusFee)
	if amount.LessThanOrEqual(decimal.Zero) {
		return false
	}

	revertSide := domain.SideBuy
	if o.action.Side == domain.SideBuy {
		revertSide = domain.SideSell
	}

	e.placeEmergency(ctx, o.action.Pair, revertSide, amount, domain.OrderTypeMarket)
	return true
}

// finalizeLeg cancels a leg if still open and places a MARKET order in the
// same direction to complete the unfilled remainder. A leg that never placed
// at all cancels as a no-op and finalizes its full original amount. Reports
// whether a finalize order was actually issued.
func (e *Executor) finalizeLeg(ctx context.Context, o *legOutcome) bool {
	e.cancelIdempotent(ctx, o)

	remaining := o.action.Amount.Sub(o.result.AmountExecuted)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return false
	}

	e.placeEmergency(ctx, o.action.Pair, o.action.Side, remaining, domain.OrderTypeMarket)
	return true
}

// placeEmergency submits a recovery MARKET order, retrying once at half the
// amount if the venue rejects it. The retry follows any rejection: the error
// is not inspected for an insufficient-balance cause, and the halved amount
// is not checked against min_amount. A further
// failure of the emergency trade is not chained into another recovery
// attempt.
func (e *Executor) placeEmergency(ctx context.Context, pair domain.Pair, side domain.Side, amount decimal.Decimal, orderType domain.OrderType) {
	req := domain.OrderRequest{
		InternalID:     uuid.New(),
		Venue:          e.venue,
		Symbol:         pair.Symbol(),
		Side:           side,
		InstrumentType: domain.InstrumentSpot,
		OrderType:      orderType,
		Size:           amount,
	}

	if _, err := e.orderMgr.SubmitOrder(ctx, req); err != nil {
		e.logger.Warn("emergency order rejected, retrying at reduced amount",
			"symbol", pair.Symbol(), "error", err)

		req.InternalID = uuid.New()
		req.Size = amount.Mul(decimal.NewFromFloat(0.5))
		if _, err := e.orderMgr.SubmitOrder(ctx, req); err != nil {
			e.logger.Error("emergency order failed after retry",
				"symbol", pair.Symbol(), "error", err)
		}
	}
}
