package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pair is an ordered base/quote currency pair. Symbol is the venue-specific
// concatenation (e.g. "BTC/USDT" internally, mapped via MapSymbol for wire use).
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) Symbol() string {
	return p.Base + "/" + p.Quote
}

// CycleDirection is one of the two ways a Triangle can be walked.
type CycleDirection string

const (
	// DirectionA sells Y/Z, buys X/Z, sells X/Y.
	DirectionA CycleDirection = "A"
	// DirectionB buys Y/Z, sells X/Z, buys X/Y.
	DirectionB CycleDirection = "B"
)

// Triangle is a canonically ordered triple of pairs ((Y,Z),(X,Z),(X,Y))
// satisfying pair[0].Base==pair[2].Quote, pair[0].Quote==pair[1].Quote,
// pair[1].Base==pair[2].Base. Immutable once built by the indexer.
type Triangle struct {
	YZ Pair
	XZ Pair
	XY Pair
}

// Key identifies a triangle independent of which symbols happen to name it,
// for use as a map key in the opportunity age tracker.
func (t Triangle) Key() string {
	return t.YZ.Symbol() + "|" + t.XZ.Symbol() + "|" + t.XY.Symbol()
}

// SortedAssetLabel names a triangle by its three assets in alphabetical
// order, independent of which pair sides they happen to sit on. Used for
// persistence and logging where the same triangle should read the same way
// regardless of venue symbol naming.
func (t Triangle) SortedAssetLabel() string {
	assets := []string{t.YZ.Base, t.YZ.Quote, t.XZ.Base}
	for i := 1; i < len(assets); i++ {
		for j := i; j > 0 && assets[j] < assets[j-1]; j-- {
			assets[j], assets[j-1] = assets[j-1], assets[j]
		}
	}
	return assets[0] + "-" + assets[1] + "-" + assets[2]
}

// Closed reports whether the triple satisfies the canonical closure identity.
func (t Triangle) Closed() bool {
	return t.YZ.Base == t.XY.Quote && t.YZ.Quote == t.XZ.Quote && t.XZ.Base == t.XY.Base
}

// SymbolRequirements captures an exchange's lot/notional constraints for one symbol.
type SymbolRequirements struct {
	Symbol     string
	Base       string
	Quote      string
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	AmountStep decimal.Decimal
	MinNotional decimal.Decimal
}

// BookLevel is one rung of a ladder: exact price and volume.
type BookLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// MarketAction is a single prospective leg of an arbitrage cycle.
type MarketAction struct {
	Pair   Pair
	Side   Side
	Price  decimal.Decimal
	Amount decimal.Decimal
}

func (a MarketAction) Notional() decimal.Decimal {
	return a.Price.Mul(a.Amount)
}

// Arbitrage is a detected, normalised opportunity ready to be planned.
type Arbitrage struct {
	Triangle      Triangle
	Direction     CycleDirection
	Actions       [3]MarketAction
	BaseCurrency  string // X
	CrossCurrency string // Y
	QuoteCurrency string // Z
	AmountZSpend  decimal.Decimal
	ProfitZ       decimal.Decimal
	ProfitZRel    decimal.Decimal
	ProfitX       decimal.Decimal
	ProfitY       decimal.Decimal
	Depth         int
	BookSnapshots [3]OrderBookSnapshot
	DetectedAtMs  int64
}

// PlanStep is a set of actions meant to execute concurrently.
type PlanStep struct {
	Actions []MarketAction
}

// Plan is an ordered sequence of steps produced by the action planner.
// Total leg count across all steps is always 3.
type Plan struct {
	Steps []PlanStep
}

func (p Plan) Parallelism() int {
	if len(p.Steps) == 0 {
		return 0
	}
	return len(p.Steps[0].Actions)
}

type OrderResultStatus string

const (
	OrderResultNew             OrderResultStatus = "New"
	OrderResultPartiallyFilled OrderResultStatus = "PartiallyFilled"
	OrderResultFilled          OrderResultStatus = "Filled"
	OrderResultCancelled       OrderResultStatus = "Cancelled"
	OrderResultOther           OrderResultStatus = "Other"
)

// OrderResult reports the outcome of one placed leg.
type OrderResult struct {
	Symbol               string
	OrderID              string
	Side                 Side
	Price                decimal.Decimal
	AmountOriginal       decimal.Decimal
	AmountExecuted       decimal.Decimal
	QuoteAmountExecuted  decimal.Decimal
	Status               OrderResultStatus
	PlacedAtMs           int64
	DoneAtMs             int64
}

// FillFraction maps a result onto [-1,1]: -1 failed, 0 unfilled, fraction
// partial, 1 filled.
func (r OrderResult) FillFraction() decimal.Decimal {
	if r.Status == OrderResultOther {
		return decimal.NewFromInt(-1)
	}
	if r.AmountOriginal.IsZero() {
		return decimal.Zero
	}
	return r.AmountExecuted.Div(r.AmountOriginal)
}

type ExecutionScenario string

const (
	ScenarioNormal   ExecutionScenario = "normal"
	ScenarioUnfilled ExecutionScenario = "unfilled"
	ScenarioFailed   ExecutionScenario = "failed"
	ScenarioFinalized ExecutionScenario = "finalized"
	// ScenarioReverted is formatted "reverted N" at construction time.
)

// ExecutionResult summarises one full plan execution.
type ExecutionResult struct {
	Triangle       Triangle
	Direction      CycleDirection
	Parallelism    int
	Scenario       string
	Legs           []OrderResult
	AllPlacedInMs  int64
	PerLegPlacedMs []int64
	PerLegDoneMs   []int64
	CompletedInMs  int64
	StartedAt      time.Time
	CompletedAt    time.Time
}
