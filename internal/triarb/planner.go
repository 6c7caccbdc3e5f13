package triarb

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/domain"
)

// ErrNotATriangle is returned when the three incoming actions cannot be
// rotated/reflected into a closed input→output chain.
var ErrNotATriangle = errors.New("triarb: actions do not close into a triangle")

// ErrMinParallelActions is returned when the selected plan's first step has
// fewer parallel legs than configured. Classified as scenario `failed`,
// matching the source's Error path, which never reaches order placement.
var ErrMinParallelActions = errors.New("triarb: plan does not meet min_parallel_actions")

// Planner turns a detected Arbitrage plus current balances into an
// execution Plan.
type Planner struct {
	minParallelActions int
	reduceFactor       decimal.Decimal
	minProfit          decimal.Decimal
	fee                decimal.Decimal
	reqs               map[string]domain.SymbolRequirements
}

func NewPlanner(minParallelActions int, reduceFactor, minProfit, fee decimal.Decimal, reqs map[string]domain.SymbolRequirements) *Planner {
	return &Planner{
		minParallelActions: minParallelActions,
		reduceFactor:       reduceFactor,
		minProfit:          minProfit,
		fee:                fee,
		reqs:               reqs,
	}
}

func spendableAsset(a domain.MarketAction) string {
	if a.Side == domain.SideBuy {
		return a.Pair.Quote
	}
	return a.Pair.Base
}

func outputAsset(a domain.MarketAction) string {
	if a.Side == domain.SideBuy {
		return a.Pair.Base
	}
	return a.Pair.Quote
}

func amountNeeded(a domain.MarketAction) decimal.Decimal {
	if a.Side == domain.SideBuy {
		return a.Price.Mul(a.Amount)
	}
	return a.Amount
}

// Canonicalize rotates/reflects the three actions so each leg's output asset
// feeds the next leg's spendable asset. The closed cycle starts from the leg
// with the lexicographically smallest symbol, so the result does not depend
// on the order the actions arrive in. Returns ErrNotATriangle if no
// rotation/reflection closes the cycle.
func Canonicalize(actions [3]domain.MarketAction) ([3]domain.MarketAction, error) {
	candidates := [][3]domain.MarketAction{
		{actions[0], actions[1], actions[2]},
		{actions[1], actions[2], actions[0]},
		{actions[2], actions[0], actions[1]},
		{actions[0], actions[2], actions[1]},
		{actions[2], actions[1], actions[0]},
		{actions[1], actions[0], actions[2]},
	}

	for _, c := range candidates {
		if outputAsset(c[0]) == spendableAsset(c[1]) &&
			outputAsset(c[1]) == spendableAsset(c[2]) &&
			outputAsset(c[2]) == spendableAsset(c[0]) {
			start := 0
			for i := 1; i < 3; i++ {
				if c[i].Pair.Symbol() < c[start].Pair.Symbol() {
					start = i
				}
			}
			return rotateFrom(c, start), nil
		}
	}

	return actions, ErrNotATriangle
}

type legRatio struct {
	index int
	ratio decimal.Decimal
}

// Plan builds the execution plan for an arbitrage given current per-asset
// balances.
func (p *Planner) Plan(arb domain.Arbitrage, balances map[string]decimal.Decimal) (*domain.Plan, error) {
	actions, err := Canonicalize(arb.Actions)
	if err != nil {
		return nil, err
	}

	ratios := make([]legRatio, 3)
	for i, a := range actions {
		bal := balances[spendableAsset(a)]
		needed := amountNeeded(a)
		if needed.IsZero() {
			ratios[i] = legRatio{index: i, ratio: decimal.NewFromInt(1)}
			continue
		}
		ratios[i] = legRatio{index: i, ratio: bal.Div(needed)}
	}

	sorted := append([]legRatio{}, ratios...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].ratio.LessThan(sorted[j-1].ratio); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	min, mid, max := sorted[0], sorted[1], sorted[2]

	one := decimal.NewFromInt(1)

	var plan domain.Plan

	switch {
	case min.ratio.GreaterThanOrEqual(one):
		plan = domain.Plan{Steps: []domain.PlanStep{
			{Actions: []domain.MarketAction{actions[0], actions[1], actions[2]}},
		}}

	case mid.ratio.GreaterThanOrEqual(one):
		plan = domain.Plan{Steps: []domain.PlanStep{
			{Actions: []domain.MarketAction{actions[mid.index], actions[max.index]}},
			{Actions: []domain.MarketAction{actions[min.index]}},
		}}

	case max.ratio.GreaterThanOrEqual(one):
		order := rotateFrom(actions, max.index)
		plan = domain.Plan{Steps: []domain.PlanStep{
			{Actions: []domain.MarketAction{order[0]}},
			{Actions: []domain.MarketAction{order[1]}},
			{Actions: []domain.MarketAction{order[2]}},
		}}

	default:
		reduced, ok := p.reduce(arb, actions, max.ratio)
		if !ok {
			return nil, ErrNotATriangle
		}
		plan = domain.Plan{Steps: []domain.PlanStep{
			{Actions: []domain.MarketAction{reduced[0], reduced[1], reduced[2]}},
		}}
	}

	if plan.Parallelism() < p.minParallelActions {
		return nil, ErrMinParallelActions
	}

	return &plan, nil
}

func rotateFrom(actions [3]domain.MarketAction, start int) [3]domain.MarketAction {
	return [3]domain.MarketAction{actions[start], actions[(start+1)%3], actions[(start+2)%3]}
}

// reduce scales every leg's amount by factor, then re-snaps each leg to its
// symbol's lot constraints exactly as the normaliser's step 1 does: a uniform
// scale-down leaves profitability sign unchanged, but it can easily push a
// leg's amount below min_amount or its notional below min_notional, which
// scaling alone never catches. Mirrors reduce_arbitrage ->
// normalize_amounts_and_recalculate: any leg that can't be re-snapped makes
// the whole reduction inexecutable.
func (p *Planner) reduce(arb domain.Arbitrage, actions [3]domain.MarketAction, factor decimal.Decimal) ([3]domain.MarketAction, bool) {
	if factor.LessThanOrEqual(decimal.Zero) || factor.GreaterThan(decimal.NewFromInt(1)) {
		factor = p.reduceFactor
	}

	if arb.ProfitZRel.LessThan(p.minProfit) {
		return actions, false
	}

	reduced := actions
	for i := range reduced {
		req, ok := p.reqs[reduced[i].Pair.Symbol()]
		if !ok {
			return actions, false
		}

		amount := reduced[i].Amount.Mul(factor)
		amount = quantizeDown(amount, req.AmountStep)
		if amount.LessThan(req.MinAmount) {
			return actions, false
		}
		if amount.Mul(reduced[i].Price).LessThan(req.MinNotional) {
			return actions, false
		}

		reduced[i].Amount = amount
	}

	return reduced, true
}
