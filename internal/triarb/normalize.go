package triarb

import (
	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/domain"
)

// NormalizeInput bundles everything the normaliser needs: raw accumulated
// amounts from the scanner, the marginal prices used to derive them, the
// full ladder snapshots for the final counter-amount-walk recompute, and the
// symbol lot constraints for each of the three legs.
type NormalizeInput struct {
	Direction domain.CycleDirection

	YZReq domain.SymbolRequirements
	XZReq domain.SymbolRequirements
	XYReq domain.SymbolRequirements

	AmountY      decimal.Decimal
	AmountXBuy   decimal.Decimal
	AmountXSell  decimal.Decimal

	MarginalYZPrice decimal.Decimal
	MarginalXZPrice decimal.Decimal
	MarginalXYPrice decimal.Decimal

	YZLevels []domain.BookLevel
	XZLevels []domain.BookLevel
	XYLevels []domain.BookLevel

	Fee          decimal.Decimal
	MinProfit    decimal.Decimal
	ReduceFactor decimal.Decimal
}

// NormalizeResult is the snapped, non-negativity-restored, recomputed plan
// of record for an opportunity.
type NormalizeResult struct {
	AmountY     decimal.Decimal
	AmountXBuy  decimal.Decimal
	AmountXSell decimal.Decimal

	ZSpend     decimal.Decimal
	ZProfit    decimal.Decimal
	ProfitRel  decimal.Decimal
	XProfit    decimal.Decimal
	YProfit    decimal.Decimal
}

// Normalize runs the four-step amount normalisation against lot constraints.
// Returns (nil, false) wherever the source returns None: the opportunity is
// not executable.
func Normalize(in NormalizeInput) (*NormalizeResult, bool) {
	oneMinusFee := decimal.NewFromInt(1).Sub(in.Fee)

	// Step 4 (applied first): scale raw amounts away from the ladder edge.
	amountY := in.AmountY.Mul(in.ReduceFactor)
	amountXBuy := in.AmountXBuy.Mul(in.ReduceFactor)
	amountXSell := in.AmountXSell.Mul(in.ReduceFactor)

	// Step 1: snap each leg to its symbol's lot constraints.
	var ok bool
	amountY, ok = snapAmount(amountY, in.MarginalYZPrice, in.YZReq)
	if !ok {
		return nil, false
	}
	amountXBuy, ok = snapAmount(amountXBuy, in.MarginalXZPrice, in.XZReq)
	if !ok {
		return nil, false
	}
	amountXSell, ok = snapAmount(amountXSell, in.MarginalXYPrice, in.XYReq)
	if !ok {
		return nil, false
	}

	// Step 2: restore non-negativity across the three legs.
	if in.Direction == domain.DirectionA {
		for amountXBuy.Mul(oneMinusFee).Sub(amountXSell).IsNegative() {
			amountXSell = amountXSell.Sub(in.XYReq.AmountStep)
			if amountXSell.LessThan(in.XYReq.MinAmount) {
				return nil, false
			}
		}

		yReceived := walkLadder(in.XYLevels, amountXSell).Mul(oneMinusFee)
		for yReceived.Sub(amountY).IsNegative() {
			amountY = amountY.Sub(in.YZReq.AmountStep)
			if amountY.LessThan(in.YZReq.MinAmount) {
				return nil, false
			}
		}
	} else {
		for amountY.Sub(amountXBuy.Mul(in.MarginalXYPrice)).IsNegative() {
			amountXBuy = amountXBuy.Sub(in.XYReq.AmountStep)
			if amountXBuy.LessThan(in.XYReq.MinAmount) {
				return nil, false
			}
		}

		for amountXBuy.Mul(oneMinusFee).Sub(amountXSell).IsNegative() {
			amountXSell = amountXSell.Sub(in.XZReq.AmountStep)
			if amountXSell.LessThan(in.XZReq.MinAmount) {
				return nil, false
			}
		}
	}

	// Step 3: recompute true Z-spend/Z-got by walking the actual ladders.
	var zSpend, zGot decimal.Decimal
	var xProfit, yProfit decimal.Decimal

	if in.Direction == domain.DirectionA {
		zSpend = walkLadder(in.XZLevels, amountXBuy)
		zGot = walkLadder(in.YZLevels, amountY).Mul(oneMinusFee)
		yProfit = walkLadder(in.XYLevels, amountXSell).Mul(oneMinusFee).Sub(amountY)
		xProfit = amountXBuy.Mul(oneMinusFee).Sub(amountXSell)
	} else {
		zSpend = walkLadder(in.YZLevels, amountY)
		zGot = walkLadder(in.XZLevels, amountXSell).Mul(oneMinusFee)
		yProfit = amountY.Sub(amountXBuy.Mul(in.MarginalXYPrice))
		xProfit = amountXBuy.Mul(oneMinusFee).Sub(amountXSell)
	}

	zProfit := zGot.Sub(zSpend)
	if zProfit.IsNegative() {
		return nil, false
	}
	if zSpend.IsZero() {
		return nil, false
	}

	profitRel := zProfit.Div(zSpend)
	if profitRel.LessThan(in.MinProfit) {
		return nil, false
	}

	return &NormalizeResult{
		AmountY:     amountY,
		AmountXBuy:  amountXBuy,
		AmountXSell: amountXSell,
		ZSpend:      zSpend,
		ZProfit:     zProfit,
		ProfitRel:   profitRel,
		XProfit:     xProfit,
		YProfit:     yProfit,
	}, true
}

// snapAmount implements normaliser step 1 for a single leg: reject below
// minimum, cap above maximum, round down to amount_step (ROUND_DOWN, never
// binary float), then enforce the notional floor.
func snapAmount(amount, price decimal.Decimal, req domain.SymbolRequirements) (decimal.Decimal, bool) {
	if amount.LessThan(req.MinAmount) {
		return decimal.Zero, false
	}
	if amount.GreaterThan(req.MaxAmount) {
		amount = req.MaxAmount
	}

	amount = quantizeDown(amount, req.AmountStep)
	if amount.LessThan(req.MinAmount) {
		return decimal.Zero, false
	}

	if amount.Mul(price).LessThan(req.MinNotional) {
		return decimal.Zero, false
	}

	return amount, true
}

// quantizeDown rounds a positive amount down to the nearest multiple of step.
func quantizeDown(amount, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return amount
	}
	units := amount.Div(step).Floor()
	return units.Mul(step)
}
