package triarb

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/config"
	"github.com/crypto-trading/trading/internal/domain"
	"github.com/crypto-trading/trading/internal/eventbus"
	"github.com/crypto-trading/trading/internal/monitor"
)

// Detector owns the triangle index, the symbol requirement table, the
// persistence filter's age map, and the book handle. It is never a
// singleton: one Detector per venue.
type Detector struct {
	mu sync.RWMutex

	venue string
	index *Index
	reqs  map[string]domain.SymbolRequirements
	books BookReader
	ages  *AgeTracker

	cfg     config.ArbitrageConfig
	bus     *eventbus.EventBus
	metrics *monitor.Metrics
	logger  *slog.Logger
}

func NewDetector(
	venue string,
	index *Index,
	reqs map[string]domain.SymbolRequirements,
	books BookReader,
	cfg config.ArbitrageConfig,
	bus *eventbus.EventBus,
	metrics *monitor.Metrics,
	logger *slog.Logger,
) *Detector {
	return &Detector{
		venue:   venue,
		index:   index,
		reqs:    reqs,
		books:   books,
		ages:    NewAgeTracker(),
		cfg:     cfg,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
}

// OnBookChange is the scanner's trigger: re-evaluate every triangle touching
// the changed symbol, in both cycle directions.
func (d *Detector) OnBookChange(symbol string) {
	for _, t := range d.index.TrianglesFor(symbol) {
		d.scanTriangle(t, domain.DirectionA)
		d.scanTriangle(t, domain.DirectionB)
	}
}

func (d *Detector) scanTriangle(t domain.Triangle, dir domain.CycleDirection) {
	now := time.Now()

	scanStart := time.Now()
	arb, profitable := d.evaluate(t, dir, now)
	if d.metrics != nil {
		d.metrics.ArbScanLatency.WithLabelValues(d.venue).Observe(float64(time.Since(scanStart).Microseconds()))
	}

	age, disappeared := d.ages.Observe(t, dir, profitable, now)
	if disappeared {
		d.bus.PublishArbitrageDisappeared(eventbus.ArbitrageDisappeared{Triangle: t, Direction: dir})
		return
	}
	if !profitable {
		if d.metrics != nil {
			d.metrics.ArbNormalizeRejectTotal.WithLabelValues(d.venue).Inc()
		}
		return
	}

	if !Qualifies(age, arb.Depth, d.cfg.MinArbAge(), d.cfg.MinArbDepth) {
		return
	}

	if d.metrics != nil {
		d.metrics.ArbOpportunitiesTotal.WithLabelValues(d.venue, string(dir)).Inc()
	}

	d.bus.PublishArbitrageDetected(*arb)
	d.logger.Info("arbitrage detected",
		"venue", d.venue,
		"triangle", t.Key(),
		"direction", dir,
		"profit_z_rel", arb.ProfitZRel.String(),
		"depth", arb.Depth,
	)
}

// evaluate runs one scanner pass over a (triangle, direction): the
// depth-limited book walk of §4.2, then normalisation of §4.3. It returns
// (nil, false) when the opportunity is not currently profitable/executable.
func (d *Detector) evaluate(t domain.Triangle, dir domain.CycleDirection, now time.Time) (*domain.Arbitrage, bool) {
	yzSnap, yzOK := d.books.GetOrderBook(d.venue, t.YZ.Symbol())
	xzSnap, xzOK := d.books.GetOrderBook(d.venue, t.XZ.Symbol())
	xySnap, xyOK := d.books.GetOrderBook(d.venue, t.XY.Symbol())
	if !yzOK || !xzOK || !xyOK {
		return nil, false
	}

	yzReq, xzReq, xyReq := d.reqs[t.YZ.Symbol()], d.reqs[t.XZ.Symbol()], d.reqs[t.XY.Symbol()]

	var yzFullLevels, xzFullLevels, xyFullLevels []domain.BookLevel
	if dir == domain.DirectionA {
		yzFullLevels = toLevels(yzSnap.Bids)
		xzFullLevels = toLevels(xzSnap.Asks)
		xyFullLevels = toLevels(xySnap.Bids)
	} else {
		yzFullLevels = toLevels(yzSnap.Asks)
		xzFullLevels = toLevels(xzSnap.Bids)
		xyFullLevels = toLevels(xySnap.Asks)
	}

	if len(yzFullLevels) == 0 || len(xzFullLevels) == 0 || len(xyFullLevels) == 0 {
		return nil, false
	}

	yzLevels := cloneLevels(yzFullLevels)
	xzLevels := cloneLevels(xzFullLevels)
	xyLevels := cloneLevels(xyFullLevels)

	fee := d.cfg.TradeFee
	oneMinusFee := decimal.NewFromInt(1).Sub(fee)
	feeCubed := oneMinusFee.Mul(oneMinusFee).Mul(oneMinusFee)

	var totalY, totalXBuy, totalXSell decimal.Decimal
	var lastYZ, lastXZ, lastXY domain.BookLevel
	depth := 0

	for len(yzLevels) > 0 && len(xzLevels) > 0 && len(xyLevels) > 0 {
		p1, p2, p3 := yzLevels[0].Price, xzLevels[0].Price, xyLevels[0].Price

		r := p1.Div(p2).Mul(p3).Mul(feeCubed).Sub(decimal.NewFromInt(1))
		if r.LessThan(d.cfg.MinProfit) {
			break
		}

		amountY, amountXBuy, amountXSell, ok := calcAmountsOnLevel(dir, yzLevels[0], xzLevels[0], xyLevels[0], fee)
		if !ok {
			d.logger.Error("amount calculation exceeded level volume, aborting scan",
				"triangle", t.Key(), "direction", dir)
			break
		}

		depth++
		totalY = totalY.Add(amountY)
		totalXBuy = totalXBuy.Add(amountXBuy)
		totalXSell = totalXSell.Add(amountXSell)
		lastYZ, lastXZ, lastXY = yzLevels[0], xzLevels[0], xyLevels[0]

		yzLevels[0].Volume = yzLevels[0].Volume.Sub(amountY)
		xzLevels[0].Volume = xzLevels[0].Volume.Sub(amountXBuy)
		xyLevels[0].Volume = xyLevels[0].Volume.Sub(amountXSell)

		if yzLevels[0].Volume.IsZero() {
			yzLevels = yzLevels[1:]
		}
		if xzLevels[0].Volume.IsZero() {
			xzLevels = xzLevels[1:]
		}
		if xyLevels[0].Volume.IsZero() {
			xyLevels = xyLevels[1:]
		}
	}

	if depth == 0 {
		return nil, false
	}

	result, ok := Normalize(NormalizeInput{
		Direction:       dir,
		YZReq:           yzReq,
		XZReq:           xzReq,
		XYReq:           xyReq,
		AmountY:         totalY,
		AmountXBuy:      totalXBuy,
		AmountXSell:     totalXSell,
		MarginalYZPrice: lastYZ.Price,
		MarginalXZPrice: lastXZ.Price,
		MarginalXYPrice: lastXY.Price,
		YZLevels:        yzFullLevels,
		XZLevels:        xzFullLevels,
		XYLevels:        xyFullLevels,
		Fee:             fee,
		MinProfit:       d.cfg.MinProfit,
		ReduceFactor:    d.cfg.AmountReduceFactor,
	})
	if !ok {
		return nil, false
	}

	actions := buildActions(t, dir, result, lastYZ.Price, lastXZ.Price, lastXY.Price)

	arb := &domain.Arbitrage{
		Triangle:      t,
		Direction:     dir,
		Actions:       actions,
		BaseCurrency:  t.XY.Base,
		CrossCurrency: t.XY.Quote,
		QuoteCurrency: t.XZ.Quote,
		AmountZSpend:  result.ZSpend,
		ProfitZ:       result.ZProfit,
		ProfitZRel:    result.ProfitRel,
		ProfitX:       result.XProfit,
		ProfitY:       result.YProfit,
		Depth:         depth,
		BookSnapshots: [3]domain.OrderBookSnapshot{*yzSnap, *xzSnap, *xySnap},
		DetectedAtMs:  now.UnixMilli(),
	}

	return arb, true
}

func buildActions(t domain.Triangle, dir domain.CycleDirection, r *NormalizeResult, yzPrice, xzPrice, xyPrice decimal.Decimal) [3]domain.MarketAction {
	if dir == domain.DirectionA {
		return [3]domain.MarketAction{
			{Pair: t.YZ, Side: domain.SideSell, Price: yzPrice, Amount: r.AmountY},
			{Pair: t.XZ, Side: domain.SideBuy, Price: xzPrice, Amount: r.AmountXBuy},
			{Pair: t.XY, Side: domain.SideSell, Price: xyPrice, Amount: r.AmountXSell},
		}
	}
	return [3]domain.MarketAction{
		{Pair: t.YZ, Side: domain.SideBuy, Price: yzPrice, Amount: r.AmountY},
		{Pair: t.XZ, Side: domain.SideSell, Price: xzPrice, Amount: r.AmountXSell},
		{Pair: t.XY, Side: domain.SideBuy, Price: xyPrice, Amount: r.AmountXBuy},
	}
}

func cloneLevels(levels []domain.BookLevel) []domain.BookLevel {
	out := make([]domain.BookLevel, len(levels))
	copy(out, levels)
	return out
}

// calcAmountsOnLevel computes the executable amounts at one price level. Fee
// direction flips between the two cycle directions: in A, X is bought (fee
// shrinks usable X); in B, X is bought via the X/Y leg instead, so the roles
// of amount_x_buy/amount_x_sell invert.
func calcAmountsOnLevel(dir domain.CycleDirection, yz, xz, xy domain.BookLevel, fee decimal.Decimal) (amountY, amountXBuy, amountXSell decimal.Decimal, ok bool) {
	oneMinusFee := decimal.NewFromInt(1).Sub(fee)
	minX := decimal.Min(xz.Volume, xy.Volume)

	if dir == domain.DirectionA {
		amountXSell = minX
		amountXBuy = amountXSell.Div(oneMinusFee)
		if amountXBuy.GreaterThan(xz.Volume) {
			amountXBuy = xz.Volume
			amountXSell = amountXBuy.Mul(oneMinusFee)
		}

		amountY = amountXSell.Mul(xy.Price).Mul(oneMinusFee)
		if amountY.GreaterThan(yz.Volume) {
			amountY = yz.Volume
			amountXSell = amountY.Div(xy.Price).Div(oneMinusFee)
			amountXBuy = amountXSell.Div(oneMinusFee)
		}
	} else {
		amountXBuy = minX
		amountXSell = amountXBuy.Mul(oneMinusFee)
		if amountXSell.GreaterThan(xz.Volume) {
			amountXSell = xz.Volume
			amountXBuy = amountXSell.Div(oneMinusFee)
		}

		amountY = amountXBuy.Mul(xy.Price)
		if amountY.GreaterThan(yz.Volume) {
			amountY = yz.Volume
			amountXBuy = amountY.Div(xy.Price)
			amountXSell = amountXBuy.Mul(oneMinusFee)
		}
	}

	if amountXBuy.GreaterThan(xz.Volume) || amountXSell.GreaterThan(xy.Volume) || amountY.GreaterThan(yz.Volume) {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	if amountY.IsNegative() || amountXBuy.IsNegative() || amountXSell.IsNegative() {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}

	return amountY, amountXBuy, amountXSell, true
}
