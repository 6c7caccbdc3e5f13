package triarb

import (
	"github.com/shopspring/decimal"

	"github.com/crypto-trading/trading/internal/domain"
)

// BookReader is the read-only OrderBook handle contract the scanner consumes.
// internal/marketdata.Service satisfies it: GetOrderBook copies the ladders
// on every read, so the scanner always sees a self-consistent snapshot.
type BookReader interface {
	GetOrderBook(venue, symbol string) (*domain.OrderBookSnapshot, bool)
}

func toLevels(pl []domain.PriceLevel) []domain.BookLevel {
	out := make([]domain.BookLevel, len(pl))
	for i, l := range pl {
		out[i] = domain.BookLevel{Price: l.Price, Volume: l.Size}
	}
	return out
}

// walkLadder sums price·min(remaining, level.volume) until targetAmount base
// units are covered, returning the quote amount spent/received. Grounded on
// the ladder-walking arithmetic in gateway/simulated/fillsim.go's
// simulateMarketFill, generalised to return only the quote total (the
// scanner/normaliser only need the true spend/receive, not a fill price).
func walkLadder(levels []domain.BookLevel, targetAmount decimal.Decimal) decimal.Decimal {
	remaining := targetAmount
	total := decimal.Zero

	for _, lvl := range levels {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, lvl.Volume)
		total = total.Add(take.Mul(lvl.Price))
		remaining = remaining.Sub(take)
	}

	return total
}

// GetBookVolumeInFront computes the volume resting ahead of a resting order
// at `price` on the relevant book side: bids at or above price for a sell,
// asks at or below price for a buy. Used by the executor's "lost in the
// book" giveup rule.
func GetBookVolumeInFront(books BookReader, venue, symbol string, side domain.Side, price decimal.Decimal) decimal.Decimal {
	snap, ok := books.GetOrderBook(venue, symbol)
	if !ok {
		return decimal.Zero
	}

	total := decimal.Zero
	if side == domain.SideSell {
		for _, lvl := range snap.Bids {
			if lvl.Price.GreaterThanOrEqual(price) {
				total = total.Add(lvl.Size)
			}
		}
	} else {
		for _, lvl := range snap.Asks {
			if lvl.Price.LessThanOrEqual(price) {
				total = total.Add(lvl.Size)
			}
		}
	}
	return total
}
