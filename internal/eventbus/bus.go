package eventbus

import (
	"log/slog"
	"sync"

	"github.com/crypto-trading/trading/internal/domain"
)

type EventBus struct {
	mu sync.RWMutex

	orderBookSubs  []chan domain.OrderBookSnapshot
	tradeSubs      []chan domain.Trade
	fundingRateSubs []chan domain.FundingRate
	signalSubs     []chan domain.TradeSignal
	orderStateSubs []chan domain.OrderStateChange

	arbitrageDetectedSubs    []chan domain.Arbitrage
	arbitrageDisappearedSubs []chan ArbitrageDisappeared
	executionFinishedSubs    []chan domain.ExecutionResult

	bufferSize int
	logger     *slog.Logger
}

func New(bufferSize int, logger *slog.Logger) *EventBus {
	return &EventBus{
		bufferSize: bufferSize,
		logger:     logger,
	}
}

func (eb *EventBus) SubscribeOrderBook() <-chan domain.OrderBookSnapshot {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.OrderBookSnapshot, eb.bufferSize)
	eb.orderBookSubs = append(eb.orderBookSubs, ch)
	return ch
}

func (eb *EventBus) PublishOrderBook(snap domain.OrderBookSnapshot) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.orderBookSubs {
		select {
		case ch <- snap:
		default:
			eb.logger.Warn("order book subscriber channel full, dropping event",
				"venue", snap.Venue, "symbol", snap.Symbol)
		}
	}
}

func (eb *EventBus) SubscribeTrade() <-chan domain.Trade {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.Trade, eb.bufferSize)
	eb.tradeSubs = append(eb.tradeSubs, ch)
	return ch
}

func (eb *EventBus) PublishTrade(trade domain.Trade) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.tradeSubs {
		select {
		case ch <- trade:
		default:
			eb.logger.Warn("trade subscriber channel full, dropping event",
				"venue", trade.Venue, "symbol", trade.Symbol)
		}
	}
}

func (eb *EventBus) SubscribeFundingRate() <-chan domain.FundingRate {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.FundingRate, eb.bufferSize)
	eb.fundingRateSubs = append(eb.fundingRateSubs, ch)
	return ch
}

func (eb *EventBus) PublishFundingRate(rate domain.FundingRate) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.fundingRateSubs {
		select {
		case ch <- rate:
		default:
			eb.logger.Warn("funding rate subscriber channel full, dropping event",
				"venue", rate.Venue, "symbol", rate.Symbol)
		}
	}
}

func (eb *EventBus) SubscribeSignal() <-chan domain.TradeSignal {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.TradeSignal, eb.bufferSize)
	eb.signalSubs = append(eb.signalSubs, ch)
	return ch
}

func (eb *EventBus) PublishSignal(signal domain.TradeSignal) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.signalSubs {
		select {
		case ch <- signal:
		default:
			eb.logger.Warn("signal subscriber channel full, dropping event",
				"strategy", signal.Strategy, "venue", signal.Venue)
		}
	}
}

func (eb *EventBus) SubscribeOrderState() <-chan domain.OrderStateChange {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.OrderStateChange, eb.bufferSize)
	eb.orderStateSubs = append(eb.orderStateSubs, ch)
	return ch
}

func (eb *EventBus) PublishOrderState(change domain.OrderStateChange) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.orderStateSubs {
		select {
		case ch <- change:
		default:
			eb.logger.Warn("order state subscriber channel full, dropping event",
				"order_id", change.Order.InternalID)
		}
	}
}

// ArbitrageDisappeared identifies a (triangle, direction) that is no longer
// profitable, without re-sending the full opportunity payload.
type ArbitrageDisappeared struct {
	Triangle  domain.Triangle
	Direction domain.CycleDirection
}

func (eb *EventBus) SubscribeArbitrageDetected() <-chan domain.Arbitrage {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.Arbitrage, eb.bufferSize)
	eb.arbitrageDetectedSubs = append(eb.arbitrageDetectedSubs, ch)
	return ch
}

func (eb *EventBus) PublishArbitrageDetected(arb domain.Arbitrage) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.arbitrageDetectedSubs {
		select {
		case ch <- arb:
		default:
			eb.logger.Warn("arbitrage detected subscriber channel full, dropping event",
				"triangle", arb.Triangle.Key(), "direction", arb.Direction)
		}
	}
}

func (eb *EventBus) SubscribeArbitrageDisappeared() <-chan ArbitrageDisappeared {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan ArbitrageDisappeared, eb.bufferSize)
	eb.arbitrageDisappearedSubs = append(eb.arbitrageDisappearedSubs, ch)
	return ch
}

func (eb *EventBus) PublishArbitrageDisappeared(ev ArbitrageDisappeared) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.arbitrageDisappearedSubs {
		select {
		case ch <- ev:
		default:
			eb.logger.Warn("arbitrage disappeared subscriber channel full, dropping event",
				"triangle", ev.Triangle.Key(), "direction", ev.Direction)
		}
	}
}

func (eb *EventBus) SubscribeExecutionFinished() <-chan domain.ExecutionResult {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	ch := make(chan domain.ExecutionResult, eb.bufferSize)
	eb.executionFinishedSubs = append(eb.executionFinishedSubs, ch)
	return ch
}

func (eb *EventBus) PublishExecutionFinished(result domain.ExecutionResult) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.executionFinishedSubs {
		select {
		case ch <- result:
		default:
			eb.logger.Warn("execution finished subscriber channel full, dropping event",
				"triangle", result.Triangle.Key(), "scenario", result.Scenario)
		}
	}
}

func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for _, ch := range eb.orderBookSubs {
		close(ch)
	}
	for _, ch := range eb.tradeSubs {
		close(ch)
	}
	for _, ch := range eb.fundingRateSubs {
		close(ch)
	}
	for _, ch := range eb.signalSubs {
		close(ch)
	}
	for _, ch := range eb.orderStateSubs {
		close(ch)
	}
	for _, ch := range eb.arbitrageDetectedSubs {
		close(ch)
	}
	for _, ch := range eb.arbitrageDisappearedSubs {
		close(ch)
	}
	for _, ch := range eb.executionFinishedSubs {
		close(ch)
	}
}
