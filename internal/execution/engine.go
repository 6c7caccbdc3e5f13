package execution

import (
	"context"
	"log/slog"

	"github.com/crypto-trading/trading/internal/order"
)

// Engine owns order-management lifecycle concerns shared across strategies:
// the kill switch and fill-quality tracking. Strategy-specific order
// placement and wait loops live with the strategy that needs them.
type Engine struct {
	orderMgr       *order.Manager
	qualityTracker *QualityTracker
	logger         *slog.Logger
}

func NewEngine(orderMgr *order.Manager, logger *slog.Logger) *Engine {
	return &Engine{
		orderMgr:       orderMgr,
		qualityTracker: NewQualityTracker(1000),
		logger:         logger,
	}
}

// QualityTracker exposes the engine's fill-quality recorder so a strategy's
// executor can feed it completed legs without owning its lifecycle.
func (e *Engine) QualityTracker() *QualityTracker {
	return e.qualityTracker
}

func (e *Engine) KillSwitchHandler(ctx context.Context) func() {
	return func() {
		e.logger.Error("KILL SWITCH: cancelling all orders")
		e.orderMgr.CancelAllOrders(ctx)
	}
}
