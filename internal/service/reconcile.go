package service

import (
	"context"
	"sort"

	"shopdesk/internal/models"
	"shopdesk/internal/util"

	"go.uber.org/zap"
)

// StockAdjuster applies a signed stock adjustment for one product and
// returns the resulting stock. A positive adjustment means more units
// consumed. Satisfied by *ProductService.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID int64, adjustment int) (int, error)
}

// ComputeItemDeltas computes the net inventory effect of replacing an
// order's original line items with the edited set. For each product the
// delta is (new quantity) - (old quantity); products only in the original
// get a negative delta (units returned), products only in the edit get a
// positive one (units newly consumed). Zero entries are kept so callers can
// see the product was considered; applyStockDeltas skips them.
func ComputeItemDeltas(original, edited []models.OrderItem) map[int64]int {
	deltas := make(map[int64]int, len(original)+len(edited))
	for _, it := range original {
		deltas[it.ProductID] -= it.Quantity
	}
	for _, it := range edited {
		deltas[it.ProductID] += it.Quantity
	}
	return deltas
}

// applyStockDeltas persists every nonzero adjustment, one product at a time.
// Best-effort: a failed product is logged and skipped, the rest still run,
// and nothing already committed is unwound. Products are visited in id order
// so repeated runs behave the same.
func applyStockDeltas(ctx context.Context, stock StockAdjuster, deltas map[int64]int, logger *zap.Logger) {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		adjustment := deltas[id]
		if adjustment == 0 {
			continue
		}

		newStock, err := stock.AdjustStock(ctx, id, adjustment)
		if err != nil {
			util.StockAdjustmentsFailed.Inc()
			logger.Error("Stock adjustment skipped",
				zap.Int64("product_id", id),
				zap.Int("adjustment", adjustment),
				zap.Error(err))
			continue
		}

		util.StockAdjustmentsTotal.Inc()
		logger.Debug("Stock adjusted",
			zap.Int64("product_id", id),
			zap.Int("adjustment", adjustment),
			zap.Int("new_stock", newStock))
	}
}
