package worker

import (
	"context"

	"shopdesk/internal/broker"
	"shopdesk/internal/models"
	"shopdesk/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker consumes stock-adjustment events and raises an alert
// when a product falls to or below its low-stock threshold
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.StockEventHandler
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer: consumer,
		logger:   util.NamedLogger("stock-alerts"),
	}

	eventHandler := broker.NewStockEventHandler()
	eventHandler.OnStockAdjusted(w.handleStockAdjusted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker loop
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

func (w *StockAlertWorker) handleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	if event.Threshold <= 0 || event.NewStock > event.Threshold {
		return nil
	}

	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Low stock",
		zap.Int64("product_id", event.ProductID),
		zap.String("product", event.ProductName),
		zap.Int("stock", event.NewStock),
		zap.Int("threshold", event.Threshold))
	return nil
}
