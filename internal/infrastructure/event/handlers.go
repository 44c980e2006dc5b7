package event

import (
	"context"

	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockAlertHandler surfaces low-stock signals from dispatch consumption.
// The alert is a log line today; replenishment stays a human decision.
type LowStockAlertHandler struct {
	logger *zap.Logger
}

// NewLowStockAlertHandler creates a new low stock alert handler
func NewLowStockAlertHandler(logger *zap.Logger) *LowStockAlertHandler {
	return &LowStockAlertHandler{logger: logger.Named("lowstock")}
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowThreshold}
}

// Handle logs the low stock warning
func (h *LowStockAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.StockBelowThresholdEvent)
	if !ok {
		return nil
	}

	h.logger.Warn("stock below threshold",
		zap.String("item_id", e.AggregateID().String()),
		zap.String("item_name", e.ItemName),
		zap.String("remaining", e.Remaining.String()),
		zap.String("threshold", e.Threshold.String()),
	)
	return nil
}

// FulfillmentLogHandler writes one structured log line per prescription
// lifecycle event. The durable audit trail lives on the aggregate; this feed
// is for operational visibility.
type FulfillmentLogHandler struct {
	logger *zap.Logger
}

// NewFulfillmentLogHandler creates a new fulfillment log handler
func NewFulfillmentLogHandler(logger *zap.Logger) *FulfillmentLogHandler {
	return &FulfillmentLogHandler{logger: logger.Named("fulfillment")}
}

// EventTypes returns the event types this handler is interested in
func (h *FulfillmentLogHandler) EventTypes() []string {
	return []string{
		prescription.EventTypePrescriptionCreated,
		prescription.EventTypePrescriptionValidated,
		prescription.EventTypePrescriptionRejected,
		prescription.EventTypeSentToExternal,
		prescription.EventTypePreparationStarted,
		prescription.EventTypeReadyForPickup,
		prescription.EventTypePrescriptionDispensed,
		prescription.EventTypeRepreparationStarted,
		prescription.EventTypePrescriptionCancelled,
	}
}

// Handle logs the lifecycle event
func (h *FulfillmentLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("prescription lifecycle event",
		zap.String("event_type", event.EventType()),
		zap.String("prescription_id", event.AggregateID().String()),
	)
	return nil
}

var (
	_ shared.EventHandler = (*LowStockAlertHandler)(nil)
	_ shared.EventHandler = (*FulfillmentLogHandler)(nil)
)
