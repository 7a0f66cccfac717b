package service

import (
	"context"
	"fmt"

	"cylinder-service/internal/models"
	"cylinder-service/internal/store"
	"cylinder-service/internal/util"

	"go.uber.org/zap"
)

// MovementApplier turns a delivered order into stock movements. It
// consumes OrderDelivered events, plans the deltas, and applies them
// as a unit: a failure part-way compensates the movements already
// applied instead of leaving stock half-updated. Event-level
// idempotency comes from the processed-events table.
type MovementApplier struct {
	store       *store.Store
	stockClient StockOperations
	logger      *zap.Logger
}

// NewMovementApplier creates a new movement applier
func NewMovementApplier(store *store.Store, stockClient StockOperations) *MovementApplier {
	return &MovementApplier{
		store:       store,
		stockClient: stockClient,
		logger:      util.GetLogger(),
	}
}

// HandleOrderDelivered applies the planned inventory movements for a
// delivered order.
func (ma *MovementApplier) HandleOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error {
	ctx, span := util.StartSpan(ctx, "MovementApplier.HandleOrderDelivered")
	defer span.End()

	processed, err := ma.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ma.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := ma.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d: %w", event.OrderID, err)
	}

	lines, err := ma.store.GetOrderLinesByOrderID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}

	movements, skipped := PlanMovements(order, lines)
	if skipped > 0 {
		util.MovementLinesSkippedTotal.Add(float64(skipped))
		ma.logger.Warn("Skipped order lines without a resolved product",
			zap.Int64("order_id", order.ID),
			zap.Int("skipped", skipped))
	}

	if err := ma.applyAll(ctx, order.WarehouseID, movements); err != nil {
		ma.logger.Error("Movement application failed, compensated",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return err
	}

	if err := ma.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ma.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	ma.logger.Info("Inventory movements applied",
		zap.Int64("order_id", order.ID),
		zap.String("order_type", order.OrderType),
		zap.Int("movements", len(movements)))
	return nil
}

// applyAll applies the movements as a unit: a failure part-way reverts
// the movements already applied before returning.
func (ma *MovementApplier) applyAll(ctx context.Context, warehouseID int64, movements []models.InventoryMovement) error {
	applied := make([]models.InventoryMovement, 0, len(movements))
	for _, m := range movements {
		if err := ma.stockClient.ApplyMovement(ctx, warehouseID, m); err != nil {
			util.MovementsFailedTotal.Inc()
			ma.compensate(ctx, warehouseID, applied)
			return fmt.Errorf("%w: apply movement for product %d: %v", ErrStockOperation, m.ProductID, err)
		}
		applied = append(applied, m)
		util.MovementsAppliedTotal.WithLabelValues(m.MovementType).Inc()
	}
	return nil
}

// compensate reverts applied movements in reverse order
func (ma *MovementApplier) compensate(ctx context.Context, warehouseID int64, applied []models.InventoryMovement) {
	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		if err := ma.stockClient.RevertMovement(ctx, warehouseID, m); err != nil {
			ma.logger.Error("Failed to revert movement during compensation",
				zap.Int64("product_id", m.ProductID),
				zap.String("variant", m.VariantKey),
				zap.Error(err))
		}
	}
}
