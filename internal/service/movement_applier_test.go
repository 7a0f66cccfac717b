package service

import (
	"context"
	"testing"

	"cylinder-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMovementApplier(fake *fakeStock) *MovementApplier {
	return &MovementApplier{
		stockClient: fake,
		logger:      zap.NewNop(),
	}
}

func TestApplyAllAppliesEveryMovement(t *testing.T) {
	fake := &fakeStock{}
	ma := newTestMovementApplier(fake)

	movements := []models.InventoryMovement{
		{ProductID: 1, VariantKey: models.VariantFull, QtyFullChange: -2, MovementType: models.MovementTypeDelivery},
		{ProductID: 1, VariantKey: models.VariantEmpty, QtyEmptyChange: 2, MovementType: models.MovementTypePickup},
	}

	err := ma.applyAll(context.Background(), 1, movements)

	require.NoError(t, err)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, "apply", fake.calls[0].op)
	assert.Equal(t, "apply", fake.calls[1].op)
}

// A failure part-way must revert the applied movements in reverse
// order, leaving no half-updated stock.
func TestApplyAllCompensatesOnFailure(t *testing.T) {
	fake := &fakeStock{failApplyAfter: 2}
	ma := newTestMovementApplier(fake)

	movements := []models.InventoryMovement{
		{ProductID: 1, VariantKey: models.VariantFull, QtyFullChange: -2, MovementType: models.MovementTypeDelivery},
		{ProductID: 2, VariantKey: models.VariantFull, QtyFullChange: -1, MovementType: models.MovementTypeDelivery},
		{ProductID: 3, VariantKey: models.VariantFull, QtyFullChange: -4, MovementType: models.MovementTypeDelivery},
	}

	err := ma.applyAll(context.Background(), 1, movements)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStockOperation)

	require.Len(t, fake.calls, 4)
	assert.Equal(t, stockCall{op: "apply", productID: 1, variant: models.VariantFull}, fake.calls[0])
	assert.Equal(t, stockCall{op: "apply", productID: 2, variant: models.VariantFull}, fake.calls[1])
	// reverse-order compensation of the two applied movements
	assert.Equal(t, stockCall{op: "revert", productID: 2, variant: models.VariantFull}, fake.calls[2])
	assert.Equal(t, stockCall{op: "revert", productID: 1, variant: models.VariantFull}, fake.calls[3])
}

// Delivering a pickup order applies only the empty-variant addition;
// combined with the reservation-free confirm this keeps the full
// counters untouched end to end.
func TestApplyAllPickupTouchesOnlyEmpties(t *testing.T) {
	fake := &fakeStock{}
	ma := newTestMovementApplier(fake)

	order := &models.Order{OrderType: models.OrderTypePickup, ExchangeEmptyQty: 5}
	lines := []models.OrderLine{{ProductID: 9, ProductName: "LPG 15kg", Quantity: 1}}
	movements, _ := PlanMovements(order, lines)

	err := ma.applyAll(context.Background(), 1, movements)

	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, models.VariantEmpty, fake.calls[0].variant)
}
