package service

import (
	"testing"

	"cylinder-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanMovementsDelivery(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypeDelivery}
	lines := []models.OrderLine{
		{ProductID: 1, ProductName: "LPG 15kg", Quantity: 3},
		{ProductID: 2, ProductName: "LPG 45kg", Quantity: 1},
	}

	movements, skipped := PlanMovements(order, lines)

	require.Len(t, movements, 2)
	assert.Zero(t, skipped)
	assert.Equal(t, models.VariantFull, movements[0].VariantKey)
	assert.Equal(t, -3, movements[0].QtyFullChange)
	assert.Zero(t, movements[0].QtyEmptyChange)
	assert.Equal(t, models.MovementTypeDelivery, movements[0].MovementType)
	assert.Equal(t, -1, movements[1].QtyFullChange)
}

func TestPlanMovementsRefill(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypeRefill}
	lines := []models.OrderLine{
		{ProductID: 1, ProductName: "LPG 15kg", Quantity: 4},
	}

	movements, _ := PlanMovements(order, lines)

	// A refill always produces exactly two movements per line: the
	// full cylinder leaves, the customer's empty comes back.
	require.Len(t, movements, 2)

	full := movements[0]
	assert.Equal(t, models.VariantFull, full.VariantKey)
	assert.Equal(t, -4, full.QtyFullChange)
	assert.Equal(t, models.MovementTypeDelivery, full.MovementType)

	empty := movements[1]
	assert.Equal(t, models.VariantEmpty, empty.VariantKey)
	assert.Equal(t, 4, empty.QtyEmptyChange)
	assert.Equal(t, models.MovementTypePickup, empty.MovementType)
}

func TestPlanMovementsExchange(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypeExchange, ExchangeEmptyQty: 2}
	lines := []models.OrderLine{
		{ProductID: 1, ProductName: "LPG 15kg", Quantity: 3},
	}

	movements, _ := PlanMovements(order, lines)

	require.Len(t, movements, 2)
	assert.Equal(t, -3, movements[0].QtyFullChange)
	assert.Equal(t, models.MovementTypeDelivery, movements[0].MovementType)
	assert.Equal(t, 2, movements[1].QtyEmptyChange)
	assert.Equal(t, models.MovementTypeExchange, movements[1].MovementType)
}

func TestPlanMovementsPickup(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypePickup, ExchangeEmptyQty: 5}
	lines := []models.OrderLine{
		{ProductID: 1, ProductName: "LPG 15kg", Quantity: 1},
	}

	movements, _ := PlanMovements(order, lines)

	require.Len(t, movements, 1)
	assert.Equal(t, models.VariantEmpty, movements[0].VariantKey)
	assert.Equal(t, 5, movements[0].QtyEmptyChange)
	assert.Zero(t, movements[0].QtyFullChange)
	assert.Equal(t, models.MovementTypePickup, movements[0].MovementType)
}

func TestPlanMovementsSkipsUnresolvedLines(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypeDelivery}
	lines := []models.OrderLine{
		{ProductID: 0, Quantity: 2},
		{ProductID: 7, ProductName: "LPG 15kg", Quantity: 2},
	}

	movements, skipped := PlanMovements(order, lines)

	require.Len(t, movements, 1)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, int64(7), movements[0].ProductID)
}

func TestPlanMovementsDeterministic(t *testing.T) {
	order := &models.Order{OrderType: models.OrderTypeRefill, ExchangeEmptyQty: 1}
	lines := []models.OrderLine{
		{ProductID: 1, ProductName: "LPG 15kg", Quantity: 2},
		{ProductID: 2, ProductName: "LPG 45kg", Quantity: 6},
	}

	first, _ := PlanMovements(order, lines)
	second, _ := PlanMovements(order, lines)

	assert.Equal(t, first, second)
}

func TestPlanMovementsUnknownTypeProducesNothing(t *testing.T) {
	order := &models.Order{OrderType: "SOMETHING_ELSE"}
	lines := []models.OrderLine{{ProductID: 1, Quantity: 1}}

	movements, skipped := PlanMovements(order, lines)

	assert.Empty(t, movements)
	assert.Zero(t, skipped)
}
