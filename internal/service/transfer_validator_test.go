package service

import (
	"testing"
	"time"

	"cylinder-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func stockRow(productID int64, variant string, available, reserved float64) models.WarehouseStockInfo {
	return models.WarehouseStockInfo{
		WarehouseID:  1,
		ProductID:    productID,
		VariantName:  variant,
		ProductName:  "LPG 15kg",
		QtyAvailable: available,
		QtyReserved:  reserved,
	}
}

func TestValidateTransferHappyPath(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 20, UnitWeightKg: 15, UnitCost: 12.5},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 10)}

	result := ValidateTransfer(transfer, stock)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 300.0, result.TotalWeightKg)
	require.NotNil(t, result.EstimatedCost)
	assert.Equal(t, 250.0, *result.EstimatedCost)
	assert.True(t, transfer.Items[0].IsValid)
}

func TestValidateTransferSameWarehouse(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      3,
		DestinationWarehouseID: 3,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 1},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "source and destination warehouses must differ")
}

func TestValidateTransferPastDate(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           time.Now().Add(-48 * time.Hour),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 1},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "transfer date must not be in the past")
}

func TestValidateTransferTodayIsNotPast(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           time.Now(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 1},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.True(t, result.IsValid)
}

func TestValidateTransferNoItems(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
	}

	result := ValidateTransfer(transfer, nil)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "transfer must contain at least one item")
}

// Reservations shrink what a transfer may take: with 100 available and
// 10 reserved, only 90 can leave. Asking for 95 fails the hard check
// yet still trips the 90%-of-available advisory, and both must surface.
func TestValidateTransferReservedStock(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 95},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 10)}

	result := ValidateTransfer(transfer, stock)

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "insufficient stock: requested 95, available for transfer 90")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "more than 90%")
	assert.Equal(t, []int64{10}, result.BlockedItems)
}

func TestValidateTransferFractionalQuantity(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 2.5},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "quantity must be a positive whole number")
}

func TestValidateTransferMissingStockRow(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 99, VariantName: models.VariantEmpty, QuantityToTransfer: 5},
		},
	}

	result := ValidateTransfer(transfer, []models.WarehouseStockInfo{})

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "stock information not found")
}

func TestValidateTransferDuplicateItems(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 3},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "duplicate item for product 10 variant FULL")
}

func TestValidateTransferSameProductDifferentVariants(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
			{ProductID: 10, VariantName: models.VariantEmpty, QuantityToTransfer: 5},
		},
	}
	stock := []models.WarehouseStockInfo{
		stockRow(10, models.VariantFull, 100, 0),
		stockRow(10, models.VariantEmpty, 100, 0),
	}

	result := ValidateTransfer(transfer, stock)

	assert.True(t, result.IsValid)
}

func TestValidateTransferReorderLevelWarning(t *testing.T) {
	row := stockRow(10, models.VariantFull, 100, 0)
	row.ReorderLevel = 80

	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 30},
		},
	}

	result := ValidateTransfer(transfer, []models.WarehouseStockInfo{row})

	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "below reorder level")
}

func TestValidateTransferLargeQuantityWarning(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 1500},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 10000, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.True(t, result.IsValid)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "large transfer quantity")
}

func TestValidateTransferNoCostNoEstimate(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
		},
	}
	stock := []models.WarehouseStockInfo{stockRow(10, models.VariantFull, 100, 0)}

	result := ValidateTransfer(transfer, stock)

	assert.True(t, result.IsValid)
	assert.Nil(t, result.EstimatedCost)
}

func TestCheckConflictsProductOverlap(t *testing.T) {
	date := tomorrow()
	transfer := &models.Transfer{
		SourceWarehouseID:      1,
		DestinationWarehouseID: 2,
		TransferDate:           date,
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
		},
	}
	existing := []models.Transfer{
		{
			ID:                5,
			SourceWarehouseID: 1,
			TransferDate:      date,
			Status:            models.TransferStatusApproved,
			Items: []models.TransferItem{
				{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 2},
			},
		},
	}

	conflicts := CheckConflicts(transfer, existing)

	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictTypeProductOverlap, conflicts[0].Type)
	assert.Equal(t, int64(5), conflicts[0].TransferID)
}

func TestCheckConflictsIgnoresOtherWarehouseAndDay(t *testing.T) {
	transfer := &models.Transfer{
		SourceWarehouseID: 1,
		TransferDate:      tomorrow(),
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
		},
	}
	existing := []models.Transfer{
		{
			ID:                6,
			SourceWarehouseID: 2, // different warehouse
			TransferDate:      tomorrow(),
			Status:            models.TransferStatusPending,
			Items:             []models.TransferItem{{ProductID: 10, VariantName: models.VariantFull}},
		},
		{
			ID:                7,
			SourceWarehouseID: 1,
			TransferDate:      tomorrow().Add(48 * time.Hour), // different day
			Status:            models.TransferStatusPending,
			Items:             []models.TransferItem{{ProductID: 10, VariantName: models.VariantFull}},
		},
		{
			ID:                8,
			SourceWarehouseID: 1,
			TransferDate:      tomorrow(),
			Status:            models.TransferStatusCompleted, // closed, not a conflict
			Items:             []models.TransferItem{{ProductID: 10, VariantName: models.VariantFull}},
		},
	}

	conflicts := CheckConflicts(transfer, existing)

	assert.Empty(t, conflicts)
}

func TestCheckConflictsVolume(t *testing.T) {
	date := tomorrow()

	items := make([]models.TransferItem, 30)
	for i := range items {
		items[i] = models.TransferItem{ProductID: int64(100 + i), VariantName: models.VariantFull, QuantityToTransfer: 1}
	}
	theirItems := make([]models.TransferItem, 25)
	for i := range theirItems {
		theirItems[i] = models.TransferItem{ProductID: int64(500 + i), VariantName: models.VariantFull, QuantityToTransfer: 1}
	}

	transfer := &models.Transfer{SourceWarehouseID: 1, TransferDate: date, Items: items}
	existing := []models.Transfer{
		{ID: 9, SourceWarehouseID: 1, TransferDate: date, Status: models.TransferStatusPending, Items: theirItems},
	}

	conflicts := CheckConflicts(transfer, existing)

	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictTypeVolume, conflicts[0].Type)
}

// An in-transit transfer still counts toward volume but its product
// lines are no longer contendable.
func TestCheckConflictsInTransitSkipsOverlap(t *testing.T) {
	date := tomorrow()
	transfer := &models.Transfer{
		SourceWarehouseID: 1,
		TransferDate:      date,
		Items: []models.TransferItem{
			{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 5},
		},
	}
	existing := []models.Transfer{
		{
			ID:                11,
			SourceWarehouseID: 1,
			TransferDate:      date,
			Status:            models.TransferStatusInTransit,
			Items: []models.TransferItem{
				{ProductID: 10, VariantName: models.VariantFull, QuantityToTransfer: 2},
			},
		},
	}

	conflicts := CheckConflicts(transfer, existing)

	assert.Empty(t, conflicts)
}
