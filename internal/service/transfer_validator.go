package service

import (
	"fmt"
	"math"
	"time"

	"cylinder-service/internal/models"
)

// Advisory thresholds for transfer validation
const (
	maxItemsWarning       = 100
	maxWeightKgWarning    = 5000.0
	largeQuantityWarning  = 1000.0
	highStockShareWarning = 0.9
	conflictItemCount     = 50
)

// TransferValidation is the full verdict for a proposed transfer.
// Errors block; warnings are advisory and always carried back to the
// caller.
type TransferValidation struct {
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	BlockedItems  []int64  `json:"blocked_items"`
	TotalWeightKg float64  `json:"total_weight_kg"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
}

// TransferConflict is an advisory overlap with an already-scheduled
// transfer; it never blocks.
type TransferConflict struct {
	TransferID int64  `json:"transfer_id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

// Conflict types
const (
	ConflictTypeVolume         = "VOLUME"
	ConflictTypeProductOverlap = "PRODUCT_OVERLAP"
)

// ValidateTransfer checks a proposed transfer against a stock
// snapshot. All rules run and all errors accumulate; nothing
// short-circuits.
func ValidateTransfer(transfer *models.Transfer, stock []models.WarehouseStockInfo) *TransferValidation {
	result := &TransferValidation{
		Errors:       []string{},
		Warnings:     []string{},
		BlockedItems: []int64{},
	}

	if transfer.SourceWarehouseID == 0 {
		result.Errors = append(result.Errors, "source warehouse is required")
	}
	if transfer.DestinationWarehouseID == 0 {
		result.Errors = append(result.Errors, "destination warehouse is required")
	}
	if transfer.SourceWarehouseID != 0 && transfer.SourceWarehouseID == transfer.DestinationWarehouseID {
		result.Errors = append(result.Errors, "source and destination warehouses must differ")
	}

	if transfer.TransferDate.IsZero() {
		result.Errors = append(result.Errors, "transfer date is required")
	} else if localMidnight(transfer.TransferDate).Before(localMidnight(time.Now())) {
		result.Errors = append(result.Errors, "transfer date must not be in the past")
	}

	if len(transfer.Items) == 0 {
		result.Errors = append(result.Errors, "transfer must contain at least one item")
	}

	var totalWeight, totalCost float64

	for i := range transfer.Items {
		item := &transfer.Items[i]

		errs, warns := validateItem(item, stock)
		item.ValidationErrors = errs
		item.ValidationWarnings = warns
		item.IsValid = len(errs) == 0

		if !item.IsValid {
			result.BlockedItems = append(result.BlockedItems, item.ProductID)
			name := stockProductName(stock, item.ProductID, item.VariantName)
			for _, e := range errs {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", name, e))
			}
		}
		result.Warnings = append(result.Warnings, warns...)

		totalWeight += item.QuantityToTransfer * item.UnitWeightKg
		totalCost += item.QuantityToTransfer * item.UnitCost
	}

	seen := make(map[string]bool, len(transfer.Items))
	for _, item := range transfer.Items {
		key := fmt.Sprintf("%d/%s", item.ProductID, item.VariantName)
		if seen[key] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("duplicate item for product %d variant %s", item.ProductID, item.VariantName))
		}
		seen[key] = true
	}

	if len(transfer.Items) > maxItemsWarning {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("transfer has %d items; consider splitting it", len(transfer.Items)))
	}
	if totalWeight > maxWeightKgWarning {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("total weight %.1f kg exceeds %.0f kg", totalWeight, maxWeightKgWarning))
	}

	result.TotalWeightKg = totalWeight
	if totalCost > 0 {
		result.EstimatedCost = &totalCost
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// validateItem runs the per-item rules against the stock snapshot.
func validateItem(item *models.TransferItem, stock []models.WarehouseStockInfo) (errs, warns []string) {
	if item.ProductID == 0 {
		errs = append(errs, "product is required")
	}

	qty := item.QuantityToTransfer
	if qty <= 0 || qty != math.Trunc(qty) {
		errs = append(errs, "quantity must be a positive whole number")
	}

	row := findStock(stock, item.ProductID, item.VariantName)
	if row == nil {
		if item.ProductID != 0 {
			errs = append(errs, "stock information not found")
		}
		return errs, warns
	}

	availableForTransfer := row.QtyAvailable - row.QtyReserved
	if qty > availableForTransfer {
		errs = append(errs, fmt.Sprintf("insufficient stock: requested %.0f, available for transfer %.0f",
			qty, availableForTransfer))
	}

	// Softer than the hard check above: measured against raw
	// availability, ignoring reservations.
	if row.QtyAvailable > 0 && qty > row.QtyAvailable*highStockShareWarning {
		warns = append(warns, fmt.Sprintf("transfer of %.0f uses more than 90%% of available stock (%.0f)",
			qty, row.QtyAvailable))
	}

	if row.ReorderLevel > 0 && row.QtyAvailable-qty < row.ReorderLevel {
		warns = append(warns, fmt.Sprintf("remaining stock %.0f would fall below reorder level %.0f",
			row.QtyAvailable-qty, row.ReorderLevel))
	}

	if qty > largeQuantityWarning {
		warns = append(warns, fmt.Sprintf("large transfer quantity %.0f; verify before approving", qty))
	}

	return errs, warns
}

// CheckConflicts reports advisory overlaps between a proposed transfer
// and transfers already scheduled from the same warehouse on the same
// date.
func CheckConflicts(transfer *models.Transfer, existing []models.Transfer) []TransferConflict {
	var conflicts []TransferConflict

	newDate := localMidnight(transfer.TransferDate)

	for _, other := range existing {
		if other.SourceWarehouseID != transfer.SourceWarehouseID {
			continue
		}
		if !localMidnight(other.TransferDate).Equal(newDate) {
			continue
		}

		switch other.Status {
		case models.TransferStatusPending, models.TransferStatusApproved, models.TransferStatusInTransit:
		default:
			continue
		}

		if len(other.Items)+len(transfer.Items) > conflictItemCount {
			conflicts = append(conflicts, TransferConflict{
				TransferID: other.ID,
				Type:       ConflictTypeVolume,
				Message: fmt.Sprintf("combined item count %d with transfer %d exceeds %d for the same day",
					len(other.Items)+len(transfer.Items), other.ID, conflictItemCount),
			})
		}

		if other.Status == models.TransferStatusInTransit {
			continue
		}

		for _, item := range transfer.Items {
			for _, theirs := range other.Items {
				if item.ProductID == theirs.ProductID && item.VariantName == theirs.VariantName {
					conflicts = append(conflicts, TransferConflict{
						TransferID: other.ID,
						Type:       ConflictTypeProductOverlap,
						Message: fmt.Sprintf("product %d variant %s already scheduled on transfer %d",
							item.ProductID, item.VariantName, other.ID),
					})
				}
			}
		}
	}

	return conflicts
}

func findStock(stock []models.WarehouseStockInfo, productID int64, variant string) *models.WarehouseStockInfo {
	for i := range stock {
		if stock[i].ProductID == productID && stock[i].VariantName == variant {
			return &stock[i]
		}
	}
	return nil
}

func stockProductName(stock []models.WarehouseStockInfo, productID int64, variant string) string {
	if row := findStock(stock, productID, variant); row != nil && row.ProductName != "" {
		return row.ProductName
	}
	return fmt.Sprintf("product %d", productID)
}

// localMidnight truncates to midnight in local time. Calendar-day
// comparison, not instant comparison, so timezone and DST boundaries
// cannot push a same-day transfer into "the past".
func localMidnight(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}
