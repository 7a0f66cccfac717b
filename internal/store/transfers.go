package store

import (
	"context"
	"database/sql"
	"fmt"

	"cylinder-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTransfer creates a new transfer
func (s *Store) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO transfers (source_warehouse_id, destination_warehouse_id, transfer_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, transfer, query,
		transfer.SourceWarehouseID, transfer.DestinationWarehouseID,
		transfer.TransferDate, transfer.Status)
}

// CreateTransferItem creates a new transfer item
func (s *Store) CreateTransferItem(ctx context.Context, item *models.TransferItem) error {
	query := `
		INSERT INTO transfer_items (transfer_id, product_id, variant_name, quantity_to_transfer, unit_weight_kg, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.TransferID, item.ProductID, item.VariantName,
		item.QuantityToTransfer, item.UnitWeightKg, item.UnitCost)
}

// GetTransferByID retrieves a transfer with its items
func (s *Store) GetTransferByID(ctx context.Context, id int64) (*models.Transfer, error) {
	var transfer models.Transfer
	err := s.db.GetContext(ctx, &transfer, "SELECT * FROM transfers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transfer not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &transfer.Items,
		"SELECT * FROM transfer_items WHERE transfer_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// UpdateTransferStatus updates transfer status
func (s *Store) UpdateTransferStatus(ctx context.Context, transferID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE transfers SET status = $1, updated_at = NOW() WHERE id = $2",
		status, transferID)
	return err
}

// GetOpenTransfersBySource retrieves pending/approved/in-transit
// transfers from a warehouse, items included, for conflict checks.
func (s *Store) GetOpenTransfersBySource(ctx context.Context, warehouseID int64) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := s.db.SelectContext(ctx, &transfers, `
		SELECT * FROM transfers
		WHERE source_warehouse_id = $1 AND status IN ($2, $3, $4)
		ORDER BY transfer_date`,
		warehouseID,
		models.TransferStatusPending, models.TransferStatusApproved, models.TransferStatusInTransit)
	if err != nil {
		return nil, err
	}

	for i := range transfers {
		err = s.db.SelectContext(ctx, &transfers[i].Items,
			"SELECT * FROM transfer_items WHERE transfer_id = $1 ORDER BY id", transfers[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return transfers, nil
}

// GetWarehouseStock retrieves the stock snapshot for a set of products
// in a warehouse, all variants, in one query.
func (s *Store) GetWarehouseStock(ctx context.Context, warehouseID int64, productIDs []int64) ([]models.WarehouseStockInfo, error) {
	if len(productIDs) == 0 {
		return []models.WarehouseStockInfo{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT ws.warehouse_id, ws.product_id, ws.variant_name, p.name AS product_name,
			ws.qty_available, ws.qty_reserved, ws.reorder_level, ws.updated_at
		FROM warehouse_stock ws
		JOIN products p ON p.id = ws.product_id
		WHERE ws.warehouse_id = ? AND ws.product_id IN (?)`, warehouseID, productIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var stock []models.WarehouseStockInfo
	err = s.db.SelectContext(ctx, &stock, query, args...)
	return stock, err
}

// GetAllWarehouseStock retrieves every stock row (startup Redis sync)
func (s *Store) GetAllWarehouseStock(ctx context.Context) ([]models.WarehouseStockInfo, error) {
	var stock []models.WarehouseStockInfo
	err := s.db.SelectContext(ctx, &stock, `
		SELECT ws.warehouse_id, ws.product_id, ws.variant_name, p.name AS product_name,
			ws.qty_available, ws.qty_reserved, ws.reorder_level, ws.updated_at
		FROM warehouse_stock ws
		JOIN products p ON p.id = ws.product_id`)
	return stock, err
}

// ReserveWarehouseStockTx reserves stock within a transaction
// (FOR UPDATE lock)
func (s *Store) ReserveWarehouseStockTx(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var row struct {
		QtyAvailable float64 `db:"qty_available"`
		QtyReserved  float64 `db:"qty_reserved"`
	}
	err = tx.GetContext(ctx, &row, `
		SELECT qty_available, qty_reserved FROM warehouse_stock
		WHERE warehouse_id = $1 AND product_id = $2 AND variant_name = $3
		FOR UPDATE`,
		warehouseID, productID, variant)
	if err != nil {
		return fmt.Errorf("failed to lock stock row: %w", err)
	}

	// Reservations stay inside qty_available until fulfillment, so the
	// usable amount is the net of the two counters.
	if row.QtyAvailable-row.QtyReserved < qty {
		return fmt.Errorf("insufficient stock: available=%.0f, reserved=%.0f, requested=%.0f",
			row.QtyAvailable, row.QtyReserved, qty)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE warehouse_stock
		SET qty_reserved = qty_reserved + $1, updated_at = NOW()
		WHERE warehouse_id = $2 AND product_id = $3 AND variant_name = $4`,
		qty, warehouseID, productID, variant)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	return tx.Commit()
}

// AdjustWarehouseStock applies raw deltas to a stock row. Named
// wrappers below keep call sites readable.
func (s *Store) AdjustWarehouseStock(ctx context.Context, warehouseID, productID int64, variant string, availableDelta, reservedDelta float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE warehouse_stock
		SET qty_available = qty_available + $1, qty_reserved = qty_reserved + $2, updated_at = NOW()
		WHERE warehouse_id = $3 AND product_id = $4 AND variant_name = $5`,
		availableDelta, reservedDelta, warehouseID, productID, variant)
	return err
}

// ReleaseWarehouseStock drops a reservation; qty_available is untouched
// because reserved stock never left it.
func (s *Store) ReleaseWarehouseStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	return s.AdjustWarehouseStock(ctx, warehouseID, productID, variant, 0, -qty)
}

// FulfillWarehouseStock converts a reservation into a deduction: the
// stock physically leaves, so both counters drop.
func (s *Store) FulfillWarehouseStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	return s.AdjustWarehouseStock(ctx, warehouseID, productID, variant, -qty, -qty)
}

// AddWarehouseStock increases availability (incoming cylinders)
func (s *Store) AddWarehouseStock(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	return s.AdjustWarehouseStock(ctx, warehouseID, productID, variant, qty, 0)
}

// MoveWarehouseStockTx moves one reserved item from source to
// destination in a single transaction. Per-item all-or-nothing; the
// caller decides what to do when a later item fails.
func (s *Store) MoveWarehouseStockTx(ctx context.Context, sourceID, destID, productID int64, variant string, qty float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var reserved float64
	err = tx.GetContext(ctx, &reserved, `
		SELECT qty_reserved FROM warehouse_stock
		WHERE warehouse_id = $1 AND product_id = $2 AND variant_name = $3
		FOR UPDATE`,
		sourceID, productID, variant)
	if err != nil {
		return fmt.Errorf("failed to lock source stock row: %w", err)
	}

	if reserved < qty {
		return fmt.Errorf("reserved stock too low: reserved=%.0f, moving=%.0f", reserved, qty)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE warehouse_stock
		SET qty_available = qty_available - $1, qty_reserved = qty_reserved - $1, updated_at = NOW()
		WHERE warehouse_id = $2 AND product_id = $3 AND variant_name = $4`,
		qty, sourceID, productID, variant)
	if err != nil {
		return fmt.Errorf("failed to deduct source stock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO warehouse_stock (warehouse_id, product_id, variant_name, qty_available, qty_reserved, reorder_level)
		VALUES ($1, $2, $3, $4, 0, 0)
		ON CONFLICT (warehouse_id, product_id, variant_name)
		DO UPDATE SET qty_available = warehouse_stock.qty_available + $4, updated_at = NOW()`,
		destID, productID, variant, qty)
	if err != nil {
		return fmt.Errorf("failed to add destination stock: %w", err)
	}

	return tx.Commit()
}
