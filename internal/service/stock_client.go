package service

import (
	"context"
	"strings"
	"time"

	"cylinder-service/internal/models"
	"cylinder-service/internal/redisclient"
	"cylinder-service/internal/store"
	"cylinder-service/internal/util"

	"go.uber.org/zap"
)

// StockOperations is the stock surface the order and transfer services
// depend on. *StockClient is the production implementation.
type StockOperations interface {
	GetStockLevels(ctx context.Context, warehouseID int64, productIDs []int64) ([]models.WarehouseStockInfo, error)
	Reserve(ctx context.Context, warehouseID, productID int64, variant string, qty float64) (bool, error)
	Release(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error
	ApplyMovement(ctx context.Context, warehouseID int64, m models.InventoryMovement) error
	RevertMovement(ctx context.Context, warehouseID int64, m models.InventoryMovement) error
	MoveStock(ctx context.Context, sourceID, destID int64, item models.TransferItem) error
}

// StockClient handles stock operations per (warehouse, product,
// variant): Redis fast path with the database as the authoritative
// fallback.
type StockClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewStockClient creates a new stock client
func NewStockClient(store *store.Store, redis *redisclient.Client) *StockClient {
	return &StockClient{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// GetStockLevels retrieves the stock snapshot for a set of products in
// one query.
func (sc *StockClient) GetStockLevels(ctx context.Context, warehouseID int64, productIDs []int64) ([]models.WarehouseStockInfo, error) {
	return sc.store.GetWarehouseStock(ctx, warehouseID, productIDs)
}

// Reserve places a soft hold on stock. Redis first; DB fallback when
// Redis is unavailable. Returns false on insufficient stock.
func (sc *StockClient) Reserve(ctx context.Context, warehouseID, productID int64, variant string, qty float64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "StockClient.Reserve")
	defer span.End()

	success, err := sc.redis.ReserveStock(ctx, warehouseID, productID, variant, qty)
	if err != nil {
		sc.logger.Warn("Redis reservation failed, falling back to DB",
			zap.Int64("warehouse_id", warehouseID),
			zap.Int64("product_id", productID),
			zap.String("variant", variant),
			zap.Error(err))

		return sc.reserveDB(ctx, warehouseID, productID, variant, qty)
	}

	if !success {
		return false, nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sc.store.ReserveWarehouseStockTx(ctx, warehouseID, productID, variant, qty); err != nil {
			sc.logger.Error("Failed to sync reservation to DB",
				zap.Int64("product_id", productID),
				zap.String("variant", variant),
				zap.Error(err))
		}
	}()

	return true, nil
}

func (sc *StockClient) reserveDB(ctx context.Context, warehouseID, productID int64, variant string, qty float64) (bool, error) {
	err := sc.store.ReserveWarehouseStockTx(ctx, warehouseID, productID, variant, qty)
	if err != nil {
		if strings.Contains(err.Error(), "insufficient stock") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release returns a reservation to availability (compensation)
func (sc *StockClient) Release(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	ctx, span := util.StartSpan(ctx, "StockClient.Release")
	defer span.End()

	if err := sc.redis.ReleaseStock(ctx, warehouseID, productID, variant, qty); err != nil {
		sc.logger.Error("Failed to release stock in Redis",
			zap.Int64("product_id", productID),
			zap.String("variant", variant),
			zap.Error(err))
	}

	return sc.store.ReleaseWarehouseStock(ctx, warehouseID, productID, variant, qty)
}

// Fulfill converts a reservation into an actual deduction
func (sc *StockClient) Fulfill(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	ctx, span := util.StartSpan(ctx, "StockClient.Fulfill")
	defer span.End()

	if err := sc.redis.FulfillStock(ctx, warehouseID, productID, variant, qty); err != nil {
		sc.logger.Error("Failed to fulfill stock in Redis",
			zap.Int64("product_id", productID),
			zap.String("variant", variant),
			zap.Error(err))
	}

	return sc.store.FulfillWarehouseStock(ctx, warehouseID, productID, variant, qty)
}

// Add increases availability (collected empties, incoming transfers)
func (sc *StockClient) Add(ctx context.Context, warehouseID, productID int64, variant string, qty float64) error {
	ctx, span := util.StartSpan(ctx, "StockClient.Add")
	defer span.End()

	if err := sc.redis.AddStock(ctx, warehouseID, productID, variant, qty); err != nil {
		sc.logger.Error("Failed to add stock in Redis",
			zap.Int64("product_id", productID),
			zap.String("variant", variant),
			zap.Error(err))
	}

	return sc.store.AddWarehouseStock(ctx, warehouseID, productID, variant, qty)
}

// ApplyMovement applies one planned inventory movement at a warehouse.
// Negative full changes convert the delivery reservation into a
// deduction; positive empty changes add collected cylinders.
func (sc *StockClient) ApplyMovement(ctx context.Context, warehouseID int64, m models.InventoryMovement) error {
	if m.QtyFullChange < 0 {
		if err := sc.Fulfill(ctx, warehouseID, m.ProductID, models.VariantFull, float64(-m.QtyFullChange)); err != nil {
			return err
		}
	}
	if m.QtyEmptyChange != 0 {
		if err := sc.Add(ctx, warehouseID, m.ProductID, models.VariantEmpty, float64(m.QtyEmptyChange)); err != nil {
			return err
		}
	}
	return nil
}

// RevertMovement undoes ApplyMovement during compensation. DB only;
// Redis converges on the next startup sync.
func (sc *StockClient) RevertMovement(ctx context.Context, warehouseID int64, m models.InventoryMovement) error {
	if m.QtyFullChange < 0 {
		// Inverse of a fulfillment: restore both counters.
		if err := sc.store.AdjustWarehouseStock(ctx, warehouseID, m.ProductID, models.VariantFull,
			float64(-m.QtyFullChange), float64(-m.QtyFullChange)); err != nil {
			return err
		}
	}
	if m.QtyEmptyChange != 0 {
		if err := sc.store.AddWarehouseStock(ctx, warehouseID, m.ProductID, models.VariantEmpty, float64(-m.QtyEmptyChange)); err != nil {
			return err
		}
	}
	return nil
}

// MoveStock moves one reserved transfer item from source to
// destination, all-or-nothing for that item.
func (sc *StockClient) MoveStock(ctx context.Context, sourceID, destID int64, item models.TransferItem) error {
	ctx, span := util.StartSpan(ctx, "StockClient.MoveStock")
	defer span.End()

	return sc.store.MoveWarehouseStockTx(ctx, sourceID, destID, item.ProductID, item.VariantName, item.QuantityToTransfer)
}

// SyncStockToRedis loads every warehouse stock row into Redis
func (sc *StockClient) SyncStockToRedis(ctx context.Context) error {
	sc.logger.Info("Starting warehouse stock sync to Redis")

	rows, err := sc.store.GetAllWarehouseStock(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := sc.redis.InitStock(ctx, row.WarehouseID, row.ProductID, row.VariantName,
			row.QtyAvailable, row.QtyReserved); err != nil {
			sc.logger.Error("Failed to init Redis stock",
				zap.Int64("warehouse_id", row.WarehouseID),
				zap.Int64("product_id", row.ProductID),
				zap.String("variant", row.VariantName),
				zap.Error(err))
		}
	}

	sc.logger.Info("Warehouse stock sync completed", zap.Int("rows", len(rows)))
	return nil
}
