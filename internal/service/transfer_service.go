package service

import (
	"context"
	"fmt"
	"time"

	"cylinder-service/internal/broker"
	"cylinder-service/internal/models"
	"cylinder-service/internal/store"
	"cylinder-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferService orchestrates warehouse transfer creation, approval
// and completion around the validator's verdict. A transfer that fails
// validation is rejected before any stock mutation.
type TransferService struct {
	store          *store.Store
	stockClient    StockOperations
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(store *store.Store, stockClient StockOperations, eventPublisher *broker.EventPublisher) *TransferService {
	return &TransferService{
		store:          store,
		stockClient:    stockClient,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateTransferRequest represents a request to create a transfer
type CreateTransferRequest struct {
	SourceWarehouseID      int64                 `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID int64                 `json:"destination_warehouse_id" binding:"required"`
	TransferDate           time.Time             `json:"transfer_date" binding:"required"`
	Items                  []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

// TransferItemRequest represents an item in a transfer request
type TransferItemRequest struct {
	ProductID          int64   `json:"product_id" binding:"required"`
	VariantName        string  `json:"variant_name" binding:"required"`
	QuantityToTransfer float64 `json:"quantity_to_transfer" binding:"required"`
	UnitWeightKg       float64 `json:"unit_weight_kg"`
	UnitCost           float64 `json:"unit_cost"`
}

// TransferResult carries the transfer, its validation verdict and any
// advisory conflicts back to the caller. Warnings and conflicts never
// block.
type TransferResult struct {
	Transfer   *models.Transfer    `json:"transfer,omitempty"`
	Validation *TransferValidation `json:"validation"`
	Conflicts  []TransferConflict  `json:"conflicts,omitempty"`
}

func (r *CreateTransferRequest) toTransfer() *models.Transfer {
	transfer := &models.Transfer{
		SourceWarehouseID:      r.SourceWarehouseID,
		DestinationWarehouseID: r.DestinationWarehouseID,
		TransferDate:           r.TransferDate,
		Status:                 models.TransferStatusPending,
	}
	for _, item := range r.Items {
		transfer.Items = append(transfer.Items, models.TransferItem{
			ProductID:          item.ProductID,
			VariantName:        item.VariantName,
			QuantityToTransfer: item.QuantityToTransfer,
			UnitWeightKg:       item.UnitWeightKg,
			UnitCost:           item.UnitCost,
		})
	}
	return transfer
}

// ValidateOnly runs validation and conflict checks without persisting
// anything.
func (ts *TransferService) ValidateOnly(ctx context.Context, req *CreateTransferRequest) (*TransferResult, error) {
	transfer := req.toTransfer()

	result, err := ts.validate(ctx, transfer)
	if err != nil {
		return nil, err
	}
	result.Transfer = nil
	return result, nil
}

// CreateTransfer validates and persists a transfer. An invalid
// transfer is returned with its verdict and nothing is written.
func (ts *TransferService) CreateTransfer(ctx context.Context, req *CreateTransferRequest) (*TransferResult, error) {
	ctx, span := util.StartSpan(ctx, "TransferService.CreateTransfer")
	defer span.End()

	transfer := req.toTransfer()

	result, err := ts.validate(ctx, transfer)
	if err != nil {
		return nil, err
	}
	if !result.Validation.IsValid {
		result.Transfer = nil
		return result, nil
	}

	if err := ts.store.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	for i := range transfer.Items {
		transfer.Items[i].TransferID = transfer.ID
		if err := ts.store.CreateTransferItem(ctx, &transfer.Items[i]); err != nil {
			return nil, fmt.Errorf("failed to create transfer item: %w", err)
		}
	}

	ts.logger.Info("Transfer created",
		zap.Int64("transfer_id", transfer.ID),
		zap.Int64("source", transfer.SourceWarehouseID),
		zap.Int64("destination", transfer.DestinationWarehouseID),
		zap.Int("items", len(transfer.Items)))

	result.Transfer = transfer
	return result, nil
}

func (ts *TransferService) validate(ctx context.Context, transfer *models.Transfer) (*TransferResult, error) {
	productIDs := make([]int64, 0, len(transfer.Items))
	for _, item := range transfer.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	snapshot, err := ts.stockClient.GetStockLevels(ctx, transfer.SourceWarehouseID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: stock snapshot: %v", ErrStockOperation, err)
	}

	validation := ValidateTransfer(transfer, snapshot)
	if validation.IsValid {
		util.TransfersValidatedTotal.WithLabelValues("valid").Inc()
	} else {
		util.TransfersValidatedTotal.WithLabelValues("invalid").Inc()
	}

	existing, err := ts.store.GetOpenTransfersBySource(ctx, transfer.SourceWarehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open transfers: %w", err)
	}
	conflicts := CheckConflicts(transfer, existing)
	if len(conflicts) > 0 {
		util.TransferConflictsTotal.Add(float64(len(conflicts)))
		ts.logger.Warn("Transfer conflicts detected",
			zap.Int64("source", transfer.SourceWarehouseID),
			zap.Int("conflicts", len(conflicts)))
	}

	return &TransferResult{
		Transfer:   transfer,
		Validation: validation,
		Conflicts:  conflicts,
	}, nil
}

// ApproveTransfer re-validates against a fresh stock snapshot and, on
// success, publishes TransferApproved; the transfer worker reserves
// source stock from that event.
func (ts *TransferService) ApproveTransfer(ctx context.Context, transferID int64) (*TransferResult, error) {
	ctx, span := util.StartSpan(ctx, "TransferService.ApproveTransfer")
	defer span.End()

	transfer, err := ts.store.GetTransferByID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer %d", ErrNotFound, transferID)
	}
	if transfer.Status != models.TransferStatusPending && transfer.Status != models.TransferStatusDraft {
		return nil, fmt.Errorf("transfer %d cannot be approved from status %s", transferID, transfer.Status)
	}

	result, err := ts.validate(ctx, transfer)
	if err != nil {
		return nil, err
	}
	if !result.Validation.IsValid {
		return result, nil
	}

	if err := ts.store.UpdateTransferStatus(ctx, transferID, models.TransferStatusApproved); err != nil {
		return nil, fmt.Errorf("failed to approve transfer: %w", err)
	}
	transfer.Status = models.TransferStatusApproved

	items := make([]models.TransferItemData, 0, len(transfer.Items))
	for _, item := range transfer.Items {
		items = append(items, models.TransferItemData{
			ProductID:   item.ProductID,
			VariantName: item.VariantName,
			Quantity:    item.QuantityToTransfer,
		})
	}

	event := &models.TransferApprovedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransferApproved,
			Timestamp: time.Now(),
		},
		TransferID:        transfer.ID,
		SourceWarehouseID: transfer.SourceWarehouseID,
		Items:             items,
	}
	if err := ts.eventPublisher.PublishTransferApproved(ctx, event); err != nil {
		ts.logger.Error("Failed to publish TransferApproved event", zap.Error(err))
	}

	ts.logger.Info("Transfer approved", zap.Int64("transfer_id", transferID))
	return result, nil
}

// HandleTransferApproved reserves source-warehouse stock for every
// item of an approved transfer. Partial failure releases the
// reservations made so far and returns the transfer to PENDING.
func (ts *TransferService) HandleTransferApproved(ctx context.Context, event *models.TransferApprovedEvent) error {
	ctx, span := util.StartSpan(ctx, "TransferService.HandleTransferApproved")
	defer span.End()

	processed, err := ts.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ts.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	reserved := make([]models.TransferItemData, 0, len(event.Items))
	for _, item := range event.Items {
		success, rerr := ts.stockClient.Reserve(ctx, event.SourceWarehouseID, item.ProductID, item.VariantName, item.Quantity)
		if rerr != nil || !success {
			ts.logger.Error("Transfer reservation failed, compensating",
				zap.Int64("transfer_id", event.TransferID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(rerr))
			for _, done := range reserved {
				if relErr := ts.stockClient.Release(ctx, event.SourceWarehouseID, done.ProductID, done.VariantName, done.Quantity); relErr != nil {
					ts.logger.Error("Failed to release transfer reservation",
						zap.Int64("product_id", done.ProductID),
						zap.Error(relErr))
				}
			}
			if uerr := ts.store.UpdateTransferStatus(ctx, event.TransferID, models.TransferStatusPending); uerr != nil {
				ts.logger.Error("Failed to return transfer to pending", zap.Error(uerr))
			}
			if merr := ts.store.MarkEventProcessed(ctx, event.EventID, event.EventType); merr != nil {
				ts.logger.Error("Failed to mark event processed", zap.Error(merr))
			}
			if rerr != nil {
				return fmt.Errorf("%w: reserve transfer item %d: %v", ErrStockOperation, item.ProductID, rerr)
			}
			return fmt.Errorf("%w: transfer item %d", ErrInsufficientStock, item.ProductID)
		}
		reserved = append(reserved, item)
	}

	if err := ts.store.UpdateTransferStatus(ctx, event.TransferID, models.TransferStatusInTransit); err != nil {
		return fmt.Errorf("failed to mark transfer in transit: %w", err)
	}
	if err := ts.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ts.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	ts.logger.Info("Transfer stock reserved",
		zap.Int64("transfer_id", event.TransferID),
		zap.Int("items", len(reserved)))
	return nil
}

// CompleteTransferResult reports per-item completion. Application is
// all-or-nothing per item, not across the transfer: items that moved
// stay moved, failed items are listed for retry.
type CompleteTransferResult struct {
	Completed   bool    `json:"completed"`
	MovedItems  []int64 `json:"moved_items"`
	FailedItems []int64 `json:"failed_items,omitempty"`
}

// CompleteTransfer moves every reserved item from source to
// destination.
func (ts *TransferService) CompleteTransfer(ctx context.Context, transferID int64) (*CompleteTransferResult, error) {
	ctx, span := util.StartSpan(ctx, "TransferService.CompleteTransfer")
	defer span.End()

	transfer, err := ts.store.GetTransferByID(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("%w: transfer %d", ErrNotFound, transferID)
	}
	if transfer.Status != models.TransferStatusInTransit {
		return nil, fmt.Errorf("transfer %d cannot be completed from status %s", transferID, transfer.Status)
	}

	result := &CompleteTransferResult{}
	for _, item := range transfer.Items {
		err := ts.stockClient.MoveStock(ctx, transfer.SourceWarehouseID, transfer.DestinationWarehouseID, item)
		if err != nil {
			ts.logger.Error("Failed to move transfer item",
				zap.Int64("transfer_id", transferID),
				zap.Int64("product_id", item.ProductID),
				zap.String("variant", item.VariantName),
				zap.Error(err))
			result.FailedItems = append(result.FailedItems, item.ProductID)
			continue
		}
		result.MovedItems = append(result.MovedItems, item.ProductID)
	}

	if len(result.FailedItems) > 0 {
		return result, nil
	}

	if err := ts.store.UpdateTransferStatus(ctx, transferID, models.TransferStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete transfer: %w", err)
	}
	result.Completed = true
	util.TransfersCompletedTotal.Inc()

	event := &models.TransferCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransferCompleted,
			Timestamp: time.Now(),
		},
		TransferID:             transfer.ID,
		SourceWarehouseID:      transfer.SourceWarehouseID,
		DestinationWarehouseID: transfer.DestinationWarehouseID,
	}
	if err := ts.eventPublisher.PublishTransferCompleted(ctx, event); err != nil {
		ts.logger.Error("Failed to publish TransferCompleted event", zap.Error(err))
	}

	ts.logger.Info("Transfer completed", zap.Int64("transfer_id", transferID))
	return result, nil
}
