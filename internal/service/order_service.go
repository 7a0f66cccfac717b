package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"cylinder-service/config"
	"cylinder-service/internal/broker"
	"cylinder-service/internal/models"
	"cylinder-service/internal/redisclient"
	"cylinder-service/internal/store"
	"cylinder-service/internal/util"
	"cylinder-service/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// priceTolerance is the maximum drift allowed between a submitted line
// price and the authoritative current price.
const priceTolerance = 0.01

// idempotencyTTL bounds how long an in-flight marker can block retries
const idempotencyTTL = 10 * time.Minute

// OrderService orchestrates order creation, status changes and total
// recomputation.
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	stockClient    StockOperations
	business       config.BusinessConfig
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	stockClient StockOperations,
	business config.BusinessConfig,
) *OrderService {
	return &OrderService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		stockClient:    stockClient,
		business:       business,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID        int64              `json:"customer_id" binding:"required"`
	DeliveryAddressID int64              `json:"delivery_address_id" binding:"required"`
	WarehouseID       int64              `json:"warehouse_id"`
	OrderType         string             `json:"order_type" binding:"required,oneof=DELIVERY REFILL EXCHANGE PICKUP"`
	ScheduledDate     time.Time          `json:"scheduled_date" binding:"required"`
	ExchangeEmptyQty  int                `json:"exchange_empty_qty"`
	TaxPercent        *float64           `json:"tax_percent,omitempty"`
	SkipStockCheck    bool               `json:"skip_stock_check"`
	Lines             []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	IdempotencyKey    string             `json:"idempotency_key,omitempty"`
}

// OrderLineRequest represents a line in an order request.
// ExpectedPrice is the price the client showed the user; it lets a
// mismatch be reported as a mid-flight price change rather than a
// client error.
type OrderLineRequest struct {
	ProductID     int64   `json:"product_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required,min=1"`
	UnitPrice     float64 `json:"unit_price" binding:"required,gt=0"`
	ExpectedPrice float64 `json:"expected_price"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID     int64   `json:"order_id"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
	Replayed    bool    `json:"replayed,omitempty"`
}

// CreateOrder creates a new order. The idempotency gate is a single
// atomic SETNX: a duplicate key with an in-flight request fails
// ErrConcurrentDuplicate, a duplicate of a completed request replays
// the stored response without re-executing.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}
	if req.WarehouseID == 0 {
		req.WarehouseID = s.business.DefaultWarehouseID
	}

	keyHash := hashKey(req.IdempotencyKey)

	if resp, err := s.replayCompleted(ctx, keyHash); resp != nil || err != nil {
		return resp, err
	}

	acquired, err := s.redis.BeginIdempotent(ctx, keyHash, idempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire idempotency gate: %w", err)
	}
	if !acquired {
		util.OrdersFailedTotal.WithLabelValues("concurrent_duplicate").Inc()
		return nil, ErrConcurrentDuplicate
	}
	if _, err := s.store.CreateIdempotencyRecord(ctx, keyHash); err != nil {
		_ = s.redis.ClearIdempotent(ctx, keyHash)
		return nil, fmt.Errorf("failed to record idempotency key: %w", err)
	}

	resp, err := s.createOrder(ctx, req)
	if err != nil {
		// Clear the gate so a corrected retry with the same key works.
		_ = s.redis.ClearIdempotent(ctx, keyHash)
		if derr := s.store.DeleteIdempotencyRecord(ctx, keyHash); derr != nil {
			s.logger.Error("Failed to clear idempotency record", zap.Error(derr))
		}
		return nil, err
	}

	if body, merr := json.Marshal(resp); merr == nil {
		if cerr := s.store.CompleteIdempotencyRecord(ctx, keyHash, body); cerr != nil {
			s.logger.Error("Failed to complete idempotency record", zap.Error(cerr))
		}
	}

	return resp, nil
}

func (s *OrderService) replayCompleted(ctx context.Context, keyHash string) (*CreateOrderResponse, error) {
	rec, err := s.store.GetIdempotencyRecord(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	resp, err := decodeReplay(rec)
	if err != nil {
		if errors.Is(err, ErrConcurrentDuplicate) {
			util.OrdersFailedTotal.WithLabelValues("concurrent_duplicate").Inc()
		}
		return nil, err
	}

	s.logger.Info("Replayed completed order request",
		zap.String("key_hash", keyHash),
		zap.Int64("order_id", resp.OrderID))
	return resp, nil
}

// decodeReplay turns a stored idempotency record into the response to
// replay. An in-process record means another request with the same key
// is still running.
func decodeReplay(rec *models.IdempotencyRecord) (*CreateOrderResponse, error) {
	if rec.Status == models.IdempotencyInProcess {
		return nil, ErrConcurrentDuplicate
	}

	var resp CreateOrderResponse
	if err := json.Unmarshal(rec.Response, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	resp.Replayed = true
	return &resp, nil
}

func (s *OrderService) createOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	customer, err := s.store.GetCustomerByID(ctx, req.CustomerID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("customer_not_found").Inc()
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, req.CustomerID)
	}
	switch customer.AccountStatus {
	case models.AccountStatusOnHold:
		util.OrdersFailedTotal.WithLabelValues("account_on_hold").Inc()
		return nil, fmt.Errorf("%w: customer %d", ErrAccountOnHold, customer.ID)
	case models.AccountStatusClosed:
		util.OrdersFailedTotal.WithLabelValues("account_closed").Inc()
		return nil, fmt.Errorf("%w: customer %d", ErrAccountClosed, customer.ID)
	}

	products, err := s.resolveProducts(ctx, req.Lines)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_lines").Inc()
		return nil, err
	}

	if err := s.checkPricing(ctx, req.CustomerID, req.Lines); err != nil {
		util.OrdersFailedTotal.WithLabelValues("pricing").Inc()
		return nil, err
	}

	// Pickup orders collect empties; no full cylinders leave the
	// warehouse, so there is no full-variant stock to check.
	if !req.SkipStockCheck && req.OrderType != models.OrderTypePickup {
		if err := s.checkStock(ctx, req.WarehouseID, req.Lines); err != nil {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
	}

	taxPercent := s.business.DefaultTaxPercent
	if req.TaxPercent != nil {
		taxPercent = *req.TaxPercent
	}

	lines := make([]models.OrderLine, 0, len(req.Lines))
	for _, lr := range req.Lines {
		lines = append(lines, models.OrderLine{
			ProductID:   lr.ProductID,
			ProductName: products[lr.ProductID].Name,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
			Subtotal:    float64(lr.Quantity) * lr.UnitPrice,
		})
	}

	totals := ComputeWithTax(lines, taxPercent)
	if totals.GrandTotal < s.business.MinOrderTotal {
		util.OrdersFailedTotal.WithLabelValues("below_minimum").Inc()
		return nil, fmt.Errorf("%w: total %.2f, minimum %.2f",
			ErrOrderBelowMinimum, totals.GrandTotal, s.business.MinOrderTotal)
	}

	order := &models.Order{
		CustomerID:        req.CustomerID,
		DeliveryAddressID: req.DeliveryAddressID,
		WarehouseID:       req.WarehouseID,
		OrderType:         req.OrderType,
		Status:            models.OrderStatusDraft,
		ScheduledDate:     req.ScheduledDate,
		Subtotal:          totals.Subtotal,
		TaxPercent:        taxPercent,
		TaxAmount:         totals.TaxAmount,
		TotalAmount:       totals.GrandTotal,
		ExchangeEmptyQty:  req.ExchangeEmptyQty,
		IdempotencyKey:    req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	lineData := make([]models.OrderLineData, 0, len(lines))
	for i := range lines {
		lines[i].OrderID = order.ID
		if err := s.store.CreateOrderLine(ctx, &lines[i]); err != nil {
			return nil, fmt.Errorf("failed to create order line: %w", err)
		}
		lineData = append(lineData, models.OrderLineData{
			ProductID: lines[i].ProductID,
			Quantity:  lines[i].Quantity,
			UnitPrice: lines[i].UnitPrice,
		})
	}

	// Recompute from the persisted lines to absorb any rounding drift.
	totals, err = s.RecomputeOrderTotal(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	util.OrdersCreatedTotal.WithLabelValues(order.OrderType).Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_type", order.OrderType),
		zap.Float64("total", totals.GrandTotal))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		OrderType:   order.OrderType,
		TotalAmount: totals.GrandTotal,
		Lines:       lineData,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CreateOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.GrandTotal,
	}, nil
}

// resolveProducts batches the catalog lookup for every line and checks
// that each product exists and is active.
func (s *OrderService) resolveProducts(ctx context.Context, lines []OrderLineRequest) (map[int64]*models.Product, error) {
	productIDs := make([]int64, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, line := range lines {
		product, ok := productMap[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, line.ProductID)
		}
		if product.Status != models.ProductStatusActive {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, product.Name)
		}
	}

	return productMap, nil
}

// checkPricing batches the price lookup and verifies each line within
// the tolerance. When the submitted expected price already matches the
// current one the mismatch is reported as a mid-flight price change.
func (s *OrderService) checkPricing(ctx context.Context, customerID int64, lines []OrderLineRequest) error {
	productIDs := make([]int64, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
	}

	prices, err := s.store.GetPricesForCustomer(ctx, customerID, productIDs)
	if err != nil {
		return fmt.Errorf("failed to look up pricing: %w", err)
	}

	for _, line := range lines {
		price, ok := prices[line.ProductID]
		if !ok {
			return fmt.Errorf("%w: product %d", ErrNoPricingFound, line.ProductID)
		}

		if math.Abs(line.UnitPrice-price.FinalPrice) <= priceTolerance {
			continue
		}

		if line.ExpectedPrice > 0 && math.Abs(line.ExpectedPrice-price.FinalPrice) <= priceTolerance {
			return fmt.Errorf("%w: product %d now %.2f (%s)",
				ErrPriceChanged, line.ProductID, price.FinalPrice, price.PriceListName)
		}
		return fmt.Errorf("%w: product %d submitted %.2f, current %.2f (%s)",
			ErrPriceMismatch, line.ProductID, line.UnitPrice, price.FinalPrice, price.PriceListName)
	}

	return nil
}

// checkStock verifies net availability of full cylinders for every
// line in one snapshot query.
func (s *OrderService) checkStock(ctx context.Context, warehouseID int64, lines []OrderLineRequest) error {
	productIDs := make([]int64, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
	}

	snapshot, err := s.stockClient.GetStockLevels(ctx, warehouseID, productIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStockOperation, err)
	}

	for _, line := range lines {
		row := findStock(snapshot, line.ProductID, models.VariantFull)
		if row == nil {
			return fmt.Errorf("%w: no stock row for product %d", ErrInsufficientStock, line.ProductID)
		}
		if float64(line.Quantity) > row.QtyAvailable-row.QtyReserved {
			return fmt.Errorf("%w: product %d requested %d, available %.0f",
				ErrInsufficientStock, line.ProductID, line.Quantity, row.QtyAvailable-row.QtyReserved)
		}
	}

	return nil
}

// ChangeStatus moves an order through the workflow. Stock side effects
// are tied to specific transitions: reserve on confirm, release on
// cancel after confirm; the delivered deduction is handled by the
// movement applier consuming the published event.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID int64, newStatus, reason string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ChangeStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	if err := workflow.ValidateTransition(order.Status, newStatus); err != nil {
		return nil, err
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}

	switch newStatus {
	case models.OrderStatusConfirmed:
		if err := s.reserveOrderStock(ctx, order, lines); err != nil {
			return nil, err
		}
	case models.OrderStatusCancelled:
		// A reservation exists only once the order was confirmed.
		if order.Status != models.OrderStatusDraft {
			s.releaseOrderStock(ctx, order, lines)
		}
		util.OrdersCancelledTotal.Inc()
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(order.Status, newStatus).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", newStatus))

	s.publishStatusEvent(ctx, order, newStatus, reason)

	order.Status = newStatus
	return order, nil
}

// reserveOrderStock reserves full cylinders for every line. Any
// failure releases the lines reserved so far and aborts; partial
// reservations never survive. Pickup orders issue nothing, so they
// carry no reservation at all.
func (s *OrderService) reserveOrderStock(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	if order.OrderType == models.OrderTypePickup {
		return nil
	}

	start := time.Now()
	defer func() {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
	}()

	reserved := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		success, err := s.stockClient.Reserve(ctx, order.WarehouseID, line.ProductID, models.VariantFull, float64(line.Quantity))
		if err != nil {
			util.StockReservationsFailed.WithLabelValues("error").Inc()
			s.compensateReservations(ctx, order, reserved)
			return fmt.Errorf("%w: reserve product %d: %v", ErrStockOperation, line.ProductID, err)
		}
		if !success {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			s.compensateReservations(ctx, order, reserved)
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, line.ProductID)
		}
		reserved = append(reserved, line)
	}

	return nil
}

// compensateReservations rolls back the reservations made so far
func (s *OrderService) compensateReservations(ctx context.Context, order *models.Order, reserved []models.OrderLine) {
	for _, line := range reserved {
		if err := s.stockClient.Release(ctx, order.WarehouseID, line.ProductID, models.VariantFull, float64(line.Quantity)); err != nil {
			s.logger.Error("Failed to compensate reservation",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", line.ProductID),
				zap.Error(err))
		}
	}
}

func (s *OrderService) releaseOrderStock(ctx context.Context, order *models.Order, lines []models.OrderLine) {
	// Mirror of reserveOrderStock: a pickup order never reserved.
	if order.OrderType == models.OrderTypePickup {
		return
	}

	for _, line := range lines {
		if err := s.stockClient.Release(ctx, order.WarehouseID, line.ProductID, models.VariantFull, float64(line.Quantity)); err != nil {
			s.logger.Error("Failed to release reservation",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", line.ProductID),
				zap.Error(err))
		}
	}
}

func (s *OrderService) publishStatusEvent(ctx context.Context, order *models.Order, newStatus, reason string) {
	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}

	var err error
	switch newStatus {
	case models.OrderStatusConfirmed:
		base.EventType = models.EventTypeOrderConfirmed
		err = s.eventPublisher.PublishOrderConfirmed(ctx, &models.OrderConfirmedEvent{
			BaseEvent: base, OrderID: order.ID, CustomerID: order.CustomerID,
		})
	case models.OrderStatusDelivered:
		base.EventType = models.EventTypeOrderDelivered
		err = s.eventPublisher.PublishOrderDelivered(ctx, &models.OrderDeliveredEvent{
			BaseEvent:        base,
			OrderID:          order.ID,
			OrderType:        order.OrderType,
			WarehouseID:      order.WarehouseID,
			ExchangeEmptyQty: order.ExchangeEmptyQty,
		})
	case models.OrderStatusCancelled:
		base.EventType = models.EventTypeOrderCancelled
		err = s.eventPublisher.PublishOrderCancelled(ctx, &models.OrderCancelledEvent{
			BaseEvent: base, OrderID: order.ID, Reason: reason,
		})
	default:
		return
	}

	if err != nil {
		s.logger.Error("Failed to publish status event",
			zap.Int64("order_id", order.ID),
			zap.String("status", newStatus),
			zap.Error(err))
	}
}

// RecomputeOrderTotal recomputes subtotal from the current lines and
// sets total_amount = subtotal + stored tax_amount. The stored tax is
// authoritative here; only UpdateTax re-derives it.
func (s *OrderService) RecomputeOrderTotal(ctx context.Context, orderID int64) (TotalBreakdown, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("failed to load order lines: %w", err)
	}

	subtotal := ComputeSubtotal(lines)
	totals := TotalBreakdown{
		Subtotal:   subtotal,
		TaxAmount:  order.TaxAmount,
		GrandTotal: subtotal + order.TaxAmount,
	}

	err = s.store.UpdateOrderTotals(ctx, orderID, totals.Subtotal, order.TaxPercent, totals.TaxAmount, totals.GrandTotal)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("failed to update order totals: %w", err)
	}

	return totals, nil
}

// UpdateTax sets a new tax percentage and re-derives tax_amount and
// total_amount from it. This is the only path that changes
// tax_percent.
func (s *OrderService) UpdateTax(ctx context.Context, orderID int64, newTaxPercent float64) (TotalBreakdown, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	if !workflow.IsEditable(order.Status) {
		return TotalBreakdown{}, fmt.Errorf("%w: status %s", ErrOrderNotEditable, order.Status)
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("failed to load order lines: %w", err)
	}

	totals := ComputeWithTax(lines, newTaxPercent)

	err = s.store.UpdateOrderTotals(ctx, orderID, totals.Subtotal, newTaxPercent, totals.TaxAmount, totals.GrandTotal)
	if err != nil {
		return TotalBreakdown{}, fmt.Errorf("failed to update order totals: %w", err)
	}

	return totals, nil
}

// GetOrder retrieves an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
