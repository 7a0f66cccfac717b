package models

import "time"

// Event types
const (
	EventTypeOrderCreated      = "ORDER_CREATED"
	EventTypeOrderConfirmed    = "ORDER_CONFIRMED"
	EventTypeOrderDelivered    = "ORDER_DELIVERED"
	EventTypeOrderInvoiced     = "ORDER_INVOICED"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
	EventTypeTransferApproved  = "TRANSFER_APPROVED"
	EventTypeTransferCompleted = "TRANSFER_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	OrderType   string          `json:"order_type"`
	TotalAmount float64         `json:"total_amount"`
	Lines       []OrderLineData `json:"lines"`
}

// OrderConfirmedEvent published after stock is reserved for every line
type OrderConfirmedEvent struct {
	BaseEvent
	OrderID    int64 `json:"order_id"`
	CustomerID int64 `json:"customer_id"`
}

// OrderDeliveredEvent published when an order reaches DELIVERED; the
// movement worker consumes it to apply the planned stock deltas.
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID          int64  `json:"order_id"`
	OrderType        string `json:"order_type"`
	WarehouseID      int64  `json:"warehouse_id"`
	ExchangeEmptyQty int    `json:"exchange_empty_qty"`
}

// OrderCancelledEvent published when an order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// TransferApprovedEvent published when a transfer passes approval; the
// transfer worker consumes it to reserve source-warehouse stock.
type TransferApprovedEvent struct {
	BaseEvent
	TransferID        int64              `json:"transfer_id"`
	SourceWarehouseID int64              `json:"source_warehouse_id"`
	Items             []TransferItemData `json:"items"`
}

// TransferCompletedEvent published after every item has been moved
type TransferCompletedEvent struct {
	BaseEvent
	TransferID             int64 `json:"transfer_id"`
	SourceWarehouseID      int64 `json:"source_warehouse_id"`
	DestinationWarehouseID int64 `json:"destination_warehouse_id"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// TransferItemData represents transfer item data in events
type TransferItemData struct {
	ProductID   int64   `json:"product_id"`
	VariantName string  `json:"variant_name"`
	Quantity    float64 `json:"quantity"`
}
