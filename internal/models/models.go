package models

import "time"

// Customer account statuses
const (
	AccountStatusOpen   = "OPEN"
	AccountStatusOnHold = "ON_HOLD"
	AccountStatusClosed = "CLOSED"
)

// Customer represents a billing account
type Customer struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	AccountStatus string    `db:"account_status" json:"account_status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Product statuses
const (
	ProductStatusActive   = "ACTIVE"
	ProductStatusInactive = "INACTIVE"
)

// Product represents a sellable cylinder product (parent level)
type Product struct {
	ID           int64     `db:"id" json:"id"`
	SKU          string    `db:"sku" json:"sku"`
	Name         string    `db:"name" json:"name"`
	Status       string    `db:"status" json:"status"`
	CapacityKg   float64   `db:"capacity_kg" json:"capacity_kg"`
	TareWeightKg float64   `db:"tare_weight_kg" json:"tare_weight_kg"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PriceInfo is the authoritative current price for a (customer, product) pair
type PriceInfo struct {
	ProductID     int64   `db:"product_id" json:"product_id"`
	FinalPrice    float64 `db:"final_price" json:"final_price"`
	PriceListID   int64   `db:"price_list_id" json:"price_list_id"`
	PriceListName string  `db:"price_list_name" json:"price_list_name"`
}

// Order statuses
const (
	OrderStatusDraft     = "DRAFT"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusScheduled = "SCHEDULED"
	OrderStatusEnRoute   = "EN_ROUTE"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusInvoiced  = "INVOICED"
	OrderStatusCancelled = "CANCELLED"
)

// Order types
const (
	OrderTypeDelivery = "DELIVERY"
	OrderTypeRefill   = "REFILL"
	OrderTypeExchange = "EXCHANGE"
	OrderTypePickup   = "PICKUP"
)

// Order represents a customer order. The monetary fields are derived:
// total_amount is always subtotal + tax_amount and is only written by
// the totals recomputation paths, never hand-edited.
type Order struct {
	ID                int64     `db:"id" json:"id"`
	CustomerID        int64     `db:"customer_id" json:"customer_id"`
	DeliveryAddressID int64     `db:"delivery_address_id" json:"delivery_address_id"`
	WarehouseID       int64     `db:"warehouse_id" json:"warehouse_id"`
	OrderType         string    `db:"order_type" json:"order_type"`
	Status            string    `db:"status" json:"status"`
	ScheduledDate     time.Time `db:"scheduled_date" json:"scheduled_date"`
	Subtotal          float64   `db:"subtotal" json:"subtotal"`
	TaxPercent        float64   `db:"tax_percent" json:"tax_percent"`
	TaxAmount         float64   `db:"tax_amount" json:"tax_amount"`
	TotalAmount       float64   `db:"total_amount" json:"total_amount"`
	ExchangeEmptyQty  int       `db:"exchange_empty_qty" json:"exchange_empty_qty"`
	IdempotencyKey    string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// OrderLine represents one product line on an order. Subtotal is
// quantity * unit_price unless an explicit override was persisted.
type OrderLine struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Subtotal    float64 `db:"subtotal" json:"subtotal"`
}

// Cylinder variants tracked as separate stock counters
const (
	VariantFull  = "FULL"
	VariantEmpty = "EMPTY"
)

// Inventory movement types
const (
	MovementTypeDelivery = "DELIVERY"
	MovementTypePickup   = "PICKUP"
	MovementTypeExchange = "EXCHANGE"
)

// InventoryMovement is an ephemeral stock delta produced by the
// movement planner; applying it is the stock layer's job, not the
// planner's.
type InventoryMovement struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	VariantKey     string `json:"variant_key"`
	QtyFullChange  int    `json:"qty_full_change"`
	QtyEmptyChange int    `json:"qty_empty_change"`
	MovementType   string `json:"movement_type"`
}

// Transfer statuses
const (
	TransferStatusDraft     = "DRAFT"
	TransferStatusPending   = "PENDING"
	TransferStatusApproved  = "APPROVED"
	TransferStatusInTransit = "IN_TRANSIT"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusCancelled = "CANCELLED"
)

// Transfer represents a multi-SKU warehouse transfer
type Transfer struct {
	ID                     int64          `db:"id" json:"id"`
	SourceWarehouseID      int64          `db:"source_warehouse_id" json:"source_warehouse_id"`
	DestinationWarehouseID int64          `db:"destination_warehouse_id" json:"destination_warehouse_id"`
	TransferDate           time.Time      `db:"transfer_date" json:"transfer_date"`
	Status                 string         `db:"status" json:"status"`
	Items                  []TransferItem `db:"-" json:"items,omitempty"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

// TransferItem represents one (product, variant) line on a transfer.
// QuantityToTransfer is float64 because the wire input may carry a
// fractional value; the validator rejects anything that is not a
// positive whole number.
type TransferItem struct {
	ID                 int64    `db:"id" json:"id"`
	TransferID         int64    `db:"transfer_id" json:"transfer_id"`
	ProductID          int64    `db:"product_id" json:"product_id"`
	VariantName        string   `db:"variant_name" json:"variant_name"`
	QuantityToTransfer float64  `db:"quantity_to_transfer" json:"quantity_to_transfer"`
	UnitWeightKg       float64  `db:"unit_weight_kg" json:"unit_weight_kg"`
	UnitCost           float64  `db:"unit_cost" json:"unit_cost"`
	IsValid            bool     `db:"-" json:"is_valid"`
	ValidationErrors   []string `db:"-" json:"validation_errors,omitempty"`
	ValidationWarnings []string `db:"-" json:"validation_warnings,omitempty"`
}

// WarehouseStockInfo is a read-only stock snapshot per
// (warehouse, product, variant)
type WarehouseStockInfo struct {
	WarehouseID  int64     `db:"warehouse_id" json:"warehouse_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	VariantName  string    `db:"variant_name" json:"variant_name"`
	ProductName  string    `db:"product_name" json:"product_name"`
	QtyAvailable float64   `db:"qty_available" json:"qty_available"`
	QtyReserved  float64   `db:"qty_reserved" json:"qty_reserved"`
	ReorderLevel float64   `db:"reorder_level" json:"reorder_level"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IdempotencyRecord maps a caller-supplied key to a completed response
type IdempotencyRecord struct {
	ID        int64     `db:"id"`
	KeyHash   string    `db:"key_hash"`
	Status    string    `db:"status"`
	Response  []byte    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Idempotency record statuses
const (
	IdempotencyInProcess = "IN_PROCESS"
	IdempotencyCompleted = "COMPLETED"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
