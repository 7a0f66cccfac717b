package service

import "errors"

// Sentinel errors for order and transfer operations. Handlers map
// these onto HTTP statuses; services wrap them with context via %w.
var (
	ErrAccountOnHold       = errors.New("customer account is on hold")
	ErrAccountClosed       = errors.New("customer account is closed")
	ErrProductInactive     = errors.New("product is inactive")
	ErrPriceMismatch       = errors.New("line price does not match current price")
	ErrPriceChanged        = errors.New("price changed since the order was prepared")
	ErrNoPricingFound      = errors.New("no pricing found for product")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderBelowMinimum   = errors.New("order total below minimum")
	ErrConcurrentDuplicate = errors.New("duplicate request in flight")
	ErrOrderNotEditable    = errors.New("order is not editable in its current status")
	ErrStockOperation      = errors.New("stock operation failed")
	ErrNotFound            = errors.New("not found")
)
