package service

import "cylinder-service/internal/models"

// PlanMovements maps an order onto the stock deltas its fulfillment
// implies. This is the conservation law tying order types to physical
// full/empty cylinder counts:
//
//	delivery: full -qty
//	refill:   full -qty, empty +qty
//	exchange: full -qty, empty +exchangeQty
//	pickup:   empty +exchangeQty
//
// each produced per order line, qty being the line quantity and
// exchangeQty the order-level empty-cylinder count.
//
// Pure and deterministic; no stock is read and nothing is applied
// here. Lines without a resolved product are skipped and counted so
// the caller can log the data gap without failing the order.
func PlanMovements(order *models.Order, lines []models.OrderLine) (movements []models.InventoryMovement, skipped int) {
	switch order.OrderType {
	case models.OrderTypeDelivery:
		for _, line := range lines {
			if line.ProductID == 0 {
				skipped++
				continue
			}
			movements = append(movements, models.InventoryMovement{
				ProductID:     line.ProductID,
				ProductName:   line.ProductName,
				VariantKey:    models.VariantFull,
				QtyFullChange: -line.Quantity,
				MovementType:  models.MovementTypeDelivery,
			})
		}

	case models.OrderTypeRefill:
		for _, line := range lines {
			if line.ProductID == 0 {
				skipped++
				continue
			}
			movements = append(movements,
				models.InventoryMovement{
					ProductID:     line.ProductID,
					ProductName:   line.ProductName,
					VariantKey:    models.VariantFull,
					QtyFullChange: -line.Quantity,
					MovementType:  models.MovementTypeDelivery,
				},
				models.InventoryMovement{
					ProductID:      line.ProductID,
					ProductName:    line.ProductName,
					VariantKey:     models.VariantEmpty,
					QtyEmptyChange: line.Quantity,
					MovementType:   models.MovementTypePickup,
				})
		}

	case models.OrderTypeExchange:
		for _, line := range lines {
			if line.ProductID == 0 {
				skipped++
				continue
			}
			movements = append(movements,
				models.InventoryMovement{
					ProductID:     line.ProductID,
					ProductName:   line.ProductName,
					VariantKey:    models.VariantFull,
					QtyFullChange: -line.Quantity,
					MovementType:  models.MovementTypeDelivery,
				},
				models.InventoryMovement{
					ProductID:      line.ProductID,
					ProductName:    line.ProductName,
					VariantKey:     models.VariantEmpty,
					QtyEmptyChange: order.ExchangeEmptyQty,
					MovementType:   models.MovementTypeExchange,
				})
		}

	case models.OrderTypePickup:
		for _, line := range lines {
			if line.ProductID == 0 {
				skipped++
				continue
			}
			movements = append(movements, models.InventoryMovement{
				ProductID:      line.ProductID,
				ProductName:    line.ProductName,
				VariantKey:     models.VariantEmpty,
				QtyEmptyChange: order.ExchangeEmptyQty,
				MovementType:   models.MovementTypePickup,
			})
		}
	}

	return movements, skipped
}
