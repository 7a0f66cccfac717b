package service

import "cylinder-service/internal/models"

// TotalBreakdown is the result of a tax computation. Values keep
// native float semantics; rounding to two decimals happens only at
// the display boundary.
type TotalBreakdown struct {
	Subtotal   float64 `json:"subtotal"`
	TaxAmount  float64 `json:"tax_amount"`
	GrandTotal float64 `json:"grand_total"`
}

// ComputeSubtotal sums order lines. A persisted per-line subtotal
// override wins; otherwise quantity * unit_price.
func ComputeSubtotal(lines []models.OrderLine) float64 {
	var subtotal float64
	for _, line := range lines {
		if line.Subtotal > 0 {
			subtotal += line.Subtotal
		} else {
			subtotal += float64(line.Quantity) * line.UnitPrice
		}
	}
	return subtotal
}

// ComputeWithTax derives tax and grand total from the lines and a tax
// percentage.
func ComputeWithTax(lines []models.OrderLine, taxPercent float64) TotalBreakdown {
	subtotal := ComputeSubtotal(lines)
	taxAmount := subtotal * taxPercent / 100
	return TotalBreakdown{
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		GrandTotal: subtotal + taxAmount,
	}
}
