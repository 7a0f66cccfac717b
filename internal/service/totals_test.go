package service

import (
	"testing"

	"cylinder-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeSubtotal(t *testing.T) {
	lines := []models.OrderLine{
		{ProductID: 1, Quantity: 2, UnitPrice: 350},
		{ProductID: 2, Quantity: 1, UnitPrice: 300},
	}

	assert.Equal(t, 1000.0, ComputeSubtotal(lines))
}

func TestComputeSubtotalHonorsOverride(t *testing.T) {
	lines := []models.OrderLine{
		// Persisted override wins over quantity * unit_price.
		{ProductID: 1, Quantity: 2, UnitPrice: 350, Subtotal: 650},
		{ProductID: 2, Quantity: 1, UnitPrice: 300},
	}

	assert.Equal(t, 950.0, ComputeSubtotal(lines))
}

func TestComputeWithTax(t *testing.T) {
	lines := []models.OrderLine{
		{ProductID: 1, Quantity: 4, UnitPrice: 250},
	}

	totals := ComputeWithTax(lines, 16)

	assert.Equal(t, 1000.0, totals.Subtotal)
	assert.Equal(t, 160.0, totals.TaxAmount)
	assert.Equal(t, 1160.0, totals.GrandTotal)
}

func TestComputeWithTaxZeroPercent(t *testing.T) {
	lines := []models.OrderLine{
		{ProductID: 1, Quantity: 1, UnitPrice: 500},
	}

	totals := ComputeWithTax(lines, 0)

	assert.Equal(t, 500.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.TaxAmount)
	assert.Equal(t, totals.Subtotal, totals.GrandTotal)
}

func TestGrandTotalInvariant(t *testing.T) {
	lines := []models.OrderLine{
		{ProductID: 1, Quantity: 3, UnitPrice: 123.45},
		{ProductID: 2, Quantity: 7, UnitPrice: 9.99, Subtotal: 70},
	}

	for _, taxPercent := range []float64{0, 8, 16, 21.5} {
		totals := ComputeWithTax(lines, taxPercent)
		assert.Equal(t, totals.Subtotal+totals.TaxAmount, totals.GrandTotal)
	}
}
