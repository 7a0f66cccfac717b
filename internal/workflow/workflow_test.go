package workflow

import (
	"testing"

	"cylinder-service/internal/models"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	models.OrderStatusDraft,
	models.OrderStatusConfirmed,
	models.OrderStatusScheduled,
	models.OrderStatusEnRoute,
	models.OrderStatusDelivered,
	models.OrderStatusInvoiced,
	models.OrderStatusCancelled,
}

func TestValidateTransitionFullMatrix(t *testing.T) {
	valid := map[[2]string]bool{
		{models.OrderStatusDraft, models.OrderStatusConfirmed}:     true,
		{models.OrderStatusDraft, models.OrderStatusCancelled}:     true,
		{models.OrderStatusConfirmed, models.OrderStatusScheduled}: true,
		{models.OrderStatusConfirmed, models.OrderStatusCancelled}: true,
		{models.OrderStatusScheduled, models.OrderStatusEnRoute}:   true,
		{models.OrderStatusScheduled, models.OrderStatusCancelled}: true,
		{models.OrderStatusEnRoute, models.OrderStatusDelivered}:   true,
		{models.OrderStatusDelivered, models.OrderStatusInvoiced}:  true,
	}

	validCount := 0
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := ValidateTransition(from, to)
			if valid[[2]string{from, to}] {
				assert.NoError(t, err, "%s -> %s should be valid", from, to)
				validCount++
			} else {
				assert.Error(t, err, "%s -> %s should be invalid", from, to)
			}
		}
	}

	assert.Equal(t, 8, validCount)
}

// Of the 49 ordered status pairs, only the 5 forward moves plus the 3
// cancellation moves are legal.
func TestValidTransitionCount(t *testing.T) {
	count := 0
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if ValidateTransition(from, to) == nil {
				count++
			}
		}
	}
	assert.Equal(t, 8, count)
}

func TestNoSelfTransitions(t *testing.T) {
	for _, s := range allStatuses {
		err := ValidateTransition(s, s)
		assert.Error(t, err, "self-transition %s must be invalid", s)

		var invalid *ErrInvalidTransition
		assert.ErrorAs(t, err, &invalid)
	}
}

func TestEnRouteCannotGoBackToScheduled(t *testing.T) {
	err := ValidateTransition(models.OrderStatusEnRoute, models.OrderStatusScheduled)
	assert.Error(t, err)
}

func TestEditability(t *testing.T) {
	assert.True(t, IsEditable(models.OrderStatusDraft))
	assert.True(t, IsEditable(models.OrderStatusConfirmed))
	assert.False(t, IsEditable(models.OrderStatusScheduled))
	assert.False(t, IsEditable(models.OrderStatusEnRoute))
	assert.False(t, IsEditable(models.OrderStatusDelivered))
	assert.False(t, IsEditable(models.OrderStatusInvoiced))
	assert.False(t, IsEditable(models.OrderStatusCancelled))
}

func TestCancellability(t *testing.T) {
	assert.True(t, IsCancellable(models.OrderStatusDraft))
	assert.True(t, IsCancellable(models.OrderStatusConfirmed))
	assert.True(t, IsCancellable(models.OrderStatusScheduled))
	assert.False(t, IsCancellable(models.OrderStatusEnRoute))
	assert.False(t, IsCancellable(models.OrderStatusDelivered))
	assert.False(t, IsCancellable(models.OrderStatusInvoiced))
	assert.False(t, IsCancellable(models.OrderStatusCancelled))
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.OrderStatusInvoiced))
	assert.True(t, IsTerminal(models.OrderStatusCancelled))
	assert.False(t, IsTerminal(models.OrderStatusDraft))
	assert.False(t, IsTerminal(models.OrderStatusDelivered))
}
