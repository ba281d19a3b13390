package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	t.Run("Forward chain is allowed", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
		assert.True(t, StatusProcessing.CanTransitionTo(StatusShipped))
		assert.True(t, StatusShipped.CanTransitionTo(StatusDelivered))
	})

	t.Run("Cancellation only exits pending", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
		assert.False(t, StatusProcessing.CanTransitionTo(StatusCancelled))
		assert.False(t, StatusShipped.CanTransitionTo(StatusCancelled))
	})

	t.Run("No skipping or reversing", func(t *testing.T) {
		assert.False(t, StatusPending.CanTransitionTo(StatusShipped))
		assert.False(t, StatusShipped.CanTransitionTo(StatusProcessing))
		assert.False(t, StatusProcessing.CanTransitionTo(StatusPending))
	})

	t.Run("Terminal states admit nothing", func(t *testing.T) {
		for _, next := range AllStatuses {
			assert.False(t, StatusDelivered.CanTransitionTo(next))
			assert.False(t, StatusCancelled.CanTransitionTo(next))
		}
	})
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, OrderStatus("teleported").Valid())
	assert.False(t, OrderStatus("").Valid())
}
