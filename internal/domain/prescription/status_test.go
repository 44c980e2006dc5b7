package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsValid(t *testing.T) {
	valid := []Status{
		StatusPendingReviewPortal, StatusPendingValidation, StatusValidated,
		StatusRejected, StatusSentToExternal, StatusPreparation,
		StatusReceivedAtSkol, StatusReadyForPickup, StatusDispensed,
		StatusCancelled, StatusArchived,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("SHIPPED").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPendingReviewPortal, StatusPendingValidation, true},
		{StatusPendingReviewPortal, StatusValidated, false},
		{StatusPendingValidation, StatusValidated, true},
		{StatusPendingValidation, StatusRejected, true},
		{StatusPendingValidation, StatusPreparation, false},
		{StatusValidated, StatusSentToExternal, true},
		{StatusValidated, StatusPreparation, true},
		{StatusValidated, StatusReceivedAtSkol, false},
		{StatusRejected, StatusPendingValidation, true},
		{StatusRejected, StatusArchived, true},
		{StatusSentToExternal, StatusReceivedAtSkol, true},
		{StatusPreparation, StatusReceivedAtSkol, true},
		{StatusPreparation, StatusReadyForPickup, false},
		{StatusReceivedAtSkol, StatusReadyForPickup, true},
		{StatusReadyForPickup, StatusDispensed, true},
		{StatusDispensed, StatusPendingValidation, true},
		{StatusDispensed, StatusArchived, true},
		{StatusDispensed, StatusReadyForPickup, false},
		{StatusCancelled, StatusArchived, true},
		{StatusCancelled, StatusPendingValidation, false},
		{StatusArchived, StatusPendingValidation, false},

		// Cancellation is open from every active state, closed once the
		// order is dispensed, cancelled or archived
		{StatusPendingReviewPortal, StatusCancelled, true},
		{StatusPendingValidation, StatusCancelled, true},
		{StatusValidated, StatusCancelled, true},
		{StatusPreparation, StatusCancelled, true},
		{StatusReadyForPickup, StatusCancelled, true},
		{StatusDispensed, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusArchived, StatusCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusArchived.IsTerminal())
	assert.False(t, StatusDispensed.IsTerminal())
	assert.False(t, StatusCancelled.IsTerminal())
}
