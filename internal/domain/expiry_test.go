package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEvaluate(t *testing.T) {
	purchase := date(2024, 1, 1)

	tests := []struct {
		name          string
		days          int
		now           time.Time
		wantRemaining int
		wantStatus    Status
	}{
		{
			name:          "active well before expiry",
			days:          30,
			now:           date(2024, 1, 10),
			wantRemaining: 21,
			wantStatus:    StatusActive,
		},
		{
			name:          "expiring soon at 6 days remaining",
			days:          30,
			now:           date(2024, 1, 25),
			wantRemaining: 6,
			wantStatus:    StatusExpiringSoon,
		},
		{
			name:          "boundary of expiring soon window",
			days:          30,
			now:           date(2024, 1, 24),
			wantRemaining: 7,
			wantStatus:    StatusExpiringSoon,
		},
		{
			name:          "zero days remaining counts as expired",
			days:          30,
			now:           date(2024, 1, 31),
			wantRemaining: 0,
			wantStatus:    StatusExpired,
		},
		{
			name:          "past expiry goes negative",
			days:          30,
			now:           date(2024, 2, 1),
			wantRemaining: -1,
			wantStatus:    StatusExpired,
		},
		{
			name:          "one day subscription",
			days:          1,
			now:           date(2024, 1, 1),
			wantRemaining: 1,
			wantStatus:    StatusExpiringSoon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate(purchase, tt.days, tt.now)
			assert.Equal(t, tt.wantRemaining, eval.DaysRemaining)
			assert.Equal(t, tt.wantStatus, eval.Status)
		})
	}
}

func TestEvaluateEndDate(t *testing.T) {
	eval := Evaluate(date(2024, 1, 1), 30, date(2024, 1, 10))
	assert.Equal(t, date(2024, 1, 31), eval.EndDate)
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	// The same calendar day must yield the same result regardless of clock time.
	purchase := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	morning := time.Date(2024, 1, 25, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 25, 23, 58, 0, 0, time.UTC)

	assert.Equal(t, Evaluate(purchase, 30, morning), Evaluate(purchase, 30, evening))
}

func TestEvaluateCustomerInactiveOverride(t *testing.T) {
	customer := &Customer{
		PurchaseDate:     date(2024, 1, 1),
		SubscriptionDays: 365,
		IsActive:         false,
	}

	eval := EvaluateCustomer(customer, date(2024, 1, 2))
	assert.Equal(t, StatusInactive, eval.Status, "inactivity must win over date math")

	// Dates are still computed so callers can display the window.
	assert.Greater(t, eval.DaysRemaining, 300)
}

func TestEvaluateRotation(t *testing.T) {
	base := &Customer{
		PurchaseDate:     date(2024, 1, 1),
		SubscriptionDays: 45,
		IsActive:         true,
	}

	t.Run("day 23 of a 45 day plan is flagged", func(t *testing.T) {
		rot := EvaluateRotation(base, date(2024, 1, 24)) // D+23
		assert.Equal(t, 23, rot.DaysSincePurchase)
		assert.Equal(t, 7, rot.DaysUntilRotation)
		assert.True(t, rot.Due)
	})

	t.Run("day 10 is not flagged", func(t *testing.T) {
		rot := EvaluateRotation(base, date(2024, 1, 11))
		assert.Equal(t, 20, rot.DaysUntilRotation)
		assert.False(t, rot.Due)
	})

	t.Run("short plans never rotate", func(t *testing.T) {
		short := &Customer{PurchaseDate: date(2024, 1, 1), SubscriptionDays: 15, IsActive: true}
		rot := EvaluateRotation(short, date(2024, 1, 10))
		assert.False(t, rot.Due)
	})

	t.Run("inactive customers never rotate", func(t *testing.T) {
		inactive := &Customer{PurchaseDate: date(2024, 1, 1), SubscriptionDays: 45, IsActive: false}
		rot := EvaluateRotation(inactive, date(2024, 1, 24))
		assert.False(t, rot.Due)
	})

	t.Run("expired customers never rotate", func(t *testing.T) {
		rot := EvaluateRotation(base, date(2024, 3, 1))
		assert.False(t, rot.Due)
	})
}
