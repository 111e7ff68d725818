package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAccessCode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"six digits", "483920", true},
		{"leading zeros", "000001", true},
		{"five digits", "12345", false},
		{"seven digits", "1234567", false},
		{"letters", "12a456", false},
		{"unicode digits", "１２３４５６", false},
		{"empty", "", false},
		{"whitespace", "123 56", false},
		{"negative looking", "-12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccessCode(tt.code)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAccessCode)
			}
		})
	}
}

func TestValidateProfileNumber(t *testing.T) {
	valid := []int{1, 2, 3, 4, 5}
	for _, n := range valid {
		n := n
		assert.NoError(t, ValidateProfileNumber(&n))
	}

	invalid := []int{0, 6, -1, 100}
	for _, n := range invalid {
		n := n
		assert.ErrorIs(t, ValidateProfileNumber(&n), ErrInvalidProfileNumber)
	}

	assert.NoError(t, ValidateProfileNumber(nil), "unassigned slot is valid")
}

func TestValidateCustomer(t *testing.T) {
	base := func() *Customer {
		profile := 2
		return &Customer{
			Name:             "张三",
			AccessCode:       "123456",
			PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			SubscriptionDays: 30,
			IsActive:         true,
			ProfileNumber:    &profile,
		}
	}

	t.Run("valid customer", func(t *testing.T) {
		assert.NoError(t, ValidateCustomer(base()))
	})

	t.Run("missing name", func(t *testing.T) {
		c := base()
		c.Name = "  "
		assert.ErrorIs(t, ValidateCustomer(c), ErrNameRequired)
	})

	t.Run("zero subscription days", func(t *testing.T) {
		c := base()
		c.SubscriptionDays = 0
		assert.ErrorIs(t, ValidateCustomer(c), ErrInvalidDuration)
	})

	t.Run("bad code shape", func(t *testing.T) {
		c := base()
		c.AccessCode = "12345"
		assert.ErrorIs(t, ValidateCustomer(c), ErrInvalidAccessCode)
	})
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("long-enough-secret"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("admin@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
}
