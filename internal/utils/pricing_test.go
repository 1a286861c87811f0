package utils

import (
	"testing"
	"time"

	"carrental-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	require.NoError(t, err)
	return d
}

func car(fee string) *domain.Car {
	return &domain.Car{ID: 1, DailyFee: decimal.RequireFromString(fee), Inventory: 3}
}

func TestWholeDaysBetween(t *testing.T) {
	assert.Equal(t, 3, WholeDaysBetween(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-04")))
	assert.Equal(t, 0, WholeDaysBetween(mustDate(t, "2024-01-04"), mustDate(t, "2024-01-01")))
	assert.Equal(t, 29, WholeDaysBetween(mustDate(t, "2024-02-01"), mustDate(t, "2024-03-01")))
}

func TestCalculator_BaseCost(t *testing.T) {
	calc := NewCalculator(DefaultFineMultiplier)

	tests := []struct {
		name     string
		fee      string
		from, to string
		expected string
	}{
		{"Three days", "100.00", "2024-01-01", "2024-01-04", "300.00"},
		{"Same day charges one day", "45.50", "2024-01-01", "2024-01-01", "45.50"},
		{"Fraction fee", "19.99", "2024-01-01", "2024-01-08", "139.93"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rental := &domain.Rental{RentalDate: mustDate(t, tt.from), ReturnDate: mustDate(t, tt.to)}
			assert.Equal(t, tt.expected, calc.BaseCost(rental, car(tt.fee)).StringFixed(2))
		})
	}
}

func TestCalculator_Penalty(t *testing.T) {
	calc := NewCalculator(DefaultFineMultiplier)

	t.Run("Active rental has no penalty", func(t *testing.T) {
		rental := &domain.Rental{RentalDate: mustDate(t, "2024-01-01"), ReturnDate: mustDate(t, "2024-01-04")}
		assert.True(t, calc.Penalty(rental, car("100.00")).IsZero())
	})

	t.Run("Returned on time has no penalty", func(t *testing.T) {
		returned := mustDate(t, "2024-01-04")
		rental := &domain.Rental{RentalDate: mustDate(t, "2024-01-01"), ReturnDate: returned, ActualReturnDate: &returned}
		assert.True(t, calc.Penalty(rental, car("100.00")).IsZero())
	})

	t.Run("Two days late", func(t *testing.T) {
		returned := mustDate(t, "2024-01-06")
		rental := &domain.Rental{RentalDate: mustDate(t, "2024-01-01"), ReturnDate: mustDate(t, "2024-01-04"), ActualReturnDate: &returned}
		assert.Equal(t, "300.00", calc.Penalty(rental, car("100.00")).StringFixed(2))
	})

	t.Run("Rounds half up", func(t *testing.T) {
		returned := mustDate(t, "2024-01-05")
		rental := &domain.Rental{RentalDate: mustDate(t, "2024-01-01"), ReturnDate: mustDate(t, "2024-01-04"), ActualReturnDate: &returned}
		// 33.33 * 1.5 = 49.995
		assert.Equal(t, "50.00", calc.Penalty(rental, car("33.33")).StringFixed(2))
	})
}

func TestCalculator_AmountForType(t *testing.T) {
	calc := NewCalculator(decimal.Zero)
	rental := &domain.Rental{ID: 9, RentalDate: mustDate(t, "2024-01-01"), ReturnDate: mustDate(t, "2024-01-04")}

	amount, err := calc.AmountForType(rental, car("100.00"), domain.PaymentTypePayment)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("300.00").Equal(amount))

	_, err = calc.AmountForType(rental, car("100.00"), domain.PaymentTypeFine)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.CodeNotApplicable, domain.CodeOf(err))

	_, err = calc.AmountForType(rental, car("100.00"), domain.PaymentType("TIP"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
