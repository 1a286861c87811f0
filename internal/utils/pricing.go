package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
)

// DefaultFineMultiplier is applied per late day on top of the daily fee.
var DefaultFineMultiplier = decimal.RequireFromString("1.5")

const moneyPlaces = 2

// Calculator prices rentals. It performs no I/O and holds no locks, so it is
// safe to call from request handlers and the webhook path alike.
type Calculator struct {
	fineMultiplier decimal.Decimal
}

func NewCalculator(fineMultiplier decimal.Decimal) *Calculator {
	if fineMultiplier.IsZero() {
		fineMultiplier = DefaultFineMultiplier
	}
	return &Calculator{fineMultiplier: fineMultiplier}
}

// RoundMoney rounds half-up to two fraction digits. Every amount leaving the
// calculator has gone through it exactly once.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// WholeDaysBetween counts calendar days from start to end, never less than zero.
func WholeDaysBetween(start, end time.Time) int {
	days := domain.DaysBetween(start, end)
	if days < 0 {
		return 0
	}
	return days
}

// BaseCost charges the daily fee for every booked day, with a one day minimum.
func (c *Calculator) BaseCost(rental *domain.Rental, car *domain.Car) decimal.Decimal {
	days := WholeDaysBetween(rental.RentalDate, rental.ReturnDate)
	if days < 1 {
		days = 1
	}
	return RoundMoney(car.DailyFee.Mul(decimal.NewFromInt(int64(days))))
}

// Penalty is zero unless the car came back after the expected return date.
func (c *Calculator) Penalty(rental *domain.Rental, car *domain.Car) decimal.Decimal {
	late := lateDays(rental)
	if late <= 0 {
		return decimal.Zero
	}
	return RoundMoney(car.DailyFee.Mul(decimal.NewFromInt(int64(late))).Mul(c.fineMultiplier))
}

// AmountForType returns what a checkout session of the given type must charge.
func (c *Calculator) AmountForType(rental *domain.Rental, car *domain.Car, paymentType domain.PaymentType) (decimal.Decimal, error) {
	switch paymentType {
	case domain.PaymentTypePayment:
		return c.BaseCost(rental, car), nil
	case domain.PaymentTypeFine:
		penalty := c.Penalty(rental, car)
		if !penalty.IsPositive() {
			return decimal.Zero, domain.NewConflictError(domain.CodeNotApplicable,
				fmt.Sprintf("no fine accrued for rental %d", rental.ID))
		}
		return penalty, nil
	default:
		return decimal.Zero, domain.NewValidationError(domain.CodeInvalidArgument,
			fmt.Sprintf("unknown payment type %q", paymentType))
	}
}

func lateDays(rental *domain.Rental) int {
	if rental.ActualReturnDate == nil {
		return 0
	}
	return domain.DaysBetween(rental.ReturnDate, *rental.ActualReturnDate)
}
