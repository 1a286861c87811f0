package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/utils"
)

type paymentValidator struct {
	payments repository.PaymentRepository
	rentals  repository.RentalRepository
	cars     repository.CarRepository
	calc     *utils.Calculator
}

func NewPaymentValidator(
	payments repository.PaymentRepository,
	rentals repository.RentalRepository,
	cars repository.CarRepository,
	calc *utils.Calculator,
) PaymentValidator {
	return &paymentValidator{payments: payments, rentals: rentals, cars: cars, calc: calc}
}

func (v *paymentValidator) CheckNoPendingPayments(ctx context.Context, userID int64) error {
	pending, err := v.payments.ExistsPendingForUser(ctx, userID)
	if err != nil {
		return err
	}
	if pending {
		return domain.NewConflictError(domain.CodePendingPaymentsExist,
			fmt.Sprintf("user %d has a pending payment; complete or let it expire first", userID))
	}
	return nil
}

// ValidateAmount compares the provider-reported amount with the stored row
// when one exists, otherwise with a fresh calculation. The comparison is
// exact; both sides are already rounded to cents.
func (v *paymentValidator) ValidateAmount(ctx context.Context, md *domain.SessionMetadata, existing *domain.Payment) error {
	var expected = md.AmountToPay
	if existing != nil {
		expected = existing.AmountToPay
	} else {
		rental, err := v.rentals.GetByID(ctx, md.RentalID)
		if err != nil {
			return err
		}
		car, err := v.cars.GetByID(ctx, rental.CarID)
		if err != nil {
			return err
		}
		expected, err = v.calc.AmountForType(rental, car, md.Type)
		if err != nil {
			return err
		}
	}

	if !expected.Equal(md.AmountToPay) {
		return &domain.AmountMismatchError{Expected: expected, Actual: md.AmountToPay}
	}
	return nil
}
