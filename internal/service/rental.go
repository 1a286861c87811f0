package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type rentalService struct {
	tx        repository.Transactor
	rentals   repository.RentalRepository
	inventory InventoryService
	notifier  Notifier
}

func NewRentalService(
	tx repository.Transactor,
	rentals repository.RentalRepository,
	inventory InventoryService,
	notifier Notifier,
) RentalService {
	return &rentalService{
		tx:        tx,
		rentals:   rentals,
		inventory: inventory,
		notifier:  notifier,
	}
}

// CreateRental books one unit of the car. The inventory decrement and the
// insert commit together.
func (s *rentalService) CreateRental(ctx context.Context, userID, carID int64, rentalDate, returnDate time.Time) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateRental", "userID", userID, "carID", carID)

	rentalDate, returnDate = domain.TruncateDate(rentalDate), domain.TruncateDate(returnDate)
	if returnDate.Before(rentalDate) {
		err := domain.NewValidationError(domain.CodeInvalidArgument, "return date must not be before rental date",
			domain.FieldError{Field: "return_date", Message: "must be on or after rental_date"})
		logger.ExitMethodWithError("rentalService.CreateRental", err)
		return nil, err
	}

	rental := &domain.Rental{
		RentalDate: rentalDate,
		ReturnDate: returnDate,
		UserID:     userID,
		CarID:      carID,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.inventory.Adjust(ctx, carID, 1, domain.InventoryDecrease); err != nil {
			return err
		}
		return s.rentals.Create(ctx, rental)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CreateRental", err, "carID", carID)
		return nil, err
	}

	s.notifier.NotifyRentalCreated(ctx, rental)
	logger.ExitMethod("rentalService.CreateRental", "rentalID", rental.ID)
	return rental, nil
}

// ReturnRental records the actual return date and puts the unit back.
func (s *rentalService) ReturnRental(ctx context.Context, userID, rentalID int64, returned time.Time) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.ReturnRental", "userID", userID, "rentalID", rentalID)

	returned = domain.TruncateDate(returned)
	var rental *domain.Rental
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rental, err = s.rentals.LockForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental.UserID != userID {
			return domain.NewNotOwnerError("rental", rentalID)
		}
		if !rental.IsActive() {
			return domain.NewConflictError(domain.CodeRentalClosed, fmt.Sprintf("rental %d is already returned", rentalID))
		}
		if returned.Before(domain.TruncateDate(rental.RentalDate)) {
			return domain.NewValidationError(domain.CodeInvalidArgument, "actual return date is before the rental date",
				domain.FieldError{Field: "actual_return_date", Message: "must be on or after rental_date"})
		}

		if err := s.rentals.SetActualReturnDate(ctx, rentalID, returned); err != nil {
			return err
		}
		if _, err := s.inventory.Adjust(ctx, rental.CarID, 1, domain.InventoryIncrease); err != nil {
			return err
		}
		rental.ActualReturnDate = &returned
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.ReturnRental", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.ReturnRental", "rentalID", rentalID, "overdueDays", domain.DaysBetween(rental.ReturnDate, returned))
	return rental, nil
}

func (s *rentalService) ListRentals(ctx context.Context, userID int64, active *bool) ([]domain.Rental, error) {
	filter := repository.RentalFilter{
		repository.FilterUserID: strconv.FormatInt(userID, 10),
	}
	if active != nil {
		filter[repository.FilterIsActive] = strconv.FormatBool(*active)
	}
	return s.rentals.Search(ctx, filter)
}

func (s *rentalService) GetRental(ctx context.Context, userID, rentalID int64) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, domain.NewNotOwnerError("rental", rentalID)
	}
	return rental, nil
}

// FindOverdue lists active rentals due today or earlier. It does not touch
// rental state.
func (s *rentalService) FindOverdue(ctx context.Context, today time.Time) ([]domain.OverdueNotice, error) {
	rentals, err := s.rentals.ListOverdue(ctx, today)
	if err != nil {
		return nil, err
	}

	notices := make([]domain.OverdueNotice, 0, len(rentals))
	for i := range rentals {
		r := &rentals[i]
		if !r.IsOverdue(today) {
			continue
		}
		notices = append(notices, domain.OverdueNotice{
			RentalID:    r.ID,
			UserID:      r.UserID,
			CarID:       r.CarID,
			ReturnDate:  r.ReturnDate,
			DaysOverdue: r.DaysOverdue(today),
		})
	}
	return notices, nil
}
