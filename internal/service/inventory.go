package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type inventoryService struct {
	tx   repository.Transactor
	cars repository.CarRepository
}

func NewInventoryService(tx repository.Transactor, cars repository.CarRepository) InventoryService {
	return &inventoryService{tx: tx, cars: cars}
}

// Adjust applies op to the car's inventory under a row lock. For SET,
// quantity is the new absolute value. A DECREASE below zero is rejected
// whole; nothing is written.
func (s *inventoryService) Adjust(ctx context.Context, carID int64, quantity int, op domain.InventoryOperation) (*domain.Car, error) {
	logger.EnterMethod("inventoryService.Adjust", "carID", carID, "quantity", quantity, "operation", op)

	if quantity <= 0 {
		err := domain.NewValidationError(domain.CodeInvalidArgument, "quantity must be positive",
			domain.FieldError{Field: "quantity", Message: "must be greater than 0"})
		logger.ExitMethodWithError("inventoryService.Adjust", err, "carID", carID)
		return nil, err
	}

	var updated *domain.Car
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		car, err := s.cars.LockForUpdate(ctx, carID)
		if err != nil {
			return err
		}

		next, err := applyInventoryOperation(car.Inventory, quantity, op)
		if err != nil {
			return err
		}
		if err := s.cars.UpdateInventory(ctx, carID, next); err != nil {
			return err
		}

		car.Inventory = next
		updated = car
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("inventoryService.Adjust", err, "carID", carID)
		return nil, err
	}

	logger.ExitMethod("inventoryService.Adjust", "carID", carID, "inventory", updated.Inventory)
	return updated, nil
}

func applyInventoryOperation(current, quantity int, op domain.InventoryOperation) (int, error) {
	switch op {
	case domain.InventoryIncrease:
		return current + quantity, nil
	case domain.InventoryDecrease:
		if current < quantity {
			return 0, domain.NewConflictError(domain.CodeInsufficientInventory,
				fmt.Sprintf("cannot take %d units, only %d available", quantity, current))
		}
		return current - quantity, nil
	case domain.InventorySet:
		return quantity, nil
	default:
		return 0, domain.NewValidationError(domain.CodeInvalidArgument, fmt.Sprintf("unknown inventory operation %q", op),
			domain.FieldError{Field: "operation", Message: "must be INCREASE, DECREASE or SET"})
	}
}
