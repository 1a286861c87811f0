package domain

import "github.com/shopspring/decimal"

type CarType string

const (
	CarTypeSedan     CarType = "SEDAN"
	CarTypeSUV       CarType = "SUV"
	CarTypeHatchback CarType = "HATCHBACK"
	CarTypeUniversal CarType = "UNIVERSAL"
)

// Car is a rentable model/brand combination. Inventory counts the units
// currently available and is only written by the inventory ledger.
type Car struct {
	ID        int64           `json:"id"`
	Model     string          `json:"model"`
	Brand     string          `json:"brand"`
	Type      CarType         `json:"type"`
	Inventory int             `json:"inventory"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
	IsDeleted bool            `json:"-"`
}

type InventoryOperation string

const (
	InventoryIncrease InventoryOperation = "INCREASE"
	InventoryDecrease InventoryOperation = "DECREASE"
	InventorySet      InventoryOperation = "SET"
)

func ParseInventoryOperation(s string) (InventoryOperation, error) {
	switch op := InventoryOperation(s); op {
	case InventoryIncrease, InventoryDecrease, InventorySet:
		return op, nil
	default:
		return "", NewValidationError(CodeInvalidArgument, "unknown inventory operation: "+s)
	}
}
