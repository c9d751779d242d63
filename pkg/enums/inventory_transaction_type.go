package enums

import "fmt"

// InventoryTransactionType classifies a stock movement in the ledger.
type InventoryTransactionType string

const (
	InventoryTransactionTypePurchase   InventoryTransactionType = "purchase"
	InventoryTransactionTypeUsage      InventoryTransactionType = "usage"
	InventoryTransactionTypeAdjustment InventoryTransactionType = "adjustment"
	InventoryTransactionTypeReturn     InventoryTransactionType = "return"
	InventoryTransactionTypeWaste      InventoryTransactionType = "waste"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	InventoryTransactionTypePurchase,
	InventoryTransactionTypeUsage,
	InventoryTransactionTypeAdjustment,
	InventoryTransactionTypeReturn,
	InventoryTransactionTypeWaste,
}

// IsValid reports whether the value is a known InventoryTransactionType.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into an InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
