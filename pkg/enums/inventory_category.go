package enums

import "fmt"

// InventoryCategory classifies stock items.
type InventoryCategory string

const (
	InventoryCategorySheetMetal InventoryCategory = "sheet_metal"
	InventoryCategoryGas        InventoryCategory = "gas"
	InventoryCategoryConsumable InventoryCategory = "consumable"
	InventoryCategoryTool       InventoryCategory = "tool"
	InventoryCategoryOther      InventoryCategory = "other"
)

var validInventoryCategories = []InventoryCategory{
	InventoryCategorySheetMetal,
	InventoryCategoryGas,
	InventoryCategoryConsumable,
	InventoryCategoryTool,
	InventoryCategoryOther,
}

// IsValid reports whether the value is a known InventoryCategory.
func (c InventoryCategory) IsValid() bool {
	for _, candidate := range validInventoryCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseInventoryCategory converts raw input into an InventoryCategory.
func ParseInventoryCategory(value string) (InventoryCategory, error) {
	for _, candidate := range validInventoryCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory category %q", value)
}
