package enums

import "fmt"

// ProductStatus classifies remaining inventory for a product.
type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "Active"
	ProductStatusLowStock   ProductStatus = "Low Stock"
	ProductStatusOutOfStock ProductStatus = "Out of Stock"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusLowStock,
	ProductStatusOutOfStock,
}

// IsValid reports whether the value matches the canonical status set.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
