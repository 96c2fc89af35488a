package enums

import (
	"fmt"
	"strings"
)

// ProductCategory groups catalog items for browsing.
type ProductCategory string

const (
	ProductCategoryMonitors  ProductCategory = "Monitors"
	ProductCategoryKeyboards ProductCategory = "Keyboards"
	ProductCategoryMice      ProductCategory = "Mice"
	ProductCategoryHeadsets  ProductCategory = "Headsets"
	ProductCategoryWebcams   ProductCategory = "Webcams"
	ProductCategoryPrinters  ProductCategory = "Printers"
)

// CategoryAll is the browse filter that disables category matching.
const CategoryAll = "All"

var validProductCategories = []ProductCategory{
	ProductCategoryMonitors,
	ProductCategoryKeyboards,
	ProductCategoryMice,
	ProductCategoryHeadsets,
	ProductCategoryWebcams,
	ProductCategoryPrinters,
}

// ProductCategories lists the browsable categories in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory, ignoring case.
func ParseProductCategory(value string) (ProductCategory, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validProductCategories {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
