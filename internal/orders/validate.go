package orders

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxNameLen = 255
	// kolom INTEGER di postgres
	MaxStock = math.MaxInt32
	// maksimal 2 digit desimal: price NUMERIC(12,2), subtotal & total NUMERIC(18,2)
	moneyScale = 2
)

var (
	MaxPrice  = decimal.RequireFromString("9999999999.99")
	MaxAmount = decimal.RequireFromString("9999999999999999.99")
)

func ValidatePlacement(customerName string, items []ItemInput) error {
	name := strings.TrimSpace(customerName)
	if name == "" {
		return Validation("customer_name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return Validation("customer_name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if len(items) == 0 {
		return Validation("items", "must contain at least one item")
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return Validation(fmt.Sprintf("items.%d.product_id", i), "is required")
		}
		if it.Quantity < 1 {
			return Validation(fmt.Sprintf("items.%d.quantity", i), "must be at least 1")
		}
	}
	return nil
}

func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return Validation("name", "is required")
	}
	if utf8.RuneCountInString(p.Name) > maxNameLen {
		return Validation("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if strings.TrimSpace(p.SKU) == "" {
		return Validation("sku", "is required")
	}
	if utf8.RuneCountInString(p.SKU) > maxNameLen {
		return Validation("sku", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	if p.Price.IsNegative() {
		return Validation("price", "must not be negative")
	}
	if !p.Price.Equal(p.Price.Truncate(moneyScale)) {
		return Validation("price", fmt.Sprintf("must have at most %d decimal places", moneyScale))
	}
	if p.Price.GreaterThan(MaxPrice) {
		return Validation("price", "must be at most "+MaxPrice.StringFixed(moneyScale))
	}
	if p.StockQuantity < 0 {
		return Validation("stock_quantity", "must not be negative")
	}
	if p.StockQuantity > MaxStock {
		return Validation("stock_quantity", fmt.Sprintf("must be at most %d", MaxStock))
	}
	return nil
}

// ValidateAmount checks a derived subtotal or order total against the column range.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if amount.GreaterThan(MaxAmount) {
		return Validation(field, "must be at most "+MaxAmount.StringFixed(moneyScale))
	}
	return nil
}
