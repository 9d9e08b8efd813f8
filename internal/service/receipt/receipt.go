package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/seu-repo/tochka-pay/internal/domain"
)

const (
	// MaxNameLength is the longest line name fiscal registers accept
	MaxNameLength = 128

	defaultCustomerName = "Customer somebody"
	defaultShippingName = "Custom shipping"
	ellipsis            = "…"
	defaultScale        = 2
)

// TruncateName shortens names longer than MaxNameLength runes to the first
// MaxNameLength-3 runes followed by an ellipsis.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLength {
		return name
	}
	return string(runes[:MaxNameLength-3]) + ellipsis
}

// ItemName renders "<product> (<variant>)" or just the product title
func ItemName(item domain.CartItem) string {
	if item.VariantTitle != "" {
		return TruncateName(item.ProductTitle + " (" + item.VariantTitle + ")")
	}
	return TruncateName(item.ProductTitle)
}

// ClientName renders "<last> <first>" from the shipping address
func ClientName(cart *domain.Cart) string {
	if cart.ShippingAddress == nil {
		return defaultCustomerName
	}
	name := strings.TrimSpace(cart.ShippingAddress.LastName + " " + cart.ShippingAddress.FirstName)
	if name == "" {
		return defaultCustomerName
	}
	return name
}

func clientPhone(cart *domain.Cart) string {
	if cart.ShippingAddress == nil {
		return ""
	}
	return cart.ShippingAddress.Phone
}

func shippingName(cart *domain.Cart) string {
	if len(cart.ShippingMethods) > 0 && cart.ShippingMethods[0].Name != "" {
		return TruncateName(cart.ShippingMethods[0].Name)
	}
	return defaultShippingName
}

func isService(item domain.CartItem) bool {
	return strings.EqualFold(item.ProductType, "service")
}

// Scale returns the number of minor digits of an ISO 4217 currency code.
// Unknown codes fall back to two digits.
func Scale(currencyCode string) int32 {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Round rounds amount to the standard scale of the currency
func Round(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	return amount.Round(Scale(currencyCode))
}

// Format renders amount with exactly the currency's standard number of digits
func Format(amount decimal.Decimal, currencyCode string) string {
	return amount.StringFixed(Scale(currencyCode))
}
