package domain

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Cart is the snapshot of a checkout cart the framework passes in Data["cart"]
type Cart struct {
	ID              string           `json:"id,omitempty"`
	Email           string           `json:"email,omitempty"`
	CurrencyCode    string           `json:"currency_code,omitempty"`
	Items           []CartItem       `json:"items,omitempty"`
	ShippingTotal   decimal.Decimal  `json:"shipping_total"`
	ShippingMethods []ShippingMethod `json:"shipping_methods,omitempty"`
	ShippingAddress *Address         `json:"shipping_address,omitempty"`
}

type CartItem struct {
	ProductTitle string          `json:"product_title,omitempty"`
	VariantTitle string          `json:"variant_title,omitempty"`
	ProductType  string          `json:"product_type,omitempty"`
	Quantity     int             `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}

type ShippingMethod struct {
	Name string `json:"name,omitempty"`
}

type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// CartFromData decodes Data["cart"]. It returns nil, nil when no cart is present.
func CartFromData(data PaymentData) (*Cart, error) {
	raw, ok := data["cart"]
	if !ok || raw == nil {
		return nil, nil
	}
	if c, ok := raw.(*Cart); ok {
		return c, nil
	}

	var cart Cart
	if err := Decode(raw, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &cart, nil
}

// Decode maps loosely typed framework data onto a struct using its json tags
func Decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalHook,
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook accepts the shapes money arrives in: numbers, numeric strings
// and serialized big numbers ({"value": "..."}).
func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return decimalHook(reflect.TypeOf(inner), to, inner)
		}
		return nil, fmt.Errorf("big number without value: %v", v)
	case nil:
		return decimal.Zero, nil
	}
	return data, nil
}
