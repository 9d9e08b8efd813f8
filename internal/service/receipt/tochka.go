package receipt

import (
	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/domain"
)

// TochkaReceipt is the receipt part of a Tochka create-payment request
type TochkaReceipt struct {
	Client *tochka.ReceiptClient
	Items  []tochka.ReceiptItem
}

// BuildTochka builds the fiscal receipt for cart. Empty VAT types default to vat0.
func BuildTochka(cart *domain.Cart, taxItem, taxShipping tochka.VatType) *TochkaReceipt {
	if taxItem == "" {
		taxItem = tochka.Vat0
	}
	if taxShipping == "" {
		taxShipping = tochka.Vat0
	}

	client := &tochka.ReceiptClient{
		Name:        ClientName(cart),
		Email:       cart.Email,
		PhoneNumber: clientPhone(cart),
	}

	items := make([]tochka.ReceiptItem, 0, len(cart.Items)+1)
	for _, item := range cart.Items {
		object := tochka.PaymentObjectGoods
		if isService(item) {
			object = tochka.PaymentObjectService
		}
		items = append(items, tochka.ReceiptItem{
			Name:          ItemName(item),
			Amount:        Round(item.Total, cart.CurrencyCode).InexactFloat64(),
			Quantity:      item.Quantity,
			VatType:       taxItem,
			PaymentObject: object,
			Measure:       tochka.MeasurePiece,
		})
	}

	if cart.ShippingTotal.IsPositive() {
		items = append(items, tochka.ReceiptItem{
			Name:          shippingName(cart),
			Amount:        Round(cart.ShippingTotal, cart.CurrencyCode).InexactFloat64(),
			Quantity:      1,
			VatType:       taxShipping,
			PaymentObject: tochka.PaymentObjectService,
			Measure:       tochka.MeasurePiece,
		})
	}

	return &TochkaReceipt{Client: client, Items: items}
}
