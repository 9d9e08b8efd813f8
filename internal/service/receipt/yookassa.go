package receipt

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/yookassa"
	"github.com/seu-repo/tochka-pay/internal/domain"
)

const (
	SubjectCommodity = "commodity"
	SubjectService   = "service"
	ModeFullPayment  = "full_payment"

	// VatNone is YooKassa's "without VAT" code
	VatNone = 1

	refundItemName = "Refund"
)

// BuildYooKassa builds the receipt for cart. YooKassa expects unit prices,
// so line amounts are the item total divided by quantity.
func BuildYooKassa(cart *domain.Cart, taxSystemCode, vatItem, vatShipping int) *yookassa.Receipt {
	if vatItem == 0 {
		vatItem = VatNone
	}
	if vatShipping == 0 {
		vatShipping = VatNone
	}
	code := strings.ToUpper(cart.CurrencyCode)

	r := &yookassa.Receipt{
		Customer: &yookassa.ReceiptCustomer{
			FullName: ClientName(cart),
			Email:    cart.Email,
			Phone:    clientPhone(cart),
		},
		Items:         make([]yookassa.ReceiptItem, 0, len(cart.Items)+1),
		TaxSystemCode: taxSystemCode,
	}

	for _, item := range cart.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		subject := SubjectCommodity
		if isService(item) {
			subject = SubjectService
		}
		unit := item.Total.Div(decimal.NewFromInt(int64(qty)))
		r.Items = append(r.Items, yookassa.ReceiptItem{
			Description:    ItemName(item),
			Quantity:       float64(qty),
			Amount:         yookassa.Amount{Value: Format(unit, code), Currency: code},
			VatCode:        vatItem,
			PaymentSubject: subject,
			PaymentMode:    ModeFullPayment,
		})
	}

	if cart.ShippingTotal.IsPositive() {
		r.Items = append(r.Items, yookassa.ReceiptItem{
			Description:    shippingName(cart),
			Quantity:       1,
			Amount:         yookassa.Amount{Value: Format(cart.ShippingTotal, code), Currency: code},
			VatCode:        vatShipping,
			PaymentSubject: SubjectService,
			PaymentMode:    ModeFullPayment,
		})
	}

	return r
}

// Template packs the receipt fields needed to issue a refund receipt later
// into a single payment metadata value.
func Template(r *yookassa.Receipt) string {
	if r == nil || len(r.Items) == 0 {
		return ""
	}
	v := url.Values{}
	v.Set("t", strconv.Itoa(r.TaxSystemCode))
	v.Set("v", strconv.Itoa(r.Items[0].VatCode))
	v.Set("s", r.Items[0].PaymentSubject)
	if r.Customer != nil {
		if r.Customer.Email != "" {
			v.Set("e", r.Customer.Email)
		}
		if r.Customer.Phone != "" {
			v.Set("p", r.Customer.Phone)
		}
	}
	return v.Encode()
}

// RefundFromTemplate rebuilds a single-line refund receipt for amount
func RefundFromTemplate(amount yookassa.Amount, template string) (*yookassa.Receipt, error) {
	if template == "" {
		return nil, errors.New("empty receipt template")
	}
	v, err := url.ParseQuery(template)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	vat, err := strconv.Atoi(v.Get("v"))
	if err != nil {
		return nil, fmt.Errorf("parse receipt template vat code: %w", err)
	}
	taxSystem, _ := strconv.Atoi(v.Get("t"))
	subject := v.Get("s")
	if subject == "" {
		subject = SubjectCommodity
	}

	r := &yookassa.Receipt{
		Items: []yookassa.ReceiptItem{{
			Description:    refundItemName,
			Quantity:       1,
			Amount:         amount,
			VatCode:        vat,
			PaymentSubject: subject,
			PaymentMode:    ModeFullPayment,
		}},
		TaxSystemCode: taxSystem,
	}
	if email, phone := v.Get("e"), v.Get("p"); email != "" || phone != "" {
		r.Customer = &yookassa.ReceiptCustomer{Email: email, Phone: phone}
	}
	return r, nil
}
