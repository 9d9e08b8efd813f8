package domain

import (
	"github.com/shopspring/decimal"
)

// SessionStatus is the payment session status understood by the host framework
type SessionStatus string

const (
	SessionStatusPending      SessionStatus = "pending"
	SessionStatusAuthorized   SessionStatus = "authorized"
	SessionStatusCaptured     SessionStatus = "captured"
	SessionStatusCanceled     SessionStatus = "canceled"
	SessionStatusRequiresMore SessionStatus = "requires_more"
	SessionStatusError        SessionStatus = "error"
)

// WebhookAction is the canonical action a gateway notification is translated to
type WebhookAction string

const (
	WebhookActionSuccessful   WebhookAction = "successful"
	WebhookActionAuthorized   WebhookAction = "authorized"
	WebhookActionCanceled     WebhookAction = "canceled"
	WebhookActionNotSupported WebhookAction = "not_supported"
)

// PaymentData is the provider-opaque data blob stored on a payment session
type PaymentData map[string]any

// String returns the value under key when it is a non-empty string
func (d PaymentData) String(key string) string {
	if d == nil {
		return ""
	}
	s, _ := d[key].(string)
	return s
}

// Bool returns the value under key and whether it was a bool
func (d PaymentData) Bool(key string) (bool, bool) {
	if d == nil {
		return false, false
	}
	b, ok := d[key].(bool)
	return b, ok
}

// Int returns the value under key and whether it held a number
func (d PaymentData) Int(key string) (int, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Merge returns a copy of d overlaid with other
func (d PaymentData) Merge(other PaymentData) PaymentData {
	out := make(PaymentData, len(d)+len(other))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Customer is the framework customer attached to a payment context
type Customer struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PaymentContext carries per-call framework context
type PaymentContext struct {
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	Customer       *Customer   `json:"customer,omitempty"`
	AccountHolder  PaymentData `json:"account_holder,omitempty"`
}

// InitiatePaymentInput starts a new payment session
type InitiatePaymentInput struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Data         PaymentData     `json:"data,omitempty"`
	Context      PaymentContext  `json:"context,omitempty"`
}

// InitiatePaymentOutput holds the gateway operation id and its raw data
type InitiatePaymentOutput struct {
	ID   string      `json:"id"`
	Data PaymentData `json:"data,omitempty"`
}

// PaymentInput is shared by authorize, capture, cancel, retrieve, status and delete
type PaymentInput struct {
	Data    PaymentData    `json:"data,omitempty"`
	Context PaymentContext `json:"context,omitempty"`
}

// UpdatePaymentInput changes amount or data of an existing session
type UpdatePaymentInput struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Data         PaymentData     `json:"data,omitempty"`
	Context      PaymentContext  `json:"context,omitempty"`
}

// RefundPaymentInput refunds part or all of a captured payment
type RefundPaymentInput struct {
	Amount  decimal.Decimal `json:"amount"`
	Data    PaymentData     `json:"data,omitempty"`
	Context PaymentContext  `json:"context,omitempty"`
}

// PaymentOutput is the generic lifecycle result. A nil Data means the
// operation is unknown to the gateway.
type PaymentOutput struct {
	Data PaymentData `json:"data,omitempty"`
}

// PaymentStatusOutput pairs a canonical status with the latest gateway data
type PaymentStatusOutput struct {
	Status SessionStatus `json:"status"`
	Data   PaymentData   `json:"data,omitempty"`
}

// WebhookPayload is the generic envelope the framework delivers notifications in
type WebhookPayload struct {
	Data    PaymentData       `json:"data,omitempty"`
	RawData []byte            `json:"-"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebhookActionData correlates a webhook action with a payment session
type WebhookActionData struct {
	SessionID string          `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// WebhookActionResult is what a provider returns for a notification
type WebhookActionResult struct {
	Action WebhookAction      `json:"action"`
	Data   *WebhookActionData `json:"data,omitempty"`
}

// NotSupported is the result for any notification that must be ignored
func NotSupported() *WebhookActionResult {
	return &WebhookActionResult{Action: WebhookActionNotSupported}
}
