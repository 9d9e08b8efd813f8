package yookassa

import "encoding/json"

// PaymentStatus is the lifecycle status of a YooKassa payment
type PaymentStatus string

const (
	StatusPending           PaymentStatus = "pending"
	StatusWaitingForCapture PaymentStatus = "waiting_for_capture"
	StatusSucceeded         PaymentStatus = "succeeded"
	StatusCanceled          PaymentStatus = "canceled"
)

// Notification events
const (
	EventPaymentSucceeded         = "payment.succeeded"
	EventPaymentWaitingForCapture = "payment.waiting_for_capture"
	EventPaymentCanceled          = "payment.canceled"
	EventRefundSucceeded          = "refund.succeeded"
)

const ConfirmationRedirect = "redirect"

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type CancellationDetails struct {
	Party  string `json:"party"`
	Reason string `json:"reason"`
}

// Payment is YooKassa's payment object
type Payment struct {
	ID                  string               `json:"id"`
	Status              PaymentStatus        `json:"status"`
	Paid                bool                 `json:"paid"`
	Amount              Amount               `json:"amount"`
	IncomeAmount        *Amount              `json:"income_amount,omitempty"`
	RefundedAmount      *Amount              `json:"refunded_amount,omitempty"`
	Description         string               `json:"description,omitempty"`
	Metadata            map[string]string    `json:"metadata,omitempty"`
	Confirmation        *Confirmation        `json:"confirmation,omitempty"`
	PaymentMethod       map[string]any       `json:"payment_method,omitempty"`
	CancellationDetails *CancellationDetails `json:"cancellation_details,omitempty"`
	Refundable          bool                 `json:"refundable"`
	Test                bool                 `json:"test"`
	CreatedAt           string               `json:"created_at,omitempty"`
	CapturedAt          string               `json:"captured_at,omitempty"`
	ExpiresAt           string               `json:"expires_at,omitempty"`
}

// Refund is YooKassa's refund object
type Refund struct {
	ID          string        `json:"id"`
	PaymentID   string        `json:"payment_id"`
	Status      PaymentStatus `json:"status"`
	Amount      Amount        `json:"amount"`
	Description string        `json:"description,omitempty"`
	CreatedAt   string        `json:"created_at,omitempty"`
}

type ReceiptCustomer struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type ReceiptItem struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	Amount         Amount  `json:"amount"`
	VatCode        int     `json:"vat_code"`
	PaymentSubject string  `json:"payment_subject,omitempty"`
	PaymentMode    string  `json:"payment_mode,omitempty"`
	Measure        string  `json:"measure,omitempty"`
}

// Receipt is the 54-FZ receipt attached to payments and refunds
type Receipt struct {
	Customer      *ReceiptCustomer `json:"customer,omitempty"`
	Items         []ReceiptItem    `json:"items"`
	TaxSystemCode int              `json:"tax_system_code,omitempty"`
}

type CreatePaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description,omitempty"`
	Capture      bool              `json:"capture"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Receipt      *Receipt          `json:"receipt,omitempty"`
}

type CapturePaymentRequest struct {
	Amount  *Amount  `json:"amount,omitempty"`
	Receipt *Receipt `json:"receipt,omitempty"`
}

type CreateRefundRequest struct {
	PaymentID   string   `json:"payment_id"`
	Amount      Amount   `json:"amount"`
	Description string   `json:"description,omitempty"`
	Receipt     *Receipt `json:"receipt,omitempty"`
}

// Notification is the body YooKassa posts to the webhook URL
type Notification struct {
	Type   string          `json:"type"`
	Event  string          `json:"event"`
	Object json.RawMessage `json:"object"`
}
