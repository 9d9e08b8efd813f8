package tochka

import "github.com/shopspring/decimal"

// PaymentStatus is the acquiring operation status reported by Tochka
type PaymentStatus string

const (
	StatusCreated           PaymentStatus = "CREATED"
	StatusApproved          PaymentStatus = "APPROVED"
	StatusOnRefund          PaymentStatus = "ON-REFUND"
	StatusRefunded          PaymentStatus = "REFUNDED"
	StatusRefundedPartially PaymentStatus = "REFUNDED_PARTIALLY"
	StatusExpired           PaymentStatus = "EXPIRED"
	StatusAuthorized        PaymentStatus = "AUTHORIZED"
	StatusWaitFullPayment   PaymentStatus = "WAIT_FULL_PAYMENT"
)

type PaymentMode string

const (
	PaymentModeCard    PaymentMode = "card"
	PaymentModeSBP     PaymentMode = "sbp"
	PaymentModeTinkoff PaymentMode = "tinkoff"
	PaymentModeDolyame PaymentMode = "dolyame"
)

// VatType is the VAT rate of a receipt line
type VatType string

const (
	VatNone VatType = "none"
	Vat0    VatType = "vat0"
	Vat5    VatType = "vat5"
	Vat7    VatType = "vat7"
	Vat10   VatType = "vat10"
	Vat20   VatType = "vat20"
	Vat105  VatType = "vat105"
	Vat107  VatType = "vat107"
	Vat110  VatType = "vat110"
	Vat120  VatType = "vat120"
)

// TaxSystemCode is the store taxation system
type TaxSystemCode string

const (
	TaxSystemOSN              TaxSystemCode = "osn"
	TaxSystemUSNIncome        TaxSystemCode = "usn_income"
	TaxSystemUSNIncomeOutcome TaxSystemCode = "usn_income_outcome"
	TaxSystemESN              TaxSystemCode = "esn"
	TaxSystemPatent           TaxSystemCode = "patent"
)

type PaymentObject string

const (
	PaymentObjectGoods   PaymentObject = "goods"
	PaymentObjectService PaymentObject = "service"
	PaymentObjectWork    PaymentObject = "work"
)

// MeasurePiece is the unit-of-measure for countable goods
const MeasurePiece = "шт."

type CustomerType string

const (
	CustomerTypeBusiness CustomerType = "Business"
	CustomerTypePersonal CustomerType = "Personal"
)

// ReceiptClient is the buyer section of a fiscal receipt
type ReceiptClient struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// ReceiptItem is one fiscal receipt line
type ReceiptItem struct {
	Name          string        `json:"name"`
	Amount        float64       `json:"amount"`
	Quantity      int           `json:"quantity"`
	VatType       VatType       `json:"vatType,omitempty"`
	PaymentObject PaymentObject `json:"paymentObject,omitempty"`
	Measure       string        `json:"measure,omitempty"`
}

// CreatePaymentRequest serves both the plain and the with-receipt create endpoints
type CreatePaymentRequest struct {
	CustomerCode     string        `json:"customerCode"`
	Amount           float64       `json:"amount"`
	Purpose          string        `json:"purpose"`
	RedirectURL      string        `json:"redirectUrl,omitempty"`
	FailRedirectURL  string        `json:"failRedirectUrl,omitempty"`
	PaymentMode      []PaymentMode `json:"paymentMode,omitempty"`
	SaveCard         *bool         `json:"saveCard,omitempty"`
	ConsumerID       string        `json:"consumerId,omitempty"`
	MerchantID       string        `json:"merchantId,omitempty"`
	PreAuthorization *bool         `json:"preAuthorization,omitempty"`
	TTL              *int          `json:"ttl,omitempty"`
	PaymentLinkID    string        `json:"paymentLinkId,omitempty"`

	TaxSystemCode TaxSystemCode  `json:"taxSystemCode,omitempty"`
	Client        *ReceiptClient `json:"Client,omitempty"`
	Items         []ReceiptItem  `json:"Items,omitempty"`
}

// PaymentOperation is Tochka's record of an acquiring payment
type PaymentOperation struct {
	OperationID      string        `json:"operationId"`
	Status           PaymentStatus `json:"status"`
	Amount           float64       `json:"amount"`
	Purpose          string        `json:"purpose,omitempty"`
	CustomerCode     string        `json:"customerCode,omitempty"`
	TaxSystemCode    TaxSystemCode `json:"taxSystemCode,omitempty"`
	PaymentType      string        `json:"paymentType,omitempty"`
	PaymentID        string        `json:"paymentId,omitempty"`
	TransactionID    string        `json:"transactionId,omitempty"`
	CreatedAt        string        `json:"createdAt,omitempty"`
	PaymentMode      []PaymentMode `json:"paymentMode,omitempty"`
	RedirectURL      string        `json:"redirectUrl,omitempty"`
	FailRedirectURL  string        `json:"failRedirectUrl,omitempty"`
	PaymentLink      string        `json:"paymentLink,omitempty"`
	PaymentLinkID    string        `json:"paymentLinkId,omitempty"`
	ConsumerID       string        `json:"consumerId,omitempty"`
	MerchantID       string        `json:"merchantId,omitempty"`
	PreAuthorization bool          `json:"preAuthorization,omitempty"`
	TTL              int           `json:"ttl,omitempty"`
}

// Customer is an entry of the open-banking customers list
type Customer struct {
	CustomerCode string       `json:"customerCode"`
	CustomerType CustomerType `json:"customerType"`
	IsResident   bool         `json:"isResident"`
	TaxCode      string       `json:"taxCode,omitempty"`
	FullName     string       `json:"fullName,omitempty"`
	ShortName    string       `json:"shortName,omitempty"`
}

// WebhookPayload is the decoded body of an acquiring notification JWT
type WebhookPayload struct {
	OperationID  string          `json:"operationId"`
	Status       PaymentStatus   `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentType  string          `json:"paymentType"`
	WebhookType  string          `json:"webhookType"`
	Purpose      string          `json:"purpose,omitempty"`
	CustomerCode string          `json:"customerCode,omitempty"`
}

// WebhookTypeInternetPayment marks acquiring payment notifications
const WebhookTypeInternetPayment = "acquiringInternetPayment"

type envelope[T any] struct {
	Data T `json:"Data"`
}

type operationList struct {
	Operation []PaymentOperation `json:"Operation"`
}

type customerList struct {
	Customer []Customer `json:"Customer"`
}

type refundRequest struct {
	Amount float64 `json:"amount"`
}
