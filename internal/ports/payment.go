package ports

import (
	"context"

	"github.com/seu-repo/tochka-pay/internal/domain"
)

// PaymentProvider is the payment-session lifecycle every gateway adapter implements
type PaymentProvider interface {
	// Identifier is the provider id the host framework registers sessions under
	Identifier() string

	InitiatePayment(ctx context.Context, input *domain.InitiatePaymentInput) (*domain.InitiatePaymentOutput, error)
	AuthorizePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentStatusOutput, error)
	CapturePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error)
	CancelPayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error)
	RetrievePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error)
	RefundPayment(ctx context.Context, input *domain.RefundPaymentInput) (*domain.PaymentOutput, error)
	DeletePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error)
	UpdatePayment(ctx context.Context, input *domain.UpdatePaymentInput) (*domain.PaymentOutput, error)
	GetPaymentStatus(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentStatusOutput, error)

	// GetWebhookActionAndData translates a gateway notification. Invalid or
	// unverifiable notifications yield the not_supported action, never an error.
	GetWebhookActionAndData(ctx context.Context, payload *domain.WebhookPayload) (*domain.WebhookActionResult, error)
}

// WebhookEvent is published for every actionable webhook
type WebhookEvent struct {
	Provider   string `json:"provider"`
	Action     string `json:"action"`
	SessionID  string `json:"session_id,omitempty"`
	Amount     string `json:"amount,omitempty"`
	ReceivedAt string `json:"received_at"`
}

// EventPublisher delivers webhook events to asynchronous consumers
type EventPublisher interface {
	PublishWebhookEvent(ctx context.Context, event *WebhookEvent) error
	Close() error
}

// ProviderRegistry resolves the payment providers enabled for this instance
type ProviderRegistry interface {
	Provider(id string) (PaymentProvider, error)
	Identifiers() []string
}
