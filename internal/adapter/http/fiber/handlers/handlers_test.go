package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/ports"
	"github.com/seu-repo/tochka-pay/internal/service/payment"
)

type stubProvider struct {
	err         error
	lastInitKey string
	lastPayload *domain.WebhookPayload
	webhook     *domain.WebhookActionResult
	retrieved   domain.PaymentData
}

func (p *stubProvider) Identifier() string { return "stub" }

func (p *stubProvider) InitiatePayment(ctx context.Context, in *domain.InitiatePaymentInput) (*domain.InitiatePaymentOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.lastInitKey = in.Context.IdempotencyKey
	return &domain.InitiatePaymentOutput{ID: "op-1", Data: domain.PaymentData{"amount": in.Amount.String()}}, nil
}

func (p *stubProvider) AuthorizePayment(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentStatusOutput, error) {
	return &domain.PaymentStatusOutput{Status: domain.SessionStatusAuthorized, Data: in.Data}, p.err
}

func (p *stubProvider) CapturePayment(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.PaymentOutput{Data: in.Data}, nil
}

func (p *stubProvider) CancelPayment(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentOutput, error) {
	return &domain.PaymentOutput{Data: in.Data}, nil
}

func (p *stubProvider) RetrievePayment(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentOutput, error) {
	return &domain.PaymentOutput{Data: p.retrieved}, nil
}

func (p *stubProvider) RefundPayment(ctx context.Context, in *domain.RefundPaymentInput) (*domain.PaymentOutput, error) {
	return &domain.PaymentOutput{Data: domain.PaymentData{"refunded": in.Amount.String()}}, nil
}

func (p *stubProvider) DeletePayment(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentOutput, error) {
	return &domain.PaymentOutput{Data: in.Data}, nil
}

func (p *stubProvider) UpdatePayment(ctx context.Context, in *domain.UpdatePaymentInput) (*domain.PaymentOutput, error) {
	return &domain.PaymentOutput{Data: in.Data}, nil
}

func (p *stubProvider) GetPaymentStatus(ctx context.Context, in *domain.PaymentInput) (*domain.PaymentStatusOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.PaymentStatusOutput{Status: domain.SessionStatusCaptured, Data: in.Data}, nil
}

func (p *stubProvider) GetWebhookActionAndData(ctx context.Context, payload *domain.WebhookPayload) (*domain.WebhookActionResult, error) {
	p.lastPayload = payload
	return p.webhook, nil
}

type stubRegistry struct {
	provider *stubProvider
}

func (r stubRegistry) Provider(id string) (ports.PaymentProvider, error) {
	if id != "stub" {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnknownProvider, id)
	}
	return r.provider, nil
}

func (r stubRegistry) Identifiers() []string { return []string{"stub"} }

type stubPublisher struct {
	events []*ports.WebhookEvent
	err    error
}

func (p *stubPublisher) PublishWebhookEvent(ctx context.Context, e *ports.WebhookEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

func newTestApp(provider *stubProvider, publisher ports.EventPublisher) *fiber.App {
	app := fiber.New()
	reg := stubRegistry{provider: provider}
	NewPaymentHandler(reg, zap.NewNop()).RegisterRoutes(app.Group("/api/v1"))
	NewWebhookHandler(reg, publisher, zap.NewNop()).RegisterRoutes(app)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestPaymentHandler_Initiate(t *testing.T) {
	p := &stubProvider{}
	app := newTestApp(p, nil)

	status, body := post(t, app, "/api/v1/payments/stub/initiate",
		`{"amount":"600","currency_code":"rub"}`, map[string]string{IdempotencyKeyHeader: "idem-1"})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "op-1", body["id"])
	assert.Equal(t, "idem-1", p.lastInitKey)
}

func TestPaymentHandler_Operations(t *testing.T) {
	app := newTestApp(&stubProvider{retrieved: domain.PaymentData{"id": "op-1"}}, nil)

	status, body := post(t, app, "/api/v1/payments/stub/authorize", `{"data":{"id":"op-1"}}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "authorized", body["status"])

	status, body = post(t, app, "/api/v1/payments/stub/status", `{"data":{"id":"op-1"}}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "captured", body["status"])

	for _, op := range []string{"capture", "cancel", "delete", "update", "retrieve"} {
		status, _ = post(t, app, "/api/v1/payments/stub/"+op, `{"data":{"id":"op-1"}}`, nil)
		assert.Equal(t, fiber.StatusOK, status, op)
	}

	status, body = post(t, app, "/api/v1/payments/stub/refund", `{"amount":100,"data":{"id":"op-1"}}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "100", body["data"].(map[string]any)["refunded"])

	status, _ = post(t, app, "/api/v1/payments/stub/refund", `{"amount":0}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPaymentHandler_RetrieveUnknown(t *testing.T) {
	app := newTestApp(&stubProvider{}, nil)

	status, _ := post(t, app, "/api/v1/payments/stub/retrieve", `{"data":{"id":"missing"}}`, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPaymentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing id", &payment.ProviderError{Op: "capturePayment", Err: payment.ErrMissingPaymentID}, fiber.StatusBadRequest},
		{"no cart", &payment.ProviderError{Op: "initiatePayment", Err: payment.ErrNoCart}, fiber.StatusBadRequest},
		{"not found", &payment.ProviderError{Op: "getPaymentStatus", Err: payment.ErrPaymentNotFound}, fiber.StatusNotFound},
		{"breaker open", &payment.ProviderError{Op: "getPaymentStatus", Err: gobreaker.ErrOpenState}, fiber.StatusServiceUnavailable},
		{"gateway", &payment.ProviderError{Op: "getPaymentStatus", StatusCode: 500, Code: "500", Description: "Internal"}, fiber.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubProvider{err: tt.err}, nil)
			status, body := post(t, app, "/api/v1/payments/stub/status", `{"data":{"id":"op-1"}}`, nil)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}

	app := newTestApp(&stubProvider{}, nil)
	status, _ := post(t, app, "/api/v1/payments/paypal/status", `{}`, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = post(t, app, "/api/v1/payments/stub/capture", `{not json`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestWebhookHandler_PublishesActions(t *testing.T) {
	p := &stubProvider{webhook: &domain.WebhookActionResult{
		Action: domain.WebhookActionSuccessful,
		Data:   &domain.WebhookActionData{SessionID: "payses_1", Amount: decimal.NewFromInt(600)},
	}}
	pub := &stubPublisher{}
	app := newTestApp(p, pub)

	req := httptest.NewRequest("POST", "/webhooks/stub", strings.NewReader("eyJhbGciOi.payload.sig"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "eyJhbGciOi.payload.sig", string(p.lastPayload.RawData))
	assert.Nil(t, p.lastPayload.Data)
	assert.Equal(t, "text/plain", p.lastPayload.Headers["Content-Type"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, "stub", pub.events[0].Provider)
	assert.Equal(t, "successful", pub.events[0].Action)
	assert.Equal(t, "payses_1", pub.events[0].SessionID)
	assert.Equal(t, "600", pub.events[0].Amount)
}

func TestWebhookHandler_JSONBodyAndNotSupported(t *testing.T) {
	p := &stubProvider{webhook: domain.NotSupported()}
	pub := &stubPublisher{}
	app := newTestApp(p, pub)

	status, body := post(t, app, "/webhooks/stub", `{"type":"notification","event":"payment.succeeded"}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "not_supported", body["action"])
	assert.Equal(t, "payment.succeeded", p.lastPayload.Data.String("event"))
	assert.Empty(t, pub.events)
}

func TestWebhookHandler_PublishFailureStillAcknowledges(t *testing.T) {
	p := &stubProvider{webhook: &domain.WebhookActionResult{Action: domain.WebhookActionCanceled}}
	pub := &stubPublisher{err: fmt.Errorf("broker down")}
	app := newTestApp(p, pub)

	status, _ := post(t, app, "/webhooks/stub", `{}`, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, pub.events, 1)
}
