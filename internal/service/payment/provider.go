package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/observability/telemetry"
)

// Provider identifiers
const (
	ProviderTochka    = "tochka"
	ProviderTochkaSBP = "tochka-sbp"
	ProviderYooKassa  = "yookassa"
)

// track opens a span for op and returns the func recording its outcome
func track(ctx context.Context, provider, op string) (context.Context, func(error)) {
	ctx, span := telemetry.StartSpan(ctx, provider, op)
	return ctx, func(err error) {
		telemetry.EndSpan(span, err)
		telemetry.ObserveOperation(provider, op, err)
	}
}

// toData converts a gateway object to the opaque session data blob
func toData(v any) (domain.PaymentData, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data domain.PaymentData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// operationID reads the gateway id stored under "id" or "operationId"
func operationID(data domain.PaymentData) string {
	if id := data.String("id"); id != "" {
		return id
	}
	return data.String("operationId")
}

// webhookBody returns the raw notification body, falling back to the
// decoded envelope when the framework did not keep the raw bytes.
func webhookBody(payload *domain.WebhookPayload) []byte {
	if payload == nil {
		return nil
	}
	if len(payload.RawData) > 0 {
		return payload.RawData
	}
	if len(payload.Data) == 0 {
		return nil
	}
	raw, err := json.Marshal(payload.Data)
	if err != nil {
		return nil
	}
	return raw
}

// webhookToken extracts a compact JWS from the notification. A JSON
// envelope {"data": "<jws>"} wins over the raw body.
func webhookToken(payload *domain.WebhookPayload) string {
	if payload == nil {
		return ""
	}
	token := strings.TrimSpace(payload.Data.String("data"))
	if token == "" {
		token = strings.TrimSpace(string(payload.RawData))
	}
	return strings.Trim(token, "\"")
}
