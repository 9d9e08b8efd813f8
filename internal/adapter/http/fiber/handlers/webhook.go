package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/observability/telemetry"
	"github.com/seu-repo/tochka-pay/internal/ports"
)

// WebhookHandler accepts gateway notifications, translates them through the
// provider and publishes actionable results.
type WebhookHandler struct {
	registry  ports.ProviderRegistry
	publisher ports.EventPublisher
	log       *zap.Logger
}

// NewWebhookHandler creates the handler. publisher may be nil.
func NewWebhookHandler(registry ports.ProviderRegistry, publisher ports.EventPublisher, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry:  registry,
		publisher: publisher,
		log:       log,
	}
}

func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/:provider", h.Handle)
}

func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	id := c.Params("provider")
	provider, err := h.registry.Provider(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	payload := &domain.WebhookPayload{
		RawData: bytes.Clone(c.Body()),
		Headers: make(map[string]string),
	}
	c.Request().Header.VisitAll(func(key, value []byte) {
		payload.Headers[string(key)] = string(value)
	})
	if trimmed := bytes.TrimSpace(payload.RawData); len(trimmed) > 0 && trimmed[0] == '{' {
		var data domain.PaymentData
		if err := json.Unmarshal(trimmed, &data); err == nil {
			payload.Data = data
		}
	}

	result, err := provider.GetWebhookActionAndData(c.UserContext(), payload)
	if err != nil {
		h.log.Error("Webhook processing failed", zap.String("provider", id), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "webhook processing failed")
	}
	telemetry.WebhookActionsTotal.WithLabelValues(id, string(result.Action)).Inc()

	if result.Action != domain.WebhookActionNotSupported {
		h.publish(c, id, result)
	}

	return c.JSON(result)
}

// publish logs failures and never fails the webhook response
func (h *WebhookHandler) publish(c *fiber.Ctx, provider string, result *domain.WebhookActionResult) {
	if h.publisher == nil {
		return
	}

	event := &ports.WebhookEvent{
		Provider:   provider,
		Action:     string(result.Action),
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if result.Data != nil {
		event.SessionID = result.Data.SessionID
		event.Amount = result.Data.Amount.String()
	}

	if err := h.publisher.PublishWebhookEvent(c.UserContext(), event); err != nil {
		h.log.Error("Failed to publish webhook event",
			zap.String("provider", provider),
			zap.String("action", event.Action),
			zap.Error(err),
		)
	}
}
