package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/tochka-pay/internal/ports"
	"github.com/seu-repo/tochka-pay/internal/service/payment"
)

// IdempotencyKeyHeader lets callers pin the gateway idempotence key
const IdempotencyKeyHeader = "Idempotency-Key"

type PaymentHandler struct {
	registry ports.ProviderRegistry
	log      *zap.Logger
}

func NewPaymentHandler(registry ports.ProviderRegistry, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		registry: registry,
		log:      log,
	}
}

// RegisterRoutes mounts the lifecycle operations under router
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/providers", h.ListProviders)

	p := router.Group("/payments/:provider")
	p.Post("/initiate", h.Initiate)
	p.Post("/authorize", h.Authorize)
	p.Post("/capture", h.Capture)
	p.Post("/cancel", h.Cancel)
	p.Post("/retrieve", h.Retrieve)
	p.Post("/refund", h.Refund)
	p.Post("/delete", h.Delete)
	p.Post("/update", h.Update)
	p.Post("/status", h.Status)
}

func (h *PaymentHandler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": h.registry.Identifiers()})
}

func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	provider, err := h.registry.Provider(c.Params("provider"))
	if err != nil {
		return h.respondError(c, err)
	}

	var input domain.InitiatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	withIdempotencyKey(c, &input.Context)

	out, err := provider.InitiatePayment(c.UserContext(), &input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *PaymentHandler) Authorize(c *fiber.Ctx) error {
	return h.handleStatus(c, ports.PaymentProvider.AuthorizePayment)
}

func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	return h.handleStatus(c, ports.PaymentProvider.GetPaymentStatus)
}

func (h *PaymentHandler) Capture(c *fiber.Ctx) error {
	return h.handle(c, ports.PaymentProvider.CapturePayment)
}

func (h *PaymentHandler) Cancel(c *fiber.Ctx) error {
	return h.handle(c, ports.PaymentProvider.CancelPayment)
}

func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	return h.handle(c, ports.PaymentProvider.DeletePayment)
}

func (h *PaymentHandler) Retrieve(c *fiber.Ctx) error {
	provider, err := h.registry.Provider(c.Params("provider"))
	if err != nil {
		return h.respondError(c, err)
	}

	var input domain.PaymentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	out, err := provider.RetrievePayment(c.UserContext(), &input)
	if err != nil {
		return h.respondError(c, err)
	}
	if out.Data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	}
	return c.JSON(out)
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	provider, err := h.registry.Provider(c.Params("provider"))
	if err != nil {
		return h.respondError(c, err)
	}

	var input domain.RefundPaymentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if !input.Amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Refund amount must be positive"})
	}
	withIdempotencyKey(c, &input.Context)

	out, err := provider.RefundPayment(c.UserContext(), &input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(out)
}

func (h *PaymentHandler) Update(c *fiber.Ctx) error {
	provider, err := h.registry.Provider(c.Params("provider"))
	if err != nil {
		return h.respondError(c, err)
	}

	var input domain.UpdatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	out, err := provider.UpdatePayment(c.UserContext(), &input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(out)
}

type paymentOp func(ports.PaymentProvider, context.Context, *domain.PaymentInput) (*domain.PaymentOutput, error)

type statusOp func(ports.PaymentProvider, context.Context, *domain.PaymentInput) (*domain.PaymentStatusOutput, error)

func (h *PaymentHandler) handle(c *fiber.Ctx, op paymentOp) error {
	provider, input, err := h.parse(c)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := op(provider, c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(out)
}

func (h *PaymentHandler) handleStatus(c *fiber.Ctx, op statusOp) error {
	provider, input, err := h.parse(c)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := op(provider, c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(out)
}

// parse resolves the provider and decodes a PaymentInput body
func (h *PaymentHandler) parse(c *fiber.Ctx) (ports.PaymentProvider, *domain.PaymentInput, error) {
	provider, err := h.registry.Provider(c.Params("provider"))
	if err != nil {
		return nil, nil, err
	}

	var input domain.PaymentInput
	if err := c.BodyParser(&input); err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid body")
	}
	withIdempotencyKey(c, &input.Context)
	return provider, &input, nil
}

func withIdempotencyKey(c *fiber.Ctx, pc *domain.PaymentContext) {
	if pc.IdempotencyKey == "" {
		pc.IdempotencyKey = c.Get(IdempotencyKeyHeader)
	}
}

func (h *PaymentHandler) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadGateway
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, payment.ErrUnknownProvider), errors.Is(err, payment.ErrPaymentNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, payment.ErrMissingPaymentID), errors.Is(err, payment.ErrNoCart):
		status = fiber.StatusBadRequest
	case circuitbreaker.IsCircuitOpen(err):
		status = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{"error": err.Error()}
	var pe *payment.ProviderError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		body["gateway_status"] = pe.StatusCode
		body["gateway_code"] = pe.Code
	}

	if status >= fiber.StatusInternalServerError {
		h.log.Error("Payment operation failed",
			zap.String("provider", c.Params("provider")),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}
