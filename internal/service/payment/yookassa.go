package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/yookassa"
	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/service/receipt"
)

const (
	metadataSessionID = "session_id"
	metadataReceipt   = "receipt_tmp"
)

// YooKassaGateway is the part of the YooKassa API the provider uses
type YooKassaGateway interface {
	CreatePayment(ctx context.Context, req *yookassa.CreatePaymentRequest, idempotenceKey string) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
	CapturePayment(ctx context.Context, paymentID string, req *yookassa.CapturePaymentRequest, idempotenceKey string) (*yookassa.Payment, error)
	CancelPayment(ctx context.Context, paymentID, idempotenceKey string) (*yookassa.Payment, error)
	CreateRefund(ctx context.Context, req *yookassa.CreateRefundRequest, idempotenceKey string) (*yookassa.Refund, error)
	GetRefund(ctx context.Context, refundID string) (*yookassa.Refund, error)
}

// YooKassaOptions is the static configuration of the YooKassa provider
type YooKassaOptions struct {
	ShopID    string
	SecretKey string
	BaseURL   string

	// Capture enables one-stage payments
	Capture            bool
	PaymentDescription string
	ReturnURL          string

	UseReceipt         bool
	TaxSystemCode      int
	TaxItemDefault     int
	TaxShippingDefault int
}

// Validate reports the first missing required option
func (o YooKassaOptions) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("required option `%s` is missing in YooKassa provider", name)
	}
	if o.ShopID == "" {
		return missing("shop_id")
	}
	if o.SecretKey == "" {
		return missing("secret_key")
	}
	if o.UseReceipt {
		if o.TaxSystemCode == 0 {
			return fmt.Errorf("%w when use_receipt is enabled", missing("tax_system_code"))
		}
		if o.TaxItemDefault == 0 {
			return fmt.Errorf("%w when use_receipt is enabled", missing("tax_item_default"))
		}
		if o.TaxShippingDefault == 0 {
			return fmt.Errorf("%w when use_receipt is enabled", missing("tax_shipping_default"))
		}
	}
	return nil
}

// YooKassaProvider implements ports.PaymentProvider for YooKassa
type YooKassaProvider struct {
	options YooKassaOptions
	gateway YooKassaGateway
	log     *zap.Logger
}

func NewYooKassaProvider(options YooKassaOptions, gateway YooKassaGateway, log *zap.Logger) (*YooKassaProvider, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	log.Info("YooKassa payment provider created", zap.Bool("capture", options.Capture), zap.Bool("receipt", options.UseReceipt))
	return &YooKassaProvider{options: options, gateway: gateway, log: log}, nil
}

func (p *YooKassaProvider) Identifier() string {
	return ProviderYooKassa
}

// InitiatePayment creates a YooKassa payment with a redirect confirmation
func (p *YooKassaProvider) InitiatePayment(ctx context.Context, input *domain.InitiatePaymentInput) (out *domain.InitiatePaymentOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "initiatePayment")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.initiatePayment input", zap.Any("input", input))

	currency := strings.ToUpper(input.CurrencyCode)
	req := &yookassa.CreatePaymentRequest{
		Amount:      yookassa.Amount{Value: receipt.Format(input.Amount, currency), Currency: currency},
		Description: p.options.PaymentDescription,
		Capture:     p.options.Capture,
		Metadata:    map[string]string{},
	}
	if d := input.Data.String("description"); d != "" {
		req.Description = d
	}
	returnURL := p.options.ReturnURL
	if u := input.Data.String("return_url"); u != "" {
		returnURL = u
	}
	if returnURL != "" {
		req.Confirmation = &yookassa.Confirmation{Type: yookassa.ConfirmationRedirect, ReturnURL: returnURL}
	}
	if sessionID := input.Data.String("session_id"); sessionID != "" {
		req.Metadata[metadataSessionID] = sessionID
	}

	if p.options.UseReceipt {
		cart, err := domain.CartFromData(input.Data)
		if err != nil {
			return nil, buildError("initiatePayment", err)
		}
		if cart == nil {
			return nil, buildError("initiatePayment", ErrNoCart)
		}
		if cart.CurrencyCode == "" {
			cart.CurrencyCode = currency
		}
		req.Receipt = receipt.BuildYooKassa(cart, p.options.TaxSystemCode, p.options.TaxItemDefault, p.options.TaxShippingDefault)
		if tmpl := receipt.Template(req.Receipt); tmpl != "" {
			req.Metadata[metadataReceipt] = tmpl
		}
	}

	payment, err := p.gateway.CreatePayment(ctx, req, input.Context.IdempotencyKey)
	if err != nil {
		p.log.Error("Can not initiate payment", zap.String("provider", ProviderYooKassa), zap.Error(err))
		return nil, buildError("initiatePayment", err)
	}
	data, err := toData(payment)
	if err != nil {
		return nil, buildError("initiatePayment", err)
	}

	out = &domain.InitiatePaymentOutput{ID: payment.ID, Data: data}
	p.log.Debug("YooKassaProvider.initiatePayment output", zap.Any("output", out))
	return out, nil
}

func (p *YooKassaProvider) GetPaymentStatus(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentStatusOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "getPaymentStatus")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.getPaymentStatus input", zap.Any("input", input))

	id := input.Data.String("id")
	if id == "" {
		return nil, buildError("getPaymentStatus", ErrMissingPaymentID)
	}

	payment, err := p.gateway.GetPayment(ctx, id)
	if err != nil {
		if yookassa.IsNotFound(err) {
			err = fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
		}
		return nil, buildError("getPaymentStatus", err)
	}
	data, err := toData(payment)
	if err != nil {
		return nil, buildError("getPaymentStatus", err)
	}

	out = &domain.PaymentStatusOutput{Status: YooKassaSessionStatus(payment.Status), Data: data}
	p.log.Debug("YooKassaProvider.getPaymentStatus output", zap.Any("output", out))
	return out, nil
}

func (p *YooKassaProvider) AuthorizePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentStatusOutput, error) {
	return p.GetPaymentStatus(ctx, input)
}

// CapturePayment captures the full payment amount unless it already succeeded
func (p *YooKassaProvider) CapturePayment(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "capturePayment")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.capturePayment input", zap.Any("input", input))

	var payment yookassa.Payment
	if err := domain.Decode(input.Data, &payment); err != nil {
		return nil, buildError("capturePayment", err)
	}
	if payment.ID == "" {
		return nil, buildError("capturePayment", ErrMissingPaymentID)
	}
	if payment.Status == yookassa.StatusSucceeded {
		return &domain.PaymentOutput{Data: input.Data}, nil
	}

	req := &yookassa.CapturePaymentRequest{}
	if payment.Amount.Value != "" {
		req.Amount = &payment.Amount
	}
	captured, err := p.gateway.CapturePayment(ctx, payment.ID, req, input.Context.IdempotencyKey)
	if err != nil {
		p.log.Error("Can not capture payment", zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, buildError("capturePayment", err)
	}
	data, err := toData(captured)
	if err != nil {
		return nil, buildError("capturePayment", err)
	}

	out = &domain.PaymentOutput{Data: data}
	p.log.Debug("YooKassaProvider.capturePayment output", zap.Any("output", out))
	return out, nil
}

func (p *YooKassaProvider) CancelPayment(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "cancelPayment")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.cancelPayment input", zap.Any("input", input))

	id := input.Data.String("id")
	if id == "" {
		return nil, buildError("cancelPayment", ErrMissingPaymentID)
	}

	canceled, err := p.gateway.CancelPayment(ctx, id, input.Context.IdempotencyKey)
	if err != nil {
		p.log.Error("Can not cancel payment", zap.String("payment_id", id), zap.Error(err))
		return nil, buildError("cancelPayment", err)
	}
	data, err := toData(canceled)
	if err != nil {
		return nil, buildError("cancelPayment", err)
	}

	out = &domain.PaymentOutput{Data: data}
	p.log.Debug("YooKassaProvider.cancelPayment output", zap.Any("output", out))
	return out, nil
}

// RetrievePayment returns the payment, or an empty output when YooKassa does not know it
func (p *YooKassaProvider) RetrievePayment(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "retrievePayment")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.retrievePayment input", zap.Any("input", input))

	id := input.Data.String("id")
	if id == "" {
		return nil, buildError("retrievePayment", ErrMissingPaymentID)
	}

	payment, err := p.gateway.GetPayment(ctx, id)
	if yookassa.IsNotFound(err) {
		p.log.Warn("Payment not found", zap.String("payment_id", id))
		return &domain.PaymentOutput{}, nil
	}
	if err != nil {
		return nil, buildError("retrievePayment", err)
	}
	data, err := toData(payment)
	if err != nil {
		return nil, buildError("retrievePayment", err)
	}

	out = &domain.PaymentOutput{Data: data}
	p.log.Debug("YooKassaProvider.retrievePayment output", zap.Any("output", out))
	return out, nil
}

// RefundPayment refunds input.Amount. Partial refunds carry a receipt rebuilt
// from the template stored in the payment metadata.
func (p *YooKassaProvider) RefundPayment(ctx context.Context, input *domain.RefundPaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "refundPayment")
	defer func() { done(err) }()

	p.log.Debug("YooKassaProvider.refundPayment input", zap.Any("input", input))

	var payment yookassa.Payment
	if err := domain.Decode(input.Data, &payment); err != nil {
		return nil, buildError("refundPayment", err)
	}
	if payment.ID == "" {
		return nil, buildError("refundPayment", ErrMissingPaymentID)
	}

	amount := yookassa.Amount{
		Value:    receipt.Format(input.Amount, payment.Amount.Currency),
		Currency: payment.Amount.Currency,
	}
	req := &yookassa.CreateRefundRequest{PaymentID: payment.ID, Amount: amount}
	if p.options.UseReceipt && amount.Value != payment.Amount.Value {
		r, err := receipt.RefundFromTemplate(amount, payment.Metadata[metadataReceipt])
		if err != nil {
			p.log.Warn("Refund receipt not attached", zap.String("payment_id", payment.ID), zap.Error(err))
		} else {
			req.Receipt = r
		}
	}

	if _, err := p.gateway.CreateRefund(ctx, req, input.Context.IdempotencyKey); err != nil {
		p.log.Error("Can not refund payment", zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, buildError("refundPayment", err)
	}

	out, err = p.RetrievePayment(ctx, &domain.PaymentInput{Data: input.Data, Context: input.Context})
	if err != nil {
		return nil, err
	}
	p.log.Debug("YooKassaProvider.refundPayment output", zap.Any("output", out))
	return out, nil
}

// DeletePayment echoes the session data; YooKassa payments cannot be deleted
func (p *YooKassaProvider) DeletePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error) {
	p.log.Debug("YooKassaProvider.deletePayment input", zap.Any("input", input))
	return &domain.PaymentOutput{Data: input.Data}, nil
}

// UpdatePayment echoes the session data; YooKassa payments cannot be updated
func (p *YooKassaProvider) UpdatePayment(ctx context.Context, input *domain.UpdatePaymentInput) (*domain.PaymentOutput, error) {
	p.log.Debug("YooKassaProvider.updatePayment input", zap.Any("input", input))
	return &domain.PaymentOutput{Data: input.Data}, nil
}

type notificationObject struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   yookassa.Amount   `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// GetWebhookActionAndData decodes the notification and accepts it only when
// a fresh fetch of its object reports the notified status.
func (p *YooKassaProvider) GetWebhookActionAndData(ctx context.Context, payload *domain.WebhookPayload) (out *domain.WebhookActionResult, err error) {
	ctx, done := track(ctx, ProviderYooKassa, "getWebhookActionAndData")
	defer func() { done(err) }()

	var n yookassa.Notification
	if err := json.Unmarshal(webhookBody(payload), &n); err != nil {
		p.log.Warn("Invalid YooKassa webhook", zap.Error(err))
		return domain.NotSupported(), nil
	}
	var obj notificationObject
	if err := json.Unmarshal(n.Object, &obj); err != nil || obj.ID == "" {
		p.log.Warn("YooKassa webhook without object", zap.String("event", n.Event))
		return domain.NotSupported(), nil
	}
	p.log.Debug("YooKassaProvider.getWebhookActionAndData payload", zap.String("event", n.Event), zap.String("object_id", obj.ID))

	if !p.webhookMatchesGateway(ctx, n.Event, obj.ID) {
		return domain.NotSupported(), nil
	}

	action := YooKassaWebhookAction(n.Event)
	if action == domain.WebhookActionNotSupported {
		return domain.NotSupported(), nil
	}

	amount, err := decimal.NewFromString(obj.Amount.Value)
	if err != nil {
		amount = decimal.Zero
	}
	out = &domain.WebhookActionResult{
		Action: action,
		Data:   &domain.WebhookActionData{SessionID: obj.Metadata[metadataSessionID], Amount: amount},
	}
	p.log.Debug("YooKassaProvider.getWebhookActionAndData result", zap.Any("result", out))
	return out, nil
}

func (p *YooKassaProvider) webhookMatchesGateway(ctx context.Context, event, objectID string) bool {
	object, status, ok := strings.Cut(event, ".")
	if !ok {
		return false
	}

	var current yookassa.PaymentStatus
	var err error
	switch object {
	case "payment":
		var payment *yookassa.Payment
		if payment, err = p.gateway.GetPayment(ctx, objectID); err == nil {
			current = payment.Status
		}
	case "refund":
		var refund *yookassa.Refund
		if refund, err = p.gateway.GetRefund(ctx, objectID); err == nil {
			current = refund.Status
		}
	default:
		err = errors.New("unsupported notification object " + object)
	}
	if err != nil {
		p.log.Warn("Can not validate YooKassa webhook", zap.String("event", event), zap.Error(err))
		return false
	}
	if string(current) != status {
		p.log.Warn("Webhook status does not match original object",
			zap.String("event", event),
			zap.String("current_status", string(current)),
		)
		return false
	}
	return true
}

// YooKassaSessionStatus maps a YooKassa payment status to the session status
func YooKassaSessionStatus(status yookassa.PaymentStatus) domain.SessionStatus {
	switch status {
	case yookassa.StatusPending:
		return domain.SessionStatusPending
	case yookassa.StatusWaitingForCapture:
		return domain.SessionStatusAuthorized
	case yookassa.StatusSucceeded:
		return domain.SessionStatusCaptured
	case yookassa.StatusCanceled:
		return domain.SessionStatusCanceled
	default:
		return domain.SessionStatusPending
	}
}

// YooKassaWebhookAction maps a notification event to a webhook action
func YooKassaWebhookAction(event string) domain.WebhookAction {
	switch event {
	case yookassa.EventPaymentSucceeded:
		return domain.WebhookActionSuccessful
	case yookassa.EventPaymentWaitingForCapture:
		return domain.WebhookActionAuthorized
	case yookassa.EventPaymentCanceled:
		return domain.WebhookActionCanceled
	default:
		return domain.WebhookActionNotSupported
	}
}
