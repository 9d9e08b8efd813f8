package payment

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/domain"
	"github.com/seu-repo/tochka-pay/internal/service/receipt"
)

const (
	defaultPurpose = "Payment"
	// Tochka rejects longer paymentLinkId values
	maxPaymentLinkIDLength = 46
)

// TochkaGateway is the part of the Tochka API the provider uses
type TochkaGateway interface {
	CreatePayment(ctx context.Context, req *tochka.CreatePaymentRequest) (*tochka.PaymentOperation, error)
	CreatePaymentWithReceipt(ctx context.Context, req *tochka.CreatePaymentRequest) (*tochka.PaymentOperation, error)
	GetPaymentOperation(ctx context.Context, operationID string) ([]tochka.PaymentOperation, error)
	CapturePayment(ctx context.Context, operationID string) (map[string]any, error)
	RefundPayment(ctx context.Context, operationID string, amount float64) (map[string]any, error)
	ListCustomers(ctx context.Context) ([]tochka.Customer, error)
}

// TochkaOptions is the static configuration of a Tochka provider
type TochkaOptions struct {
	JWTToken             string
	ClientID             string
	WebhookPublicKeyJSON string
	APIVersion           string
	DeveloperMode        bool
	BaseURL              string

	PreAuthorization *bool
	PaymentPurpose   string

	WithReceipt        bool
	TaxSystemCode      tochka.TaxSystemCode
	TaxItemDefault     tochka.VatType
	TaxShippingDefault tochka.VatType
}

// Validate reports the first missing required option
func (o TochkaOptions) Validate() error {
	missing := func(name string) error {
		return fmt.Errorf("required option `%s` is missing in Tochka provider", name)
	}
	if o.JWTToken == "" {
		return missing("jwt_token")
	}
	if o.ClientID == "" {
		return missing("client_id")
	}
	if o.WebhookPublicKeyJSON == "" {
		return missing("webhook_public_key_json")
	}
	if o.WithReceipt {
		if o.TaxSystemCode == "" {
			return fmt.Errorf("%w when with_receipt is enabled", missing("tax_system_code"))
		}
		if o.TaxItemDefault == "" {
			return fmt.Errorf("%w when with_receipt is enabled", missing("tax_item_default"))
		}
		if o.TaxShippingDefault == "" {
			return fmt.Errorf("%w when with_receipt is enabled", missing("tax_shipping_default"))
		}
	}
	return nil
}

// TochkaPaymentDefaults are the create-payment defaults of one provider variant
type TochkaPaymentDefaults struct {
	PaymentModes     []tochka.PaymentMode
	PreAuthorization *bool
	Purpose          string
}

var (
	TochkaCardDefaults = TochkaPaymentDefaults{PaymentModes: []tochka.PaymentMode{tochka.PaymentModeCard}}
	TochkaSBPDefaults  = TochkaPaymentDefaults{PaymentModes: []tochka.PaymentMode{tochka.PaymentModeSBP}}
)

// TochkaProvider implements ports.PaymentProvider for Tochka internet acquiring
type TochkaProvider struct {
	id       string
	options  TochkaOptions
	defaults TochkaPaymentDefaults
	gateway  TochkaGateway
	verifier *tochka.WebhookVerifier
	log      *zap.Logger
}

// NewTochkaProvider validates options and parses the webhook key
func NewTochkaProvider(id string, options TochkaOptions, defaults TochkaPaymentDefaults, gateway TochkaGateway, log *zap.Logger) (*TochkaProvider, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	verifier, err := tochka.NewWebhookVerifier(options.WebhookPublicKeyJSON)
	if err != nil {
		return nil, err
	}

	log.Info("Tochka payment provider created",
		zap.String("id", id),
		zap.String("api_version", options.APIVersion),
		zap.Bool("developer_mode", options.DeveloperMode),
	)

	return &TochkaProvider{
		id:       id,
		options:  options,
		defaults: defaults,
		gateway:  gateway,
		verifier: verifier,
		log:      log,
	}, nil
}

func (p *TochkaProvider) Identifier() string {
	return p.id
}

// createRequest merges per-call data, provider defaults and options, in
// that order of precedence.
func (p *TochkaProvider) createRequest(data domain.PaymentData) *tochka.CreatePaymentRequest {
	req := &tochka.CreatePaymentRequest{}

	switch {
	case data.String("purpose") != "":
		req.Purpose = data.String("purpose")
	case p.defaults.Purpose != "":
		req.Purpose = p.defaults.Purpose
	case p.options.PaymentPurpose != "":
		req.Purpose = p.options.PaymentPurpose
	default:
		req.Purpose = defaultPurpose
	}

	preAuth := false
	if v, ok := data.Bool("preAuthorization"); ok {
		preAuth = v
	} else if p.defaults.PreAuthorization != nil {
		preAuth = *p.defaults.PreAuthorization
	} else if p.options.PreAuthorization != nil {
		preAuth = *p.options.PreAuthorization
	}
	req.PreAuthorization = &preAuth

	req.PaymentMode = p.defaults.PaymentModes
	if len(req.PaymentMode) == 0 {
		req.PaymentMode = []tochka.PaymentMode{tochka.PaymentModeCard}
	}

	req.RedirectURL = data.String("redirectUrl")
	req.FailRedirectURL = data.String("failRedirectUrl")
	req.ConsumerID = data.String("consumerId")
	req.MerchantID = data.String("merchantId")
	if v, ok := data.Bool("saveCard"); ok {
		req.SaveCard = &v
	}
	if v, ok := data.Int("ttl"); ok {
		req.TTL = &v
	}

	if sessionID := data.String("session_id"); sessionID != "" && utf8.RuneCountInString(sessionID) < maxPaymentLinkIDLength {
		req.PaymentLinkID = sessionID
	}

	if p.options.WithReceipt {
		req.TaxSystemCode = p.options.TaxSystemCode
		if code := data.String("taxSystemCode"); code != "" {
			req.TaxSystemCode = tochka.TaxSystemCode(code)
		}
	}
	return req
}

func (p *TochkaProvider) customerCode(ctx context.Context) (string, error) {
	customers, err := p.gateway.ListCustomers(ctx)
	if err != nil {
		p.log.Error("Failed to get customer list", zap.Error(err))
		return "", ErrCustomerCodeUnknown
	}
	for _, c := range customers {
		if c.CustomerType == tochka.CustomerTypeBusiness && c.CustomerCode != "" {
			return c.CustomerCode, nil
		}
	}
	return "", ErrCustomerCodeUnknown
}

// InitiatePayment creates a Tochka payment operation for the cart in input.Data
func (p *TochkaProvider) InitiatePayment(ctx context.Context, input *domain.InitiatePaymentInput) (out *domain.InitiatePaymentOutput, err error) {
	ctx, done := track(ctx, p.id, "initiatePayment")
	defer func() { done(err) }()

	p.log.Debug("TochkaProvider.initiatePayment input", zap.Any("input", input))

	cart, err := domain.CartFromData(input.Data)
	if err != nil {
		return nil, buildError("initiatePayment", err)
	}
	if cart == nil {
		return nil, buildError("initiatePayment", ErrNoCart)
	}

	code, err := p.customerCode(ctx)
	if err != nil {
		return nil, buildError("initiatePayment", err)
	}

	req := p.createRequest(input.Data)
	req.CustomerCode = code
	req.Amount = input.Amount.InexactFloat64()

	var op *tochka.PaymentOperation
	if p.options.WithReceipt {
		r := receipt.BuildTochka(cart, p.options.TaxItemDefault, p.options.TaxShippingDefault)
		req.Client = r.Client
		req.Items = r.Items
		op, err = p.gateway.CreatePaymentWithReceipt(ctx, req)
	} else {
		op, err = p.gateway.CreatePayment(ctx, req)
	}
	if err != nil {
		p.log.Error("Can not initiate payment", zap.String("provider", p.id), zap.Error(err))
		return nil, buildError("initiatePayment", err)
	}

	data, err := toData(op)
	if err != nil {
		return nil, buildError("initiatePayment", err)
	}
	if sessionID := input.Data.String("session_id"); sessionID != "" {
		data["session_id"] = sessionID
	}

	out = &domain.InitiatePaymentOutput{ID: op.OperationID, Data: data}
	p.log.Debug("TochkaProvider.initiatePayment output", zap.Any("output", out))
	return out, nil
}

// fetchOperation returns the operation or an error wrapping ErrPaymentNotFound
func (p *TochkaProvider) fetchOperation(ctx context.Context, id string) (*tochka.PaymentOperation, error) {
	ops, err := p.gateway.GetPaymentOperation(ctx, id)
	if err != nil {
		if tochka.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
		}
		return nil, err
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	return &ops[0], nil
}

// GetPaymentStatus maps the current operation status. An unknown operation is an error.
func (p *TochkaProvider) GetPaymentStatus(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentStatusOutput, err error) {
	ctx, done := track(ctx, p.id, "getPaymentStatus")
	defer func() { done(err) }()

	p.log.Debug("TochkaProvider.getPaymentStatus input", zap.Any("input", input))

	id := operationID(input.Data)
	if id == "" {
		return nil, buildError("getPaymentStatus", ErrMissingPaymentID)
	}

	op, err := p.fetchOperation(ctx, id)
	if err != nil {
		p.log.Error("Can not get payment status", zap.String("operation_id", id), zap.Error(err))
		return nil, buildError("getPaymentStatus", err)
	}
	data, err := toData(op)
	if err != nil {
		return nil, buildError("getPaymentStatus", err)
	}

	out = &domain.PaymentStatusOutput{Status: TochkaSessionStatus(op.Status), Data: data}
	p.log.Debug("TochkaProvider.getPaymentStatus output", zap.Any("output", out))
	return out, nil
}

// AuthorizePayment reports the current status; Tochka authorizes on its payment page
func (p *TochkaProvider) AuthorizePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentStatusOutput, error) {
	return p.GetPaymentStatus(ctx, input)
}

// CapturePayment captures a pre-authorized operation. Already approved
// operations are echoed without calling the gateway.
func (p *TochkaProvider) CapturePayment(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, p.id, "capturePayment")
	defer func() { done(err) }()

	p.log.Debug("TochkaProvider.capturePayment input", zap.Any("input", input))

	id := operationID(input.Data)
	if id == "" {
		return nil, buildError("capturePayment", ErrMissingPaymentID)
	}
	if tochka.PaymentStatus(input.Data.String("status")) == tochka.StatusApproved {
		return &domain.PaymentOutput{Data: input.Data}, nil
	}

	res, err := p.gateway.CapturePayment(ctx, id)
	if err != nil {
		p.log.Error("Can not capture payment", zap.String("operation_id", id), zap.Error(err))
		return nil, buildError("capturePayment", err)
	}

	out = &domain.PaymentOutput{Data: input.Data.Merge(res)}
	p.log.Debug("TochkaProvider.capturePayment output", zap.Any("output", out))
	return out, nil
}

// CancelPayment echoes the session data; Tochka has no cancel endpoint
func (p *TochkaProvider) CancelPayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error) {
	p.log.Debug("TochkaProvider.cancelPayment input", zap.Any("input", input))
	return &domain.PaymentOutput{Data: input.Data}, nil
}

// RetrievePayment returns the current operation. An unknown operation yields
// an empty output rather than an error.
func (p *TochkaProvider) RetrievePayment(ctx context.Context, input *domain.PaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, p.id, "retrievePayment")
	defer func() { done(err) }()

	p.log.Debug("TochkaProvider.retrievePayment input", zap.Any("input", input))

	id := operationID(input.Data)
	if id == "" {
		return nil, buildError("retrievePayment", ErrMissingPaymentID)
	}

	op, err := p.fetchOperation(ctx, id)
	if errors.Is(err, ErrPaymentNotFound) {
		p.log.Warn("Payment operation not found", zap.String("operation_id", id))
		return &domain.PaymentOutput{}, nil
	}
	if err != nil {
		p.log.Error("Can not retrieve payment", zap.String("operation_id", id), zap.Error(err))
		return nil, buildError("retrievePayment", err)
	}
	data, err := toData(op)
	if err != nil {
		return nil, buildError("retrievePayment", err)
	}

	out = &domain.PaymentOutput{Data: data}
	p.log.Debug("TochkaProvider.retrievePayment output", zap.Any("output", out))
	return out, nil
}

// RefundPayment refunds input.Amount and returns the refreshed operation
func (p *TochkaProvider) RefundPayment(ctx context.Context, input *domain.RefundPaymentInput) (out *domain.PaymentOutput, err error) {
	ctx, done := track(ctx, p.id, "refundPayment")
	defer func() { done(err) }()

	p.log.Debug("TochkaProvider.refundPayment input", zap.Any("input", input))

	id := operationID(input.Data)
	if id == "" {
		return nil, buildError("refundPayment", ErrMissingPaymentID)
	}

	if _, err := p.gateway.RefundPayment(ctx, id, input.Amount.InexactFloat64()); err != nil {
		p.log.Error("Can not refund payment", zap.String("operation_id", id), zap.Error(err))
		return nil, buildError("refundPayment", err)
	}

	out, err = p.RetrievePayment(ctx, &domain.PaymentInput{Data: input.Data, Context: input.Context})
	if err != nil {
		return nil, err
	}
	p.log.Debug("TochkaProvider.refundPayment output", zap.Any("output", out))
	return out, nil
}

// DeletePayment echoes the session data; Tochka operations cannot be deleted
func (p *TochkaProvider) DeletePayment(ctx context.Context, input *domain.PaymentInput) (*domain.PaymentOutput, error) {
	p.log.Debug("TochkaProvider.deletePayment input", zap.Any("input", input))
	return &domain.PaymentOutput{Data: input.Data}, nil
}

// UpdatePayment echoes the session data; Tochka operations cannot be updated
func (p *TochkaProvider) UpdatePayment(ctx context.Context, input *domain.UpdatePaymentInput) (*domain.PaymentOutput, error) {
	p.log.Debug("TochkaProvider.updatePayment input", zap.Any("input", input))
	return &domain.PaymentOutput{Data: input.Data}, nil
}

// GetWebhookActionAndData verifies the notification JWT, cross-checks it with
// a fresh fetch of the operation and maps its status to an action.
func (p *TochkaProvider) GetWebhookActionAndData(ctx context.Context, payload *domain.WebhookPayload) (out *domain.WebhookActionResult, err error) {
	ctx, done := track(ctx, p.id, "getWebhookActionAndData")
	defer func() { done(err) }()

	notification, err := p.verifier.Verify(webhookToken(payload))
	if err != nil {
		p.log.Warn("Invalid Tochka webhook", zap.String("provider", p.id), zap.Error(err))
		return domain.NotSupported(), nil
	}
	p.log.Debug("TochkaProvider.getWebhookActionAndData payload", zap.Any("payload", notification))

	if notification.WebhookType != tochka.WebhookTypeInternetPayment {
		return domain.NotSupported(), nil
	}

	op, err := p.fetchOperation(ctx, notification.OperationID)
	if err != nil {
		p.log.Warn("Original payment of webhook not found",
			zap.String("operation_id", notification.OperationID),
			zap.Error(err),
		)
		return domain.NotSupported(), nil
	}
	if op.Status != notification.Status || op.OperationID != notification.OperationID {
		p.log.Warn("Webhook payload does not match original payment",
			zap.String("operation_id", notification.OperationID),
			zap.String("webhook_status", string(notification.Status)),
			zap.String("payment_status", string(op.Status)),
		)
		return domain.NotSupported(), nil
	}

	action := TochkaWebhookAction(notification.Status)
	if action == domain.WebhookActionNotSupported {
		return domain.NotSupported(), nil
	}

	out = &domain.WebhookActionResult{Action: action}
	if op.PaymentLinkID != "" {
		out.Data = &domain.WebhookActionData{SessionID: op.PaymentLinkID, Amount: notification.Amount}
	}
	p.log.Debug("TochkaProvider.getWebhookActionAndData result", zap.Any("result", out))
	return out, nil
}

// TochkaSessionStatus maps an acquiring status to the session status
func TochkaSessionStatus(status tochka.PaymentStatus) domain.SessionStatus {
	switch status {
	case tochka.StatusCreated, tochka.StatusWaitFullPayment:
		return domain.SessionStatusPending
	case tochka.StatusExpired:
		return domain.SessionStatusCanceled
	case tochka.StatusAuthorized:
		return domain.SessionStatusAuthorized
	case tochka.StatusApproved:
		return domain.SessionStatusCaptured
	case tochka.StatusRefunded, tochka.StatusRefundedPartially:
		return domain.SessionStatusCanceled
	default:
		return domain.SessionStatusPending
	}
}

// TochkaWebhookAction maps a notified acquiring status to a webhook action
func TochkaWebhookAction(status tochka.PaymentStatus) domain.WebhookAction {
	switch status {
	case tochka.StatusApproved:
		return domain.WebhookActionSuccessful
	case tochka.StatusAuthorized:
		return domain.WebhookActionAuthorized
	case tochka.StatusExpired, tochka.StatusRefunded:
		return domain.WebhookActionCanceled
	default:
		return domain.WebhookActionNotSupported
	}
}
