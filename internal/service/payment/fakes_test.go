package payment

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/adapter/external/yookassa"
)

type fakeTochka struct {
	operations  map[string]tochka.PaymentOperation
	customers   []tochka.Customer
	customerErr error
	getErr      error

	created       *tochka.CreatePaymentRequest
	withReceipt   bool
	captureCalls  int
	refundCalls   int
	refundAmounts []float64
	getCalls      int
}

func newFakeTochka() *fakeTochka {
	return &fakeTochka{
		operations: map[string]tochka.PaymentOperation{},
		customers: []tochka.Customer{
			{CustomerCode: "100", CustomerType: tochka.CustomerTypePersonal},
			{CustomerCode: "300000092", CustomerType: tochka.CustomerTypeBusiness},
		},
	}
}

func (f *fakeTochka) create(req *tochka.CreatePaymentRequest) *tochka.PaymentOperation {
	f.created = req
	op := tochka.PaymentOperation{
		OperationID:   "op-1",
		Status:        tochka.StatusCreated,
		Amount:        req.Amount,
		Purpose:       req.Purpose,
		PaymentLink:   "https://merch.tochka.com/order/op-1",
		PaymentLinkID: req.PaymentLinkID,
	}
	f.operations[op.OperationID] = op
	return &op
}

func (f *fakeTochka) CreatePayment(ctx context.Context, req *tochka.CreatePaymentRequest) (*tochka.PaymentOperation, error) {
	return f.create(req), nil
}

func (f *fakeTochka) CreatePaymentWithReceipt(ctx context.Context, req *tochka.CreatePaymentRequest) (*tochka.PaymentOperation, error) {
	f.withReceipt = true
	return f.create(req), nil
}

func (f *fakeTochka) GetPaymentOperation(ctx context.Context, id string) ([]tochka.PaymentOperation, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	op, ok := f.operations[id]
	if !ok {
		return nil, nil
	}
	return []tochka.PaymentOperation{op}, nil
}

func (f *fakeTochka) CapturePayment(ctx context.Context, id string) (map[string]any, error) {
	f.captureCalls++
	op := f.operations[id]
	op.Status = tochka.StatusApproved
	f.operations[id] = op
	return map[string]any{"isCaptured": true}, nil
}

func (f *fakeTochka) RefundPayment(ctx context.Context, id string, amount float64) (map[string]any, error) {
	f.refundCalls++
	f.refundAmounts = append(f.refundAmounts, amount)
	op := f.operations[id]
	op.Status = tochka.StatusRefundedPartially
	f.operations[id] = op
	return map[string]any{"isRefund": true}, nil
}

func (f *fakeTochka) ListCustomers(ctx context.Context) ([]tochka.Customer, error) {
	return f.customers, f.customerErr
}

type fakeYooKassa struct {
	payments map[string]yookassa.Payment
	refunds  map[string]yookassa.Refund

	created      *yookassa.CreatePaymentRequest
	createKey    string
	captureCalls int
	cancelCalls  int
	refundReq    *yookassa.CreateRefundRequest
}

func newFakeYooKassa() *fakeYooKassa {
	return &fakeYooKassa{payments: map[string]yookassa.Payment{}, refunds: map[string]yookassa.Refund{}}
}

func (f *fakeYooKassa) CreatePayment(ctx context.Context, req *yookassa.CreatePaymentRequest, key string) (*yookassa.Payment, error) {
	f.created = req
	f.createKey = key
	p := yookassa.Payment{ID: "pay-1", Status: yookassa.StatusPending, Amount: req.Amount, Metadata: req.Metadata}
	f.payments[p.ID] = p
	return &p, nil
}

func (f *fakeYooKassa) GetPayment(ctx context.Context, id string) (*yookassa.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, &yookassa.APIError{StatusCode: 404, Code: "not_found", Description: "not found"}
	}
	return &p, nil
}

func (f *fakeYooKassa) CapturePayment(ctx context.Context, id string, req *yookassa.CapturePaymentRequest, key string) (*yookassa.Payment, error) {
	f.captureCalls++
	p := f.payments[id]
	p.Status = yookassa.StatusSucceeded
	f.payments[id] = p
	return &p, nil
}

func (f *fakeYooKassa) CancelPayment(ctx context.Context, id, key string) (*yookassa.Payment, error) {
	f.cancelCalls++
	p := f.payments[id]
	p.Status = yookassa.StatusCanceled
	f.payments[id] = p
	return &p, nil
}

func (f *fakeYooKassa) CreateRefund(ctx context.Context, req *yookassa.CreateRefundRequest, key string) (*yookassa.Refund, error) {
	f.refundReq = req
	r := yookassa.Refund{ID: "ref-1", PaymentID: req.PaymentID, Status: yookassa.StatusSucceeded, Amount: req.Amount}
	f.refunds[r.ID] = r
	p := f.payments[req.PaymentID]
	p.RefundedAmount = &req.Amount
	f.payments[req.PaymentID] = p
	return &r, nil
}

func (f *fakeYooKassa) GetRefund(ctx context.Context, id string) (*yookassa.Refund, error) {
	r, ok := f.refunds[id]
	if !ok {
		return nil, &yookassa.APIError{StatusCode: 404, Code: "not_found"}
	}
	return &r, nil
}

type webhookSigner struct {
	key *rsa.PrivateKey
	jwk string
}

func newWebhookSigner(t *testing.T) *webhookSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	raw, err := jose.JSONWebKey{Key: &key.PublicKey, Algorithm: "RS256", Use: "sig"}.MarshalJSON()
	require.NoError(t, err)
	return &webhookSigner{key: key, jwk: string(raw)}
}

func (s *webhookSigner) sign(t *testing.T, claims jwt.MapClaims) []byte {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	require.NoError(t, err)
	return []byte(token)
}
