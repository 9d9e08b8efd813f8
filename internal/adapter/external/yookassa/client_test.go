package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{ShopID: "shop", SecretKey: "secret", BaseURL: srv.URL}, srv.Client(), zap.NewNop())
}

func TestClient_CreatePayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotence-Key"))

		var req CreatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "600.00", req.Amount.Value)
		assert.Equal(t, "sess_1", req.Metadata["session_id"])

		_, _ = w.Write([]byte(`{"id":"pay-1","status":"pending","amount":{"value":"600.00","currency":"RUB"},"metadata":{"session_id":"sess_1"},"confirmation":{"type":"redirect","confirmation_url":"https://yoomoney.ru/pay"}}`))
	})

	p, err := c.CreatePayment(context.Background(), &CreatePaymentRequest{
		Amount:   Amount{Value: "600.00", Currency: "RUB"},
		Metadata: map[string]string{"session_id": "sess_1"},
	}, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "https://yoomoney.ru/pay", p.Confirmation.ConfirmationURL)
}

func TestClient_GeneratesIdempotenceKey(t *testing.T) {
	var keys []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotence-Key"))
		_, _ = w.Write([]byte(`{"id":"pay-1","status":"canceled"}`))
	})

	_, err := c.CancelPayment(context.Background(), "pay-1", "")
	require.NoError(t, err)
	_, err = c.GetPayment(context.Background(), "pay-1")
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Empty(t, keys[1], "GET requests carry no idempotence key")
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"error","id":"e-1","code":"not_found","description":"Payment doesn't exist"}`))
	})

	_, err := c.GetRefund(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Payment doesn't exist", apiErr.Description)
}

func TestClient_CreateRefund(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		var req CreateRefundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pay-1", req.PaymentID)
		_, _ = w.Write([]byte(`{"id":"ref-1","payment_id":"pay-1","status":"succeeded","amount":{"value":"100.00","currency":"RUB"}}`))
	})

	r, err := c.CreateRefund(context.Background(), &CreateRefundRequest{
		PaymentID: "pay-1",
		Amount:    Amount{Value: "100.00", Currency: "RUB"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, r.Status)
}
