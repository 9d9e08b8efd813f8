package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/pkg/config"
)

func newVaultServer(t *testing.T, secrets map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		body, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyPaymentSecrets(t *testing.T) {
	srv := newVaultServer(t, map[string]string{
		"/v1/secret/data/tochka":   `{"data":{"data":{"jwt_token":"vault-jwt","client_id":"vault-client","webhook_public_key_json":"{}"}}}`,
		"/v1/secret/data/yookassa": `{"data":{"data":{"shop_id":"42","secret_key":"vault-secret"}}}`,
	})

	sm, err := NewSecretManager(srv.URL, "test-token", zap.NewNop())
	require.NoError(t, err)

	cfg := &config.PaymentConfig{}
	cfg.Tochka.ClientID = "configured"

	require.NoError(t, sm.ApplyPaymentSecrets(context.Background(), cfg))
	assert.Equal(t, "vault-jwt", cfg.Tochka.JWTToken)
	assert.Equal(t, "configured", cfg.Tochka.ClientID)
	assert.Equal(t, "{}", cfg.Tochka.WebhookPublicKeyJSON)
	assert.Equal(t, "42", cfg.YooKassa.ShopID)
	assert.Equal(t, "vault-secret", cfg.YooKassa.SecretKey)
}

func TestApplyPaymentSecrets_Missing(t *testing.T) {
	srv := newVaultServer(t, map[string]string{})

	sm, err := NewSecretManager(srv.URL, "test-token", zap.NewNop())
	require.NoError(t, err)

	cfg := &config.PaymentConfig{}
	require.NoError(t, sm.ApplyPaymentSecrets(context.Background(), cfg))
	assert.Empty(t, cfg.Tochka.JWTToken)
}

func TestApplyPaymentSecrets_BadFormat(t *testing.T) {
	srv := newVaultServer(t, map[string]string{
		"/v1/secret/data/tochka": `{"data":{"data":"not-a-map"}}`,
	})

	sm, err := NewSecretManager(srv.URL, "test-token", zap.NewNop())
	require.NoError(t, err)

	err = sm.ApplyPaymentSecrets(context.Background(), &config.PaymentConfig{})
	assert.ErrorContains(t, err, "unexpected secret format")
}
