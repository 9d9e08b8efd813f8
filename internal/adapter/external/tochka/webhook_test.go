package tochka

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigningKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, Algorithm: "RS256", Use: "sig"}
	raw, err := jwk.MarshalJSON()
	require.NoError(t, err)
	return key, string(raw)
}

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestWebhookVerifier_Verify(t *testing.T) {
	key, jwk := newSigningKey(t)
	v, err := NewWebhookVerifier(jwk)
	require.NoError(t, err)

	token := sign(t, key, jwt.MapClaims{
		"operationId": "op-1",
		"status":      "APPROVED",
		"amount":      "600.00",
		"paymentType": "card",
		"webhookType": WebhookTypeInternetPayment,
		"iat":         time.Now().Unix(),
	})

	payload, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", payload.OperationID)
	assert.Equal(t, StatusApproved, payload.Status)
	assert.Equal(t, "600", payload.Amount.String())
	assert.Equal(t, WebhookTypeInternetPayment, payload.WebhookType)
}

func TestWebhookVerifier_RejectsForeignKey(t *testing.T) {
	_, jwk := newSigningKey(t)
	other, _ := newSigningKey(t)
	v, err := NewWebhookVerifier(jwk)
	require.NoError(t, err)

	token := sign(t, other, jwt.MapClaims{
		"operationId": "op-1",
		"status":      "APPROVED",
		"amount":      600,
		"paymentType": "card",
		"webhookType": WebhookTypeInternetPayment,
	})

	_, err = v.Verify(token)
	assert.Error(t, err)
}

func TestWebhookVerifier_RejectsHMAC(t *testing.T) {
	_, jwk := newSigningKey(t)
	v, err := NewWebhookVerifier(jwk)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"operationId": "op-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.Error(t, err)
}

func TestWebhookVerifier_MissingFields(t *testing.T) {
	key, jwk := newSigningKey(t)
	v, err := NewWebhookVerifier(jwk)
	require.NoError(t, err)

	token := sign(t, key, jwt.MapClaims{
		"operationId": "op-1",
		"status":      "APPROVED",
		"amount":      600,
	})

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrCorruptedWebhook)
}

func TestNewWebhookVerifier_InvalidKey(t *testing.T) {
	_, err := NewWebhookVerifier(`{"kty":"RSA"}`)
	assert.Error(t, err)

	_, err = NewWebhookVerifier("not json")
	assert.Error(t, err)
}
