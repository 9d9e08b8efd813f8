package tochka

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// ErrCorruptedWebhook is returned for verified tokens missing required fields
var ErrCorruptedWebhook = errors.New("webhook payload is corrupted")

// WebhookVerifier checks acquiring notifications signed with Tochka's key
type WebhookVerifier struct {
	key     interface{}
	methods []string
}

type webhookClaims struct {
	jwt.RegisteredClaims
	WebhookPayload
}

// NewWebhookVerifier parses the public JWK (JSON text) published by Tochka
func NewWebhookVerifier(publicKeyJSON string) (*WebhookVerifier, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON([]byte(publicKeyJSON)); err != nil {
		return nil, fmt.Errorf("parse webhook public key: %w", err)
	}
	if !jwk.Valid() {
		return nil, errors.New("parse webhook public key: invalid key")
	}
	if !jwk.IsPublic() {
		jwk = jwk.Public()
	}

	var methods []string
	switch jwk.Key.(type) {
	case *rsa.PublicKey:
		methods = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}
	case *ecdsa.PublicKey:
		methods = []string{"ES256", "ES384", "ES512"}
	case ed25519.PublicKey:
		methods = []string{"EdDSA"}
	default:
		return nil, fmt.Errorf("parse webhook public key: unsupported key type %T", jwk.Key)
	}
	if jwk.Algorithm != "" {
		methods = []string{jwk.Algorithm}
	}

	return &WebhookVerifier{key: jwk.Key, methods: methods}, nil
}

// Verify checks the token signature and decodes the notification. Every
// required field must be present.
func (v *WebhookVerifier) Verify(token string) (*WebhookPayload, error) {
	claims := &webhookClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, fmt.Errorf("verify webhook token: %w", err)
	}

	p := claims.WebhookPayload
	if p.OperationID == "" || p.PaymentType == "" || p.Amount.IsZero() || p.Status == "" || p.WebhookType == "" {
		return nil, ErrCorruptedWebhook
	}
	return &p, nil
}
