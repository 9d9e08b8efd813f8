package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/pkg/config"
)

const (
	tochkaPath   = "secret/data/tochka"
	yookassaPath = "secret/data/yookassa"
)

type SecretManager struct {
	client *api.Client
	log    *zap.Logger
}

func NewSecretManager(address, token string, log *zap.Logger) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	return &SecretManager{client: client, log: log}, nil
}

// read returns the KV v2 data map stored at path, nil when absent
func (sm *SecretManager) read(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("vault read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault read %s: unexpected secret format", path)
	}
	return data, nil
}

func stringValue(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// ApplyPaymentSecrets fills gateway credentials missing from cfg with the
// values stored in Vault. Configured values take precedence.
func (sm *SecretManager) ApplyPaymentSecrets(ctx context.Context, cfg *config.PaymentConfig) error {
	tochka, err := sm.read(ctx, tochkaPath)
	if err != nil {
		return err
	}
	fill := func(dst *string, data map[string]interface{}, key string) {
		if *dst == "" {
			*dst = stringValue(data, key)
		}
	}
	if tochka != nil {
		fill(&cfg.Tochka.JWTToken, tochka, "jwt_token")
		fill(&cfg.Tochka.ClientID, tochka, "client_id")
		fill(&cfg.Tochka.WebhookPublicKeyJSON, tochka, "webhook_public_key_json")
		sm.log.Info("Loaded Tochka credentials from Vault")
	}

	yookassa, err := sm.read(ctx, yookassaPath)
	if err != nil {
		return err
	}
	if yookassa != nil {
		fill(&cfg.YooKassa.ShopID, yookassa, "shop_id")
		fill(&cfg.YooKassa.SecretKey, yookassa, "secret_key")
		sm.log.Info("Loaded YooKassa credentials from Vault")
	}

	return nil
}
