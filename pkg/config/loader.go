package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads config.yaml from the standard locations (or paths, when
// given) and overlays APP_* environment variables.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", ".", "/app/configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("logging.level", "LOG_LEVEL", "APP_LOGGING_LEVEL")
	v.BindEnv("queue.url", "NATS_URL", "APP_QUEUE_URL")
	v.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	v.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	v.BindEnv("payment.tochka.jwt_token", "TOCHKA_JWT_TOKEN", "APP_PAYMENT_TOCHKA_JWT_TOKEN")
	v.BindEnv("payment.tochka.client_id", "TOCHKA_CLIENT_ID", "APP_PAYMENT_TOCHKA_CLIENT_ID")
	v.BindEnv("payment.tochka.webhook_public_key_json", "TOCHKA_WEBHOOK_PUBLIC_KEY_JSON", "APP_PAYMENT_TOCHKA_WEBHOOK_PUBLIC_KEY_JSON")
	v.BindEnv("payment.yookassa.shop_id", "YOOKASSA_SHOP_ID", "APP_PAYMENT_YOOKASSA_SHOP_ID")
	v.BindEnv("payment.yookassa.secret_key", "YOOKASSA_SECRET_KEY", "APP_PAYMENT_YOOKASSA_SECRET_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tochka-pay")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.body_limit", 1024*1024)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("opentelemetry.service_name", "tochka-pay")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("circuit_breaker.request_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 5)

	v.SetDefault("queue.driver", "nats")
	v.SetDefault("queue.subject_prefix", "payments.webhook")

	v.SetDefault("payment.tochka.api_version", "v1.0")
	v.SetDefault("payment.yookassa.capture", false)
}
