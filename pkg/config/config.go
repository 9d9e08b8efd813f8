package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Queue          QueueConfig          `mapstructure:"queue"`
	Vault          VaultConfig          `mapstructure:"vault"`
	Payment        PaymentConfig        `mapstructure:"payment"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	APIKeys      []string      `mapstructure:"api_keys"`
	BodyLimit    int           `mapstructure:"body_limit"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
}

type JaegerConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	SamplerParam float64 `mapstructure:"sampler_param"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CircuitBreakerConfig applies to every outbound gateway client
type CircuitBreakerConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type QueueConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Driver        string `mapstructure:"driver"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type VaultConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
}

type PaymentConfig struct {
	Tochka   TochkaConfig   `mapstructure:"tochka"`
	YooKassa YooKassaConfig `mapstructure:"yookassa"`
}

type TochkaConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	SBPEnabled           bool   `mapstructure:"sbp_enabled"`
	JWTToken             string `mapstructure:"jwt_token"`
	ClientID             string `mapstructure:"client_id"`
	WebhookPublicKeyJSON string `mapstructure:"webhook_public_key_json"`
	APIVersion           string `mapstructure:"api_version"`
	DeveloperMode        bool   `mapstructure:"developer_mode"`
	BaseURL              string `mapstructure:"base_url"`
	PreAuthorization     *bool  `mapstructure:"pre_authorization"`
	PaymentPurpose       string `mapstructure:"payment_purpose"`
	WithReceipt          bool   `mapstructure:"with_receipt"`
	TaxSystemCode        string `mapstructure:"tax_system_code"`
	TaxItemDefault       string `mapstructure:"tax_item_default"`
	TaxShippingDefault   string `mapstructure:"tax_shipping_default"`
}

type YooKassaConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ShopID             string `mapstructure:"shop_id"`
	SecretKey          string `mapstructure:"secret_key"`
	BaseURL            string `mapstructure:"base_url"`
	Capture            bool   `mapstructure:"capture"`
	PaymentDescription string `mapstructure:"payment_description"`
	ReturnURL          string `mapstructure:"return_url"`
	UseReceipt         bool   `mapstructure:"use_receipt"`
	TaxSystemCode      int    `mapstructure:"tax_system_code"`
	TaxItemDefault     int    `mapstructure:"tax_item_default"`
	TaxShippingDefault int    `mapstructure:"tax_shipping_default"`
}
