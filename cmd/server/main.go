package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/adapter/queue"
	"github.com/seu-repo/tochka-pay/internal/adapter/vault"
	"github.com/seu-repo/tochka-pay/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/tochka-pay/internal/observability/telemetry"
	"github.com/seu-repo/tochka-pay/internal/ports"
	"github.com/seu-repo/tochka-pay/internal/service/health"
	"github.com/seu-repo/tochka-pay/internal/service/payment"
	"github.com/seu-repo/tochka-pay/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting payment gateway service",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.App.Version,
			cfg.OpenTelemetry.Jaeger.Endpoint, cfg.OpenTelemetry.Jaeger.SamplerParam)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer shutdownTracer(tracerProvider, logger)
	}

	// 4. Resolve gateway credentials from Vault
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token, logger)
		if err != nil {
			logger.Fatal("Failed to create Vault client", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = sm.ApplyPaymentSecrets(ctx, &cfg.Payment)
		cancel()
		if err != nil {
			logger.Fatal("Failed to read payment secrets from Vault", zap.Error(err))
		}
	}

	// 5. Initialize Payment Providers
	paymentService, err := payment.NewService(paymentConfig(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize payment providers", zap.Error(err))
	}

	// 6. Initialize Message Queue (webhook events)
	var publisher ports.EventPublisher
	healthCfg := &health.Config{
		Version:   cfg.App.Version,
		Providers: paymentService.Identifiers(),
	}
	for _, b := range paymentService.Breakers() {
		healthCfg.Breakers = append(healthCfg.Breakers, b)
	}
	if cfg.Queue.Enabled {
		mq, err := queue.New(cfg.Queue.Driver, cfg.Queue.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to message queue", zap.Error(err))
		}
		publisher = queue.NewWebhookPublisher(mq, cfg.Queue.SubjectPrefix, logger)
		defer publisher.Close()
		healthCfg.Broker = mq
	}

	// 7. Initialize Health Checks
	healthService := health.NewService(healthCfg, logger)

	// 8. Initialize Fiber HTTP Server
	app := newApp(cfg, paymentService, publisher, healthService, logger)

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func shutdownTracer(tp *trace.TracerProvider, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down tracer provider", zap.Error(err))
	}
}

// paymentConfig maps the gateway sections of cfg onto provider options
func paymentConfig(cfg *config.Config) *payment.Config {
	tc := cfg.Payment.Tochka
	yc := cfg.Payment.YooKassa
	cb := cfg.CircuitBreaker

	return &payment.Config{
		TochkaEnabled:    tc.Enabled,
		TochkaSBPEnabled: tc.SBPEnabled,
		Tochka: payment.TochkaOptions{
			JWTToken:             tc.JWTToken,
			ClientID:             tc.ClientID,
			WebhookPublicKeyJSON: tc.WebhookPublicKeyJSON,
			APIVersion:           tc.APIVersion,
			DeveloperMode:        tc.DeveloperMode,
			BaseURL:              tc.BaseURL,
			PreAuthorization:     tc.PreAuthorization,
			PaymentPurpose:       tc.PaymentPurpose,
			WithReceipt:          tc.WithReceipt,
			TaxSystemCode:        tochka.TaxSystemCode(tc.TaxSystemCode),
			TaxItemDefault:       tochka.VatType(tc.TaxItemDefault),
			TaxShippingDefault:   tochka.VatType(tc.TaxShippingDefault),
		},
		YooKassaEnabled: yc.Enabled,
		YooKassa: payment.YooKassaOptions{
			ShopID:             yc.ShopID,
			SecretKey:          yc.SecretKey,
			BaseURL:            yc.BaseURL,
			Capture:            yc.Capture,
			PaymentDescription: yc.PaymentDescription,
			ReturnURL:          yc.ReturnURL,
			UseReceipt:         yc.UseReceipt,
			TaxSystemCode:      yc.TaxSystemCode,
			TaxItemDefault:     yc.TaxItemDefault,
			TaxShippingDefault: yc.TaxShippingDefault,
		},
		Breaker: circuitbreaker.HTTPClientSettings{
			Timeout:          cb.RequestTimeout,
			MaxRequests:      cb.MaxRequests,
			Interval:         cb.Interval,
			BreakerTimeout:   cb.Timeout,
			FailureThreshold: cb.FailureThreshold,
		},
	}
}
