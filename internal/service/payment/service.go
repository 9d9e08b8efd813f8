package payment

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/adapter/external/yookassa"
	"github.com/seu-repo/tochka-pay/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/tochka-pay/internal/ports"
)

// Config holds payment service configuration
type Config struct {
	TochkaEnabled    bool
	TochkaSBPEnabled bool
	Tochka           TochkaOptions

	YooKassaEnabled bool
	YooKassa        YooKassaOptions

	// Breaker configures the circuit breaker of every gateway client; the
	// name is replaced per gateway.
	Breaker circuitbreaker.HTTPClientSettings
}

// Service resolves payment providers by identifier
type Service struct {
	providers map[string]ports.PaymentProvider
	breakers  []*circuitbreaker.HTTPClient
	log       *zap.Logger
}

// NewService creates the providers enabled in config
func NewService(config *Config, log *zap.Logger) (*Service, error) {
	s := &Service{
		providers: make(map[string]ports.PaymentProvider),
		log:       log,
	}

	if config.TochkaEnabled || config.TochkaSBPEnabled {
		settings := config.Breaker
		settings.Name = "tochka"
		doer := circuitbreaker.NewHTTPClient(nil, settings, log)
		s.breakers = append(s.breakers, doer)
		client := tochka.NewClient(tochka.Options{
			JWTToken:    config.Tochka.JWTToken,
			ClientID:    config.Tochka.ClientID,
			APIVersion:  config.Tochka.APIVersion,
			Development: config.Tochka.DeveloperMode,
			BaseURL:     config.Tochka.BaseURL,
		}, doer, log)

		if config.TochkaEnabled {
			p, err := NewTochkaProvider(ProviderTochka, config.Tochka, TochkaCardDefaults, client, log)
			if err != nil {
				return nil, fmt.Errorf("tochka provider: %w", err)
			}
			s.Register(p)
		}
		if config.TochkaSBPEnabled {
			p, err := NewTochkaProvider(ProviderTochkaSBP, config.Tochka, TochkaSBPDefaults, client, log)
			if err != nil {
				return nil, fmt.Errorf("tochka-sbp provider: %w", err)
			}
			s.Register(p)
		}
	}

	if config.YooKassaEnabled {
		settings := config.Breaker
		settings.Name = "yookassa"
		doer := circuitbreaker.NewHTTPClient(nil, settings, log)
		s.breakers = append(s.breakers, doer)
		client := yookassa.NewClient(yookassa.Options{
			ShopID:    config.YooKassa.ShopID,
			SecretKey: config.YooKassa.SecretKey,
			BaseURL:   config.YooKassa.BaseURL,
		}, doer, log)

		p, err := NewYooKassaProvider(config.YooKassa, client, log)
		if err != nil {
			return nil, fmt.Errorf("yookassa provider: %w", err)
		}
		s.Register(p)
	}

	if len(s.providers) == 0 {
		log.Warn("No payment providers configured")
	}

	return s, nil
}

// Register adds p, replacing any provider with the same identifier
func (s *Service) Register(p ports.PaymentProvider) {
	s.providers[p.Identifier()] = p
	s.log.Info("Payment provider registered", zap.String("provider", p.Identifier()))
}

// Provider returns the provider registered under id
func (s *Service) Provider(id string) (ports.PaymentProvider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

// Identifiers lists the registered provider ids in sorted order
func (s *Service) Identifiers() []string {
	ids := make([]string, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Breakers returns the circuit breaker guarded HTTP clients of the
// configured gateways
func (s *Service) Breakers() []*circuitbreaker.HTTPClient {
	return s.breakers
}
