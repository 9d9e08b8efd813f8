package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Providers []string  `json:"providers,omitempty"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker defines a health check function
type Checker func(ctx context.Context) CheckResult

// Breaker is a gateway client guarded by a circuit breaker
type Breaker interface {
	Name() string
	State() string
}

// Broker is the event queue connection
type Broker interface {
	Healthy() bool
}

// Service handles health checks
type Service struct {
	startTime time.Time
	version   string
	providers []string
	checkers  map[string]Checker
	log       *zap.Logger
	mu        sync.RWMutex
}

// Config holds health service configuration
type Config struct {
	Version   string
	Providers []string
	Breakers  []Breaker
	// Broker is nil when event publishing is disabled
	Broker Broker
}

// NewService creates a new health service
func NewService(config *Config, log *zap.Logger) *Service {
	s := &Service{
		startTime: time.Now(),
		version:   config.Version,
		providers: config.Providers,
		checkers:  make(map[string]Checker),
		log:       log,
	}

	for _, b := range config.Breakers {
		s.RegisterChecker("gateway_"+b.Name(), BreakerChecker(b))
	}
	if config.Broker != nil {
		s.RegisterChecker("queue", BrokerChecker(config.Broker))
	}

	return s
}

// RegisterChecker registers a custom health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.log.Info("Registered health checker", zap.String("name", name))
}

// Health performs a basic liveness check
func (s *Service) Health(ctx context.Context) *HealthResponse {
	return &HealthResponse{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
		Providers: s.providers,
	}
}

// Ready performs a comprehensive readiness check
func (s *Service) Ready(ctx context.Context) *ReadyResponse {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	// Run all checks concurrently
	results := make(map[string]CheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			result := checker(checkCtx)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, checker)
	}

	wg.Wait()

	overallStatus := StatusHealthy
	allReady := true

	for name, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			allReady = false
			s.log.Warn("Readiness check failed", zap.String("check", name), zap.String("message", result.Message))
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	return &ReadyResponse{
		Ready:     allReady,
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// BreakerChecker reports an open gateway breaker as degraded. Payments
// through the other gateways and webhook intake keep working.
func BreakerChecker(b Breaker) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{
			Name:      "gateway_" + b.Name(),
			Status:    StatusHealthy,
			Timestamp: start,
		}

		switch state := b.State(); state {
		case "closed":
		case "half-open":
			result.Status = StatusDegraded
			result.Message = "circuit breaker half-open"
		default:
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("circuit breaker %s", state)
		}
		result.Duration = time.Since(start)
		return result
	}
}

// BrokerChecker reports a lost queue connection as unhealthy
func BrokerChecker(b Broker) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{
			Name:      "queue",
			Status:    StatusHealthy,
			Timestamp: start,
		}
		if !b.Healthy() {
			result.Status = StatusUnhealthy
			result.Message = "queue connection lost"
		}
		result.Duration = time.Since(start)
		return result
	}
}
