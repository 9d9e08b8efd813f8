package circuitbreaker

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/observability/telemetry"
)

// Doer is the minimal HTTP client surface the gateway clients depend on
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// errServerStatus marks 5xx responses as breaker failures while still
// handing the response back to the caller.
var errServerStatus = errors.New("gateway server error")

// HTTPClient wraps an HTTP client with circuit breaker protection
type HTTPClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// HTTPClientSettings configures the HTTP client with circuit breaker
type HTTPClientSettings struct {
	// HTTP client settings
	Timeout time.Duration

	// Circuit breaker settings
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	BreakerTimeout   time.Duration
	FailureThreshold uint32
}

// DefaultHTTPClientSettings returns default settings
func DefaultHTTPClientSettings(name string) HTTPClientSettings {
	return HTTPClientSettings{
		Name:             name,
		Timeout:          30 * time.Second,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		BreakerTimeout:   30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewHTTPClient creates a new HTTP client with the given settings. A nil
// client gets a default one using settings.Timeout.
func NewHTTPClient(client *http.Client, settings HTTPClientSettings, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			telemetry.GatewayCircuitState.WithLabelValues(name).Set(float64(to))
			log.Warn("Gateway circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	telemetry.GatewayCircuitState.WithLabelValues(settings.Name).Set(float64(gobreaker.StateClosed))

	return &HTTPClient{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// Do executes an HTTP request with circuit breaker protection. Gateway 5xx
// responses count as failures but are still returned without an error.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	started := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("%w: %d", errServerStatus, resp.StatusCode)
		}
		return resp, nil
	})

	switch {
	case err == nil:
		resp := result.(*http.Response)
		telemetry.ObserveGatewayRequest(c.breaker.Name(), req.Method, strconv.Itoa(resp.StatusCode), started)
		return resp, nil
	case errors.Is(err, errServerStatus):
		resp := result.(*http.Response)
		telemetry.ObserveGatewayRequest(c.breaker.Name(), req.Method, strconv.Itoa(resp.StatusCode), started)
		return resp, nil
	case IsCircuitOpen(err):
		c.log.Warn("Circuit breaker open, request blocked",
			zap.String("url", req.URL.String()),
			zap.String("breaker", c.breaker.Name()),
		)
	}

	telemetry.ObserveGatewayRequest(c.breaker.Name(), req.Method, "transport_error", started)
	return nil, err
}

// State returns the breaker state name
func (c *HTTPClient) State() string {
	return c.breaker.State().String()
}

// Name returns the name of the circuit breaker
func (c *HTTPClient) Name() string {
	return c.breaker.Name()
}

// IsCircuitOpen checks if the error is due to an open circuit
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
