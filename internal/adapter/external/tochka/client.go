package tochka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/infrastructure/circuitbreaker"
)

const (
	productionURL     = "https://enter.tochka.com/uapi"
	sandboxURL        = "https://enter.tochka.com/sandbox/v2"
	DefaultAPIVersion = "v1.0"
)

// Options configures the Tochka API client
type Options struct {
	JWTToken    string
	ClientID    string
	APIVersion  string
	Development bool
	// BaseURL overrides the production/sandbox URL
	BaseURL string
}

// Client talks to the Tochka acquiring and open-banking APIs
type Client struct {
	http       circuitbreaker.Doer
	baseURL    string
	apiVersion string
	token      string
	clientID   string
	log        *zap.Logger
}

// NewClient creates a new Tochka API client
func NewClient(opts Options, doer circuitbreaker.Doer, log *zap.Logger) *Client {
	baseURL := productionURL
	if opts.Development {
		baseURL = sandboxURL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	return &Client{
		http:       doer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		token:      opts.JWTToken,
		clientID:   opts.ClientID,
		log:        log,
	}
}

// APIVersion returns the API version used in request paths
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// BaseURL returns the API root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreatePayment creates an acquiring payment operation
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentOperation, error) {
	var out envelope[PaymentOperation]
	path := fmt.Sprintf("/acquiring/%s/payments", c.apiVersion)
	if err := c.doRequest(ctx, http.MethodPost, path, envelope[*CreatePaymentRequest]{Data: req}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreatePaymentWithReceipt creates an acquiring payment operation with a fiscal receipt
func (c *Client) CreatePaymentWithReceipt(ctx context.Context, req *CreatePaymentRequest) (*PaymentOperation, error) {
	var out envelope[PaymentOperation]
	path := fmt.Sprintf("/acquiring/%s/payments_with_receipt", c.apiVersion)
	if err := c.doRequest(ctx, http.MethodPost, path, envelope[*CreatePaymentRequest]{Data: req}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// GetPaymentOperation returns the operations known under operationID. An
// unknown id yields either an empty slice or an APIError with IsNotFound.
func (c *Client) GetPaymentOperation(ctx context.Context, operationID string) ([]PaymentOperation, error) {
	var out envelope[operationList]
	path := fmt.Sprintf("/acquiring/%s/payments/%s", c.apiVersion, url.PathEscape(operationID))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Operation, nil
}

// CapturePayment captures a pre-authorized payment
func (c *Client) CapturePayment(ctx context.Context, operationID string) (map[string]any, error) {
	var out envelope[map[string]any]
	path := fmt.Sprintf("/acquiring/%s/payments/%s/capture", c.apiVersion, url.PathEscape(operationID))
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// RefundPayment refunds amount of a captured payment
func (c *Client) RefundPayment(ctx context.Context, operationID string, amount float64) (map[string]any, error) {
	var out envelope[map[string]any]
	path := fmt.Sprintf("/acquiring/%s/payments/%s/refund", c.apiVersion, url.PathEscape(operationID))
	body := envelope[refundRequest]{Data: refundRequest{Amount: amount}}
	if err := c.doRequest(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListCustomers returns the customers available to the token
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out envelope[customerList]
	path := fmt.Sprintf("/open-banking/%s/customers", c.apiVersion)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Customer, nil
}

// doRequest performs an HTTP request to the Tochka API
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		c.log.Debug("Tochka API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// APIError is an error response of the Tochka API
type APIError struct {
	StatusCode int           `json:"-"`
	Code       string        `json:"code"`
	ID         string        `json:"id"`
	Message    string        `json:"message"`
	Errors     []ErrorDetail `json:"Errors"`
}

type ErrorDetail struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	URL       string `json:"url"`
}

// Description returns the most specific message the API gave
func (e *APIError) Description() string {
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return e.Errors[0].Message
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tochka api error (%d): %s %s", e.StatusCode, e.Code, e.Description())
}

// IsNotFound reports whether err is a Tochka "not found" response
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "404"
}
