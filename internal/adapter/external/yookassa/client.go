package yookassa

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/tochka-pay/internal/infrastructure/circuitbreaker"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

// Options configures the YooKassa API client
type Options struct {
	ShopID    string
	SecretKey string
	BaseURL   string
}

// Client is a YooKassa v3 REST client
type Client struct {
	http      circuitbreaker.Doer
	baseURL   string
	shopID    string
	secretKey string
	log       *zap.Logger
}

// NewClient creates a new YooKassa API client
func NewClient(opts Options, doer circuitbreaker.Doer, log *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:      doer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		shopID:    opts.ShopID,
		secretKey: opts.SecretKey,
		log:       log,
	}
}

// CreatePayment creates a payment. An empty idempotence key is replaced by a random one.
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest, idempotenceKey string) (*Payment, error) {
	var p Payment
	if err := c.doRequest(ctx, http.MethodPost, "/payments", idempotenceKey, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayment fetches a payment by id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.doRequest(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CapturePayment confirms a waiting_for_capture payment
func (c *Client) CapturePayment(ctx context.Context, paymentID string, req *CapturePaymentRequest, idempotenceKey string) (*Payment, error) {
	var p Payment
	path := fmt.Sprintf("/payments/%s/capture", url.PathEscape(paymentID))
	if err := c.doRequest(ctx, http.MethodPost, path, idempotenceKey, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CancelPayment cancels a payment that is not captured yet
func (c *Client) CancelPayment(ctx context.Context, paymentID, idempotenceKey string) (*Payment, error) {
	var p Payment
	path := fmt.Sprintf("/payments/%s/cancel", url.PathEscape(paymentID))
	if err := c.doRequest(ctx, http.MethodPost, path, idempotenceKey, struct{}{}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateRefund(ctx context.Context, req *CreateRefundRequest, idempotenceKey string) (*Refund, error) {
	var r Refund
	if err := c.doRequest(ctx, http.MethodPost, "/refunds", idempotenceKey, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GetRefund(ctx context.Context, refundID string) (*Refund, error) {
	var r Refund
	if err := c.doRequest(ctx, http.MethodGet, "/refunds/"+url.PathEscape(refundID), "", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// doRequest performs an HTTP request to the YooKassa API. POST requests
// always carry an Idempotence-Key.
func (c *Client) doRequest(ctx context.Context, method, path, idempotenceKey string, body, out interface{}) error {
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

	req.SetBasicAuth(c.shopID, c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		if idempotenceKey == "" {
			idempotenceKey = uuid.NewString()
		}
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

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
			apiErr.Description = strings.TrimSpace(string(respBody))
		}
		c.log.Debug("YooKassa API error",
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

// APIError is an error object returned by YooKassa
type APIError struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("yookassa api error (%d): %s %s", e.StatusCode, e.Code, e.Description)
	if e.Parameter != "" {
		msg += " (parameter " + e.Parameter + ")"
	}
	return msg
}

// IsNotFound reports whether err is a YooKassa not_found response
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "not_found"
}
