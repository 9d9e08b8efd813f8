package payment

import (
	"errors"
	"fmt"

	"github.com/seu-repo/tochka-pay/internal/adapter/external/tochka"
	"github.com/seu-repo/tochka-pay/internal/adapter/external/yookassa"
)

var (
	ErrMissingPaymentID    = errors.New("no payment ID provided")
	ErrNoCart              = errors.New("no cart provided")
	ErrCustomerCodeUnknown = errors.New("customer code is undefined")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrUnknownProvider     = errors.New("payment provider not configured")
)

// ProviderError is returned by every lifecycle operation that fails
type ProviderError struct {
	Op          string
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("an error occurred in %s: %d %s - %s", e.Op, e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("an error occurred in %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// buildError attaches the operation name and, for gateway responses, the
// HTTP status, error code and description.
func buildError(op string, err error) error {
	pe := &ProviderError{Op: op, Err: err}

	var tErr *tochka.APIError
	var yErr *yookassa.APIError
	switch {
	case errors.As(err, &tErr):
		pe.StatusCode = tErr.StatusCode
		pe.Code = tErr.Code
		pe.Description = tErr.Description()
	case errors.As(err, &yErr):
		pe.StatusCode = yErr.StatusCode
		pe.Code = yErr.Code
		pe.Description = yErr.Description
	}
	return pe
}
