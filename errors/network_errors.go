package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/jsonx"
	"github.com/mezonai/starledger/ledger"
	"github.com/mezonai/starledger/ratelimit"
	"github.com/mezonai/starledger/service"
	"github.com/mezonai/starledger/store"
)

// NetworkErrorCode represents standardized error codes for network operations
type NetworkErrorCode string

const (
	// General errors
	ErrCodeInternal NetworkErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest NetworkErrorCode = "invalid_request"
	ErrCodeInvalidBody    NetworkErrorCode = "invalid_body"

	// Business logic errors
	ErrCodeNotFound     NetworkErrorCode = "not_found"
	ErrCodeUnauthorized NetworkErrorCode = "unauthorized"
	ErrCodeChainLink    NetworkErrorCode = "chain_link"

	// System errors
	ErrCodeStore       NetworkErrorCode = "store_error"
	ErrCodeTimeout     NetworkErrorCode = "timeout"
	ErrCodeRateLimited NetworkErrorCode = "rate_limited"
)

// NetworkError represents a standardized network error
type NetworkError struct {
	Code    NetworkErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	err, _ := jsonx.Marshal(NetworkError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest      = "Request format is invalid"
	ErrMsgInvalidBody         = "Block body is invalid"
	ErrMsgBlockNotFound       = "Block could not be found"
	ErrMsgUnauthorized        = "No verified validation request for this address, please request validation and sign the message"
	ErrMsgChainLink           = "Block could not be linked to the chain tip, please retry"
	ErrMsgStore               = "Storage is unavailable, please try again"
	ErrMsgTimeout             = "Storage did not answer in time, please try again"
	ErrMsgInternal            = "Server error, please try again"
	ErrMsgRateLimited         = "Too many requests, please slow down"
	ErrMsgRequestBodyTooLarge = "Request body exceeds maximum allowed size (%d bytes)"
)

// NewError creates a new NetworkError and returns it as error interface
func NewError(code NetworkErrorCode, message string) error {
	return &NetworkError{
		Code:    code,
		Message: message,
	}
}

// FromError maps a core error onto the client-facing error it should be reported as.
func FromError(err error) *NetworkError {
	var ne *NetworkError
	var rle *ratelimit.RateLimitError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &ne):
		return ne
	case stderrors.As(err, &rle):
		return &NetworkError{Code: ErrCodeRateLimited, Message: ErrMsgRateLimited}
	case stderrors.Is(err, ledger.ErrNotFound), stderrors.Is(err, store.ErrNotFound):
		return &NetworkError{Code: ErrCodeNotFound, Message: ErrMsgBlockNotFound}
	case stderrors.Is(err, service.ErrUnauthorized):
		return &NetworkError{Code: ErrCodeUnauthorized, Message: ErrMsgUnauthorized}
	case stderrors.Is(err, block.ErrInvalidBody):
		return &NetworkError{Code: ErrCodeInvalidBody, Message: err.Error()}
	case stderrors.Is(err, service.ErrInvalidRequest):
		return &NetworkError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	case stderrors.Is(err, ledger.ErrChainLink):
		return &NetworkError{Code: ErrCodeChainLink, Message: ErrMsgChainLink}
	case stderrors.Is(err, context.DeadlineExceeded):
		return &NetworkError{Code: ErrCodeTimeout, Message: ErrMsgTimeout}
	case stderrors.Is(err, store.ErrStore):
		return &NetworkError{Code: ErrCodeStore, Message: ErrMsgStore}
	default:
		return &NetworkError{Code: ErrCodeInternal, Message: ErrMsgInternal}
	}
}

// HTTPStatus is the status code the REST surface answers with for code.
func HTTPStatus(code NetworkErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidBody:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeChainLink:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
