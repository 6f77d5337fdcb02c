package application

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient    ErrorCategory = "TRANSIENT"
	CategoryPermanent    ErrorCategory = "PERMANENT"
	CategoryBusinessRule ErrorCategory = "BUSINESS_RULE"
	CategoryClientError  ErrorCategory = "CLIENT_ERROR"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrMissionTerminal) ||
		errors.Is(err, domain.ErrAlreadyTransferred) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidDeposit) {
		return CategoryBusinessRule
	}

	if errors.Is(err, ErrMissionNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrTransferNotFound) {
		return CategoryClientError
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeForbidden:
			return CategoryClientError
		case ErrCodeMandateNotActive, ErrCodePayoutAccountMissing:
			return CategoryPermanent
		case ErrCodeCaptureState, ErrCodeInvalidTransition:
			return CategoryBusinessRule
		case ErrCodeGatewayRejected:
			return CategoryTransient
		}
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.StatusCode >= 500 {
			return CategoryTransient
		}
		switch gwErr.Code {
		case "mandate_inactive", "mandate_revoked", "account_missing",
			"payouts_disabled", "insufficient_funds", "debit_declined":
			return CategoryPermanent
		case "intent_not_found", "charge_not_found", "not_found":
			return CategoryClientError
		case "rate_limited", "internal_error":
			return CategoryTransient
		default:
			return CategoryPermanent
		}
	}

	// Safe fallback: unknown failures are retried.
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	return CategorizeError(err) == CategoryTransient
}

// ToHTTPStatus maps an error to the HTTP status the REST layer renders.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrMissionTerminal),
		errors.Is(err, domain.ErrAlreadyTransferred):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrMissingRequiredDate):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissionNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	if gwErr, ok := IsGatewayError(err); ok {
		if gwErr.StatusCode >= 500 {
			return http.StatusBadGateway
		}
		return gwErr.StatusCode
	}

	return http.StatusInternalServerError
}

// ToErrorCode maps an error to a stable API code.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return ErrCodeInvalidTransition
	case errors.Is(err, domain.ErrMissionTerminal):
		return ErrCodeInvalidTransition
	case errors.Is(err, domain.ErrAlreadyTransferred):
		return "ALREADY_TRANSFERRED"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, domain.ErrInvalidDeposit):
		return "INVALID_DEPOSIT"
	case errors.Is(err, ErrMissionNotFound):
		return ErrCodeMissionNotFound
	case errors.Is(err, ErrPaymentNotFound):
		return ErrCodePaymentNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	}

	if gwErr, ok := IsGatewayError(err); ok {
		return strings.ToUpper(gwErr.Code)
	}

	return ErrCodeInternal
}
