package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is the orchestration-level error envelope surfaced to
// transport layers.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeAlreadyProcessed     = "ALREADY_PROCESSED"
	ErrCodeMandateNotActive     = "MANDATE_NOT_ACTIVE"
	ErrCodePayoutAccountMissing = "PAYOUT_ACCOUNT_MISSING"
	ErrCodeGatewayRejected      = "GATEWAY_REJECTED"
	ErrCodeCaptureState         = "CAPTURE_STATE"
	ErrCodeMissionNotFound      = "MISSION_NOT_FOUND"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

func NewInvalidTransitionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidTransition,
		Message:    "Requested status transition is not allowed",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewAlreadyProcessedError is the idempotency short-circuit. Handlers
// render it as success-with-flag rather than a failure.
func NewAlreadyProcessedError(missionID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAlreadyProcessed,
		Message:    fmt.Sprintf("mission %s payment already processed", missionID),
		HTTPStatus: http.StatusOK,
	}
}

func NewMandateNotActiveError(payerHandle string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMandateNotActive,
		Message:    fmt.Sprintf("payer %s has no active debit mandate", payerHandle),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NewPayoutAccountMissingError(payeeHandle string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePayoutAccountMissing,
		Message:    fmt.Sprintf("payee %s has no payout-enabled connected account", payeeHandle),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NewGatewayRejectedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayRejected,
		Message:    "Payment gateway rejected the operation",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewCaptureStateError covers capturing or cancelling an intent that is
// not in a capturable gateway-side state. Fatal to the single operation,
// never retried automatically.
func NewCaptureStateError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCaptureState,
		Message:    "Gateway intent is not in the required state",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewMissionNotFoundError(missionID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissionNotFound,
		Message:    fmt.Sprintf("mission %s not found", missionID),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewForbiddenError(actor, action string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeForbidden,
		Message:    fmt.Sprintf("%s may not %s", actor, action),
		HTTPStatus: http.StatusForbidden,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// IsAlreadyProcessed reports whether err is the idempotency short-circuit.
func IsAlreadyProcessed(err error) bool {
	svcErr, ok := IsServiceError(err)
	return ok && svcErr.Code == ErrCodeAlreadyProcessed
}
