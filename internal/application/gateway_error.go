package application

import (
	"errors"
	"fmt"
)

// GatewayError is a typed failure returned by the payment gateway API.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsCaptureState reports whether the gateway rejected the call because the
// intent is not in the required state for capture or cancellation.
func (e *GatewayError) IsCaptureState() bool {
	switch e.Code {
	case "intent_not_capturable", "intent_already_captured", "intent_already_cancelled", "invalid_state":
		return true
	}
	return false
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}
