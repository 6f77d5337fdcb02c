package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

func TestCategorizeError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrorCategory("")},
		{"context deadline", context.DeadlineExceeded, CategoryTransient},
		{"invalid transition", fmt.Errorf("advance: %w", domain.ErrInvalidTransition), CategoryBusinessRule},
		{"already transferred", domain.ErrAlreadyTransferred, CategoryBusinessRule},
		{"mission not found", ErrMissionNotFound, CategoryClientError},
		{"forbidden service error", NewForbiddenError("payer-1", "advance"), CategoryClientError},
		{"mandate revoked service error", NewMandateNotActiveError("payer-1"), CategoryPermanent},
		{"gateway 503", &GatewayError{Code: "internal_error", StatusCode: 503}, CategoryTransient},
		{"gateway declined", &GatewayError{Code: "debit_declined", StatusCode: 402}, CategoryPermanent},
		{"gateway rate limited", &GatewayError{Code: "rate_limited", StatusCode: 429}, CategoryTransient},
		{"unknown error", errors.New("connection reset"), CategoryTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CategorizeError(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&GatewayError{Code: "internal_error", StatusCode: 500}))
	assert.True(t, IsRetryable(errors.New("i/o timeout")))
	assert.False(t, IsRetryable(&GatewayError{Code: "insufficient_funds", StatusCode: 402}))
	assert.False(t, IsRetryable(domain.ErrInvalidTransition))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(domain.ErrAlreadyTransferred))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(domain.ErrInvalidAmount))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(fmt.Errorf("load: %w", ErrMissionNotFound)))
	assert.Equal(t, http.StatusRequestTimeout, ToHTTPStatus(context.Canceled))
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(&GatewayError{Code: "internal_error", StatusCode: 500}))
	assert.Equal(t, http.StatusUnprocessableEntity, ToHTTPStatus(NewMandateNotActiveError("payer-1")))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("boom")))
}

func TestToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidTransition, ToErrorCode(domain.ErrMissionTerminal))
	assert.Equal(t, "ALREADY_TRANSFERRED", ToErrorCode(domain.ErrAlreadyTransferred))
	assert.Equal(t, ErrCodeMissionNotFound, ToErrorCode(ErrMissionNotFound))
	assert.Equal(t, "TIMEOUT", ToErrorCode(context.DeadlineExceeded))
	assert.Equal(t, "DEBIT_DECLINED", ToErrorCode(&GatewayError{Code: "debit_declined", StatusCode: 402}))
	assert.Equal(t, ErrCodeInternal, ToErrorCode(errors.New("boom")))
}
