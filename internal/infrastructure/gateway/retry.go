package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
)

// RetryGatewayClient decorates a GatewayClient with bounded retries and
// exponential backoff for transient failures. Idempotency keys make the
// retried calls safe.
type RetryGatewayClient struct {
	inner      application.GatewayClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.GatewayClient, cfg config.RetryConfig) application.GatewayClient {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGatewayClient) CreateDebit(ctx context.Context, req application.DebitRequest, idempotencyKey string) (*application.DebitResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.DebitResponse, error) {
		return r.inner.CreateDebit(ctx, req, idempotencyKey)
	})
}

func (r *RetryGatewayClient) CaptureDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.DebitResponse, error) {
		return r.inner.CaptureDebit(ctx, intentID)
	})
}

func (r *RetryGatewayClient) CancelDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.DebitResponse, error) {
		return r.inner.CancelDebit(ctx, intentID)
	})
}

func (r *RetryGatewayClient) RetrieveDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.DebitResponse, error) {
		return r.inner.RetrieveDebit(ctx, intentID)
	})
}

func (r *RetryGatewayClient) CreateTransfer(ctx context.Context, req application.TransferRequest, idempotencyKey string) (*application.TransferResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.TransferResponse, error) {
		return r.inner.CreateTransfer(ctx, req, idempotencyKey)
	})
}

func (r *RetryGatewayClient) RetrieveMandateStatus(ctx context.Context, payerHandle string) (application.MandateStatus, error) {
	resp, err := retry(r, ctx, func(ctx context.Context) (*application.MandateStatus, error) {
		status, err := r.inner.RetrieveMandateStatus(ctx, payerHandle)
		if err != nil {
			return nil, err
		}
		return &status, nil
	})
	if err != nil {
		return "", err
	}
	return *resp, nil
}

func (r *RetryGatewayClient) RetrieveAccountStatus(ctx context.Context, payeeHandle string) (*application.AccountStatus, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.AccountStatus, error) {
		return r.inner.RetrieveAccountStatus(ctx, payeeHandle)
	})
}

func (r *RetryGatewayClient) Refund(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.RefundResponse, error) {
		return r.inner.Refund(ctx, req, idempotencyKey)
	})
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if gwErr, ok := application.IsGatewayError(err); ok {
		if gwErr.StatusCode >= 500 {
			return true
		}
		return gwErr.Code == "rate_limited" || gwErr.Code == "internal_error"
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
