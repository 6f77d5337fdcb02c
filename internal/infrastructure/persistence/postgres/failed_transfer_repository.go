package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const failedTransferColumns = `
	id, payment_id, mission_id, payee_handle,
	amount_cents, currency, commission_rate_bps,
	error_code, error_message,
	retry_count, max_retries, status,
	created_at, last_attempt_at`

type FailedTransferRepository struct {
	q persistence.Executor
}

func NewFailedTransferRepository(db *pgxpool.Pool) *FailedTransferRepository {
	return &FailedTransferRepository{q: db}
}

func (r *FailedTransferRepository) Create(ctx context.Context, ft *domain.FailedTransfer) error {
	query := `
		INSERT INTO failed_transfers (` + failedTransferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	m := failedTransferToDBModel(ft)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.PaymentID, m.MissionID, m.PayeeHandle,
		m.AmountCents, m.Currency, m.CommissionRateBps,
		m.ErrorCode, m.ErrorMessage,
		m.RetryCount, m.MaxRetries, m.Status,
		m.CreatedAt, m.LastAttemptAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create failed transfer record: %w", err)
	}
	return nil
}

func (r *FailedTransferRepository) FindByID(ctx context.Context, id string) (*domain.FailedTransfer, error) {
	query := `SELECT ` + failedTransferColumns + ` FROM failed_transfers WHERE id = $1`
	row := r.q.QueryRow(ctx, query, id)
	return scanFailedTransfer(row)
}

// FindRetryable returns records the periodic driver may pick up, oldest first.
func (r *FailedTransferRepository) FindRetryable(ctx context.Context, limit int) ([]*domain.FailedTransfer, error) {
	query := `
		SELECT ` + failedTransferColumns + `
		FROM failed_transfers
		WHERE status IN ($1, $2) AND retry_count < max_retries
		ORDER BY created_at ASC
		LIMIT $3
	`
	return r.queryFailedTransfers(ctx, query,
		string(domain.TransferRetryPending),
		string(domain.TransferRetrying),
		limit,
	)
}

// FindEscalated returns permanently failed records awaiting an operator.
func (r *FailedTransferRepository) FindEscalated(ctx context.Context, limit int) ([]*domain.FailedTransfer, error) {
	query := `
		SELECT ` + failedTransferColumns + `
		FROM failed_transfers
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.queryFailedTransfers(ctx, query, string(domain.TransferFailedPermanently), limit)
}

func (r *FailedTransferRepository) Update(ctx context.Context, ft *domain.FailedTransfer) error {
	query := `
		UPDATE failed_transfers
		SET error_code = $1, error_message = $2,
		    retry_count = $3, status = $4, last_attempt_at = $5
		WHERE id = $6
	`

	m := failedTransferToDBModel(ft)
	result, err := r.q.Exec(ctx, query,
		m.ErrorCode, m.ErrorMessage,
		m.RetryCount, m.Status, m.LastAttemptAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update failed transfer record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return application.ErrTransferNotFound
	}
	return nil
}

func (r *FailedTransferRepository) queryFailedTransfers(ctx context.Context, query string, args ...any) ([]*domain.FailedTransfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed transfers: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.FailedTransfer, error) {
		var m FailedTransferModel
		err := row.Scan(
			&m.ID, &m.PaymentID, &m.MissionID, &m.PayeeHandle,
			&m.AmountCents, &m.Currency, &m.CommissionRateBps,
			&m.ErrorCode, &m.ErrorMessage,
			&m.RetryCount, &m.MaxRetries, &m.Status,
			&m.CreatedAt, &m.LastAttemptAt,
		)
		return failedTransferToDomain(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed transfers: %w", err)
	}
	return results, nil
}

func scanFailedTransfer(row pgx.Row) (*domain.FailedTransfer, error) {
	var m FailedTransferModel
	err := row.Scan(
		&m.ID, &m.PaymentID, &m.MissionID, &m.PayeeHandle,
		&m.AmountCents, &m.Currency, &m.CommissionRateBps,
		&m.ErrorCode, &m.ErrorMessage,
		&m.RetryCount, &m.MaxRetries, &m.Status,
		&m.CreatedAt, &m.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to scan failed transfer: %w", err)
	}
	return failedTransferToDomain(m), nil
}
