package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `
	id, mission_id, type, amount_cents, currency,
	scheduled_date, installment_number, month_number,
	status,
	intent_id, charge_id, transfer_id, refund_id,
	routed_at_debit, hold_until, failure_reason,
	created_at, captured_at, transferred_at`

type PaymentRepository struct {
	q persistence.Executor
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{q: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.MissionPayment) error {
	query := `
		INSERT INTO mission_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	p := paymentToDBModel(payment)
	_, err := r.q.Exec(ctx, query,
		p.ID, p.MissionID, p.Type, p.AmountCents, p.Currency,
		p.ScheduledDate, p.InstallmentNumber, p.MonthNumber,
		p.Status,
		p.IntentID, p.ChargeID, p.TransferID, p.RefundID,
		p.RoutedAtDebit, p.HoldUntil, p.FailureReason,
		p.CreatedAt, p.CapturedAt, p.TransferredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mission payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.MissionPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM mission_payments WHERE id = $1`
	row := r.q.QueryRow(ctx, query, id)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByMissionID(ctx context.Context, missionID string) ([]*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE mission_id = $1
		ORDER BY created_at ASC, scheduled_date ASC NULLS FIRST
	`
	return r.queryPayments(ctx, query, missionID)
}

func (r *PaymentRepository) FindByMissionAndType(ctx context.Context, missionID string, typ domain.PaymentType) (*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE mission_id = $1 AND type = $2
		ORDER BY created_at ASC
		LIMIT 1
	`
	row := r.q.QueryRow(ctx, query, missionID, string(typ))
	return scanPayment(row)
}

// FindHeldDeposit returns the deposit currently held in escrow for the
// mission, or ErrNoHeldDeposit.
func (r *PaymentRepository) FindHeldDeposit(ctx context.Context, missionID string) (*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE mission_id = $1 AND type = $2 AND status = $3
		LIMIT 1
	`
	row := r.q.QueryRow(ctx, query, missionID, string(domain.PaymentTypeDeposit), string(domain.PaymentCapturedHeld))
	p, err := scanPayment(row)
	if errors.Is(err, application.ErrPaymentNotFound) {
		return nil, application.ErrNoHeldDeposit
	}
	return p, err
}

// FindPendingScheduled returns the mission's planner-created payments that
// were never promoted to the gateway.
func (r *PaymentRepository) FindPendingScheduled(ctx context.Context, missionID string) ([]*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE mission_id = $1
		  AND status = $2
		  AND type IN ($3, $4, $5)
		ORDER BY scheduled_date ASC
	`
	return r.queryPayments(ctx, query, missionID,
		string(domain.PaymentPending),
		string(domain.PaymentTypeMonthly),
		string(domain.PaymentTypeInstallment),
		string(domain.PaymentTypeFinal),
	)
}

// FindDue returns authorized payments whose scheduled date has passed.
func (r *PaymentRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE status = $1 AND scheduled_date IS NOT NULL AND scheduled_date <= $2
		ORDER BY scheduled_date ASC
		LIMIT $3
	`
	return r.queryPayments(ctx, query, string(domain.PaymentAuthorized), now, limit)
}

// FindProcessing returns payments whose debit is still in flight.
func (r *PaymentRepository) FindProcessing(ctx context.Context, limit int) ([]*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE status = $1 AND intent_id IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.queryPayments(ctx, query, string(domain.PaymentProcessing), limit)
}

// FindExpiredHolds returns held deposits whose hold boundary has passed.
func (r *PaymentRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM mission_payments
		WHERE status = $1 AND hold_until IS NOT NULL AND hold_until <= $2
		ORDER BY hold_until ASC
		LIMIT $3
	`
	return r.queryPayments(ctx, query, string(domain.PaymentCapturedHeld), now, limit)
}

func (r *PaymentRepository) Update(ctx context.Context, payment *domain.MissionPayment) error {
	query := `
		UPDATE mission_payments
		SET status = $1,
		    intent_id = $2, charge_id = $3, transfer_id = $4, refund_id = $5,
		    routed_at_debit = $6, hold_until = $7, failure_reason = $8,
		    scheduled_date = $9, captured_at = $10, transferred_at = $11
		WHERE id = $12
	`

	p := paymentToDBModel(payment)
	result, err := r.q.Exec(ctx, query,
		p.Status,
		p.IntentID, p.ChargeID, p.TransferID, p.RefundID,
		p.RoutedAtDebit, p.HoldUntil, p.FailureReason,
		p.ScheduledDate, p.CapturedAt, p.TransferredAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mission payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return application.ErrPaymentNotFound
	}
	return nil
}

// UpdateFromStatus is a compare-and-swap on the payment status: the write
// only lands if the stored row still carries the expected status, so two
// workers racing on the same payment cannot both move it.
func (r *PaymentRepository) UpdateFromStatus(ctx context.Context, payment *domain.MissionPayment, expected domain.PaymentStatus) (bool, error) {
	query := `
		UPDATE mission_payments
		SET status = $1,
		    intent_id = $2, charge_id = $3, transfer_id = $4, refund_id = $5,
		    routed_at_debit = $6, hold_until = $7, failure_reason = $8,
		    scheduled_date = $9, captured_at = $10, transferred_at = $11
		WHERE id = $12 AND status = $13
	`

	p := paymentToDBModel(payment)
	result, err := r.q.Exec(ctx, query,
		p.Status,
		p.IntentID, p.ChargeID, p.TransferID, p.RefundID,
		p.RoutedAtDebit, p.HoldUntil, p.FailureReason,
		p.ScheduledDate, p.CapturedAt, p.TransferredAt,
		p.ID, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update mission payment: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]*domain.MissionPayment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mission payments: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.MissionPayment, error) {
		var m PaymentModel
		err := row.Scan(
			&m.ID, &m.MissionID, &m.Type, &m.AmountCents, &m.Currency,
			&m.ScheduledDate, &m.InstallmentNumber, &m.MonthNumber,
			&m.Status,
			&m.IntentID, &m.ChargeID, &m.TransferID, &m.RefundID,
			&m.RoutedAtDebit, &m.HoldUntil, &m.FailureReason,
			&m.CreatedAt, &m.CapturedAt, &m.TransferredAt,
		)
		return paymentToDomain(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan mission payments: %w", err)
	}
	return results, nil
}

func scanPayment(row pgx.Row) (*domain.MissionPayment, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.MissionID, &m.Type, &m.AmountCents, &m.Currency,
		&m.ScheduledDate, &m.InstallmentNumber, &m.MonthNumber,
		&m.Status,
		&m.IntentID, &m.ChargeID, &m.TransferID, &m.RefundID,
		&m.RoutedAtDebit, &m.HoldUntil, &m.FailureReason,
		&m.CreatedAt, &m.CapturedAt, &m.TransferredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan mission payment: %w", err)
	}
	return paymentToDomain(m), nil
}
