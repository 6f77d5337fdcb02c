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

const missionColumns = `
	id, offer_id, payer_id, payee_id,
	final_price_cents, deposit_percentage, deposit_cents, remaining_cents, currency,
	schedule_kind, schedule_payload,
	start_date, end_date,
	payer_billing_handle, payee_payout_handle, last_payment_intent_id,
	status, payment_state,
	confirmed_at, payment_confirmed_at, transfer_scheduled_at,
	cancelled_at, cancel_requested_by, cancel_reason, cancel_refund_id,
	created_at, updated_at`

type MissionRepository struct {
	q persistence.Executor
}

func NewMissionRepository(db *pgxpool.Pool) *MissionRepository {
	return &MissionRepository{q: db}
}

func (r *MissionRepository) Create(ctx context.Context, mission *domain.Mission) error {
	query := `
		INSERT INTO missions (` + missionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`

	m, err := missionToDBModel(mission)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, query,
		m.ID, m.OfferID, m.PayerID, m.PayeeID,
		m.FinalPriceCents, m.DepositPercentage, m.DepositCents, m.RemainingCents, m.Currency,
		m.ScheduleKind, m.SchedulePayload,
		m.StartDate, m.EndDate,
		m.PayerBillingHandle, m.PayeePayoutHandle, m.LastPaymentIntentID,
		m.Status, m.PaymentState,
		m.ConfirmedAt, m.PaymentConfirmedAt, m.TransferScheduledAt,
		m.CancelledAt, m.CancelRequestedBy, m.CancelReason, m.CancelRefundID,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return application.ErrMissionExists
		}
		return fmt.Errorf("failed to create mission: %w", err)
	}
	return nil
}

func (r *MissionRepository) FindByID(ctx context.Context, id string) (*domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1`
	row := r.q.QueryRow(ctx, query, id)
	return scanMission(row)
}

// FindByIDForUpdate retrieves a mission with a row-level lock. Only useful
// inside a transaction.
func (r *MissionRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE id = $1 FOR UPDATE`
	row := r.q.QueryRow(ctx, query, id)
	return scanMission(row)
}

func (r *MissionRepository) Update(ctx context.Context, mission *domain.Mission) error {
	query := `
		UPDATE missions
		SET status = $1, payment_state = $2, last_payment_intent_id = $3,
		    confirmed_at = $4, payment_confirmed_at = $5, transfer_scheduled_at = $6,
		    cancelled_at = $7, cancel_requested_by = $8, cancel_reason = $9, cancel_refund_id = $10,
		    updated_at = NOW()
		WHERE id = $11
	`

	m, err := missionToDBModel(mission)
	if err != nil {
		return err
	}
	result, err := r.q.Exec(ctx, query,
		m.Status, m.PaymentState, m.LastPaymentIntentID,
		m.ConfirmedAt, m.PaymentConfirmedAt, m.TransferScheduledAt,
		m.CancelledAt, m.CancelRequestedBy, m.CancelReason, m.CancelRefundID,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return application.ErrMissionNotFound
	}
	return nil
}

// ClaimPendingConfirmation is the single atomic conditional write guarding
// the day-zero debit: of two concurrent confirmations at most one sees a
// row flip from pending_confirmation to processing.
func (r *MissionRepository) ClaimPendingConfirmation(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE missions
		SET payment_state = $1, updated_at = NOW()
		WHERE id = $2 AND payment_state = $3
	`

	result, err := r.q.Exec(ctx, query,
		string(domain.PaymentStateProcessing),
		id,
		string(domain.PaymentStatePendingConfirmation),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim mission payment: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func scanMission(row pgx.Row) (*domain.Mission, error) {
	var m MissionModel
	err := row.Scan(
		&m.ID, &m.OfferID, &m.PayerID, &m.PayeeID,
		&m.FinalPriceCents, &m.DepositPercentage, &m.DepositCents, &m.RemainingCents, &m.Currency,
		&m.ScheduleKind, &m.SchedulePayload,
		&m.StartDate, &m.EndDate,
		&m.PayerBillingHandle, &m.PayeePayoutHandle, &m.LastPaymentIntentID,
		&m.Status, &m.PaymentState,
		&m.ConfirmedAt, &m.PaymentConfirmedAt, &m.TransferScheduledAt,
		&m.CancelledAt, &m.CancelRequestedBy, &m.CancelReason, &m.CancelRefundID,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to scan mission: %w", err)
	}
	return missionToDomain(m)
}
