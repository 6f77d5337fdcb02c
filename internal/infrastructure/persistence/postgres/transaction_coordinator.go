package postgres

import (
	"context"
	"fmt"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionCoordinator manages transactions across multiple repositories.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(pool *pgxpool.Pool) *TransactionCoordinator {
	return &TransactionCoordinator{pool: pool}
}

// WithTransaction executes a function within a database transaction.
// The function receives repository instances bound to the transaction, so
// either every write lands or none does.
func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(missions application.MissionRepository, payments application.PaymentRepository) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txMissionRepo := &MissionRepository{q: tx}
	txPaymentRepo := &PaymentRepository{q: tx}

	if err := fn(txMissionRepo, txPaymentRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
