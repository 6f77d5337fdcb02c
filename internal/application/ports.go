package application

import (
	"context"
	"errors"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// Repository sentinels shared by the postgres implementations and mocks.
var (
	ErrMissionNotFound  = errors.New("mission not found")
	ErrMissionExists    = errors.New("mission already exists")
	ErrPaymentNotFound  = errors.New("mission payment not found")
	ErrNoHeldDeposit    = errors.New("no held deposit for mission")
	ErrTransferNotFound = errors.New("failed transfer record not found")
)

// IntentStatus is the gateway-side status of a debit intent.
type IntentStatus string

const (
	IntentSucceeded      IntentStatus = "succeeded"
	IntentProcessing     IntentStatus = "processing"
	IntentRequiresAction IntentStatus = "requires_action"
	IntentCancelled      IntentStatus = "cancelled"
)

// MandateStatus is the payer's standing debit authorization state.
type MandateStatus string

const (
	MandateActive   MandateStatus = "active"
	MandatePending  MandateStatus = "pending"
	MandateInactive MandateStatus = "inactive"
	MandateNone     MandateStatus = "none"
)

// DebitRouting carries fee-splitting instructions: the application fee is
// retained by the platform, the remainder is routed to the destination
// connected account.
type DebitRouting struct {
	DestinationAccount  string `json:"destination_account"`
	ApplicationFeeCents int64  `json:"application_fee_cents"`
}

type DebitRequest struct {
	PayerHandle string        `json:"payer_handle"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	MandateRef  string        `json:"mandate_ref"`
	OnSession   bool          `json:"on_session"`
	Routing     *DebitRouting `json:"routing,omitempty"`
	Description string        `json:"description,omitempty"`
}

type DebitResponse struct {
	ID        string       `json:"id"`
	Status    IntentStatus `json:"status"`
	ChargeID  string       `json:"charge_id"`
	CreatedAt time.Time    `json:"created_at"`
}

type TransferRequest struct {
	DestinationAccount string `json:"destination_account"`
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	SourceChargeRef    string `json:"source_charge_ref"`
	Description        string `json:"description,omitempty"`
}

type TransferResponse struct {
	ID        string       `json:"id"`
	Status    IntentStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type RefundRequest struct {
	DebitID     string `json:"debit_id"`
	AmountCents int64  `json:"amount_cents"`
}

type RefundResponse struct {
	ID     string       `json:"id"`
	Status IntentStatus `json:"status"`
}

type AccountStatus struct {
	ChargesEnabled bool     `json:"charges_enabled"`
	PayoutsEnabled bool     `json:"payouts_enabled"`
	Requirements   []string `json:"requirements"`
}

// GatewayClient is the port for the external payment gateway.
type GatewayClient interface {
	CreateDebit(ctx context.Context, req DebitRequest, idempotencyKey string) (*DebitResponse, error)
	CaptureDebit(ctx context.Context, intentID string) (*DebitResponse, error)
	CancelDebit(ctx context.Context, intentID string) (*DebitResponse, error)
	RetrieveDebit(ctx context.Context, intentID string) (*DebitResponse, error)
	CreateTransfer(ctx context.Context, req TransferRequest, idempotencyKey string) (*TransferResponse, error)
	RetrieveMandateStatus(ctx context.Context, payerHandle string) (MandateStatus, error)
	RetrieveAccountStatus(ctx context.Context, payeeHandle string) (*AccountStatus, error)
	Refund(ctx context.Context, req RefundRequest, idempotencyKey string) (*RefundResponse, error)
}

// MissionRepository is the port for the mission side of the ledger store.
type MissionRepository interface {
	Create(ctx context.Context, m *domain.Mission) error
	FindByID(ctx context.Context, id string) (*domain.Mission, error)

	// FindByIDForUpdate takes a row-level lock on the mission. Only
	// meaningful when the repository is bound to a transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Mission, error)
	Update(ctx context.Context, m *domain.Mission) error

	// ClaimPendingConfirmation atomically flips the payment state from
	// pending_confirmation to processing. Returns false when another
	// caller already claimed it; the single conditional write is what
	// makes concurrent confirmation attempts safe.
	ClaimPendingConfirmation(ctx context.Context, id string) (bool, error)
}

// PaymentRepository is the port for the payment side of the ledger store.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.MissionPayment) error
	FindByID(ctx context.Context, id string) (*domain.MissionPayment, error)
	FindByMissionID(ctx context.Context, missionID string) ([]*domain.MissionPayment, error)
	FindByMissionAndType(ctx context.Context, missionID string, typ domain.PaymentType) (*domain.MissionPayment, error)
	FindHeldDeposit(ctx context.Context, missionID string) (*domain.MissionPayment, error)
	FindPendingScheduled(ctx context.Context, missionID string) ([]*domain.MissionPayment, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error)
	FindProcessing(ctx context.Context, limit int) ([]*domain.MissionPayment, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error)
	Update(ctx context.Context, p *domain.MissionPayment) error

	// UpdateFromStatus persists p only if the stored row still carries
	// expected. Returns false when a concurrent writer got there first.
	UpdateFromStatus(ctx context.Context, p *domain.MissionPayment, expected domain.PaymentStatus) (bool, error)
}

// FailedTransferRepository is the durable queue behind the retry subsystem.
type FailedTransferRepository interface {
	Create(ctx context.Context, f *domain.FailedTransfer) error
	FindByID(ctx context.Context, id string) (*domain.FailedTransfer, error)
	FindRetryable(ctx context.Context, limit int) ([]*domain.FailedTransfer, error)
	FindEscalated(ctx context.Context, limit int) ([]*domain.FailedTransfer, error)
	Update(ctx context.Context, f *domain.FailedTransfer) error
}

// TxCoordinator runs a function against mission and payment repositories
// bound to a single database transaction.
type TxCoordinator interface {
	WithTransaction(ctx context.Context, fn func(missions MissionRepository, payments PaymentRepository) error) error
}

// EventPublisher emits payment lifecycle events for downstream consumers
// (notifications, invoicing). Publishing failures never abort orchestration.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
