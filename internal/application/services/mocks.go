package services

import (
	"context"
	"sync"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// MockMissionRepository
type MockMissionRepository struct {
	mu       sync.RWMutex
	missions map[string]*domain.Mission

	CreateFn                   func(ctx context.Context, m *domain.Mission) error
	FindByIDFn                 func(ctx context.Context, id string) (*domain.Mission, error)
	FindByIDForUpdateFn        func(ctx context.Context, id string) (*domain.Mission, error)
	UpdateFn                   func(ctx context.Context, m *domain.Mission) error
	ClaimPendingConfirmationFn func(ctx context.Context, id string) (bool, error)
}

func NewMockMissionRepository() *MockMissionRepository {
	return &MockMissionRepository{missions: make(map[string]*domain.Mission)}
}

func (r *MockMissionRepository) Create(ctx context.Context, m *domain.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateFn != nil {
		return r.CreateFn(ctx, m)
	}
	r.missions[m.ID] = m
	return nil
}

func (r *MockMissionRepository) FindByID(ctx context.Context, id string) (*domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindByIDFn != nil {
		return r.FindByIDFn(ctx, id)
	}
	m, ok := r.missions[id]
	if !ok {
		return nil, application.ErrMissionNotFound
	}
	return m, nil
}

func (r *MockMissionRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Mission, error) {
	if r.FindByIDForUpdateFn != nil {
		return r.FindByIDForUpdateFn(ctx, id)
	}
	return r.FindByID(ctx, id)
}

func (r *MockMissionRepository) Update(ctx context.Context, m *domain.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateFn != nil {
		return r.UpdateFn(ctx, m)
	}
	if _, ok := r.missions[m.ID]; !ok {
		return application.ErrMissionNotFound
	}
	r.missions[m.ID] = m
	return nil
}

func (r *MockMissionRepository) ClaimPendingConfirmation(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClaimPendingConfirmationFn != nil {
		return r.ClaimPendingConfirmationFn(ctx, id)
	}
	m, ok := r.missions[id]
	if !ok {
		return false, application.ErrMissionNotFound
	}
	if m.PaymentState != domain.PaymentStatePendingConfirmation {
		return false, nil
	}
	m.PaymentState = domain.PaymentStateProcessing
	return true, nil
}

// MockPaymentRepository
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.MissionPayment

	CreateFn               func(ctx context.Context, p *domain.MissionPayment) error
	FindByIDFn             func(ctx context.Context, id string) (*domain.MissionPayment, error)
	FindByMissionIDFn      func(ctx context.Context, missionID string) ([]*domain.MissionPayment, error)
	FindByMissionAndTypeFn func(ctx context.Context, missionID string, typ domain.PaymentType) (*domain.MissionPayment, error)
	FindHeldDepositFn      func(ctx context.Context, missionID string) (*domain.MissionPayment, error)
	FindPendingScheduledFn func(ctx context.Context, missionID string) ([]*domain.MissionPayment, error)
	FindDueFn              func(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error)
	FindProcessingFn       func(ctx context.Context, limit int) ([]*domain.MissionPayment, error)
	FindExpiredHoldsFn     func(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error)
	UpdateFn               func(ctx context.Context, p *domain.MissionPayment) error
	UpdateFromStatusFn     func(ctx context.Context, p *domain.MissionPayment, expected domain.PaymentStatus) (bool, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.MissionPayment)}
}

func (r *MockPaymentRepository) Create(ctx context.Context, p *domain.MissionPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateFn != nil {
		return r.CreateFn(ctx, p)
	}
	r.payments[p.ID] = p
	return nil
}

func (r *MockPaymentRepository) FindByID(ctx context.Context, id string) (*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindByIDFn != nil {
		return r.FindByIDFn(ctx, id)
	}
	p, ok := r.payments[id]
	if !ok {
		return nil, application.ErrPaymentNotFound
	}
	return p, nil
}

func (r *MockPaymentRepository) FindByMissionID(ctx context.Context, missionID string) ([]*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindByMissionIDFn != nil {
		return r.FindByMissionIDFn(ctx, missionID)
	}
	var out []*domain.MissionPayment
	for _, p := range r.payments {
		if p.MissionID == missionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MockPaymentRepository) FindByMissionAndType(ctx context.Context, missionID string, typ domain.PaymentType) (*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindByMissionAndTypeFn != nil {
		return r.FindByMissionAndTypeFn(ctx, missionID, typ)
	}
	for _, p := range r.payments {
		if p.MissionID == missionID && p.Type == typ {
			return p, nil
		}
	}
	return nil, application.ErrPaymentNotFound
}

func (r *MockPaymentRepository) FindHeldDeposit(ctx context.Context, missionID string) (*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindHeldDepositFn != nil {
		return r.FindHeldDepositFn(ctx, missionID)
	}
	for _, p := range r.payments {
		if p.MissionID == missionID && p.Type == domain.PaymentTypeDeposit && p.Status == domain.PaymentCapturedHeld {
			return p, nil
		}
	}
	return nil, application.ErrNoHeldDeposit
}

func (r *MockPaymentRepository) FindPendingScheduled(ctx context.Context, missionID string) ([]*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindPendingScheduledFn != nil {
		return r.FindPendingScheduledFn(ctx, missionID)
	}
	var out []*domain.MissionPayment
	for _, p := range r.payments {
		if p.MissionID != missionID || p.Status != domain.PaymentPending {
			continue
		}
		switch p.Type {
		case domain.PaymentTypeMonthly, domain.PaymentTypeInstallment, domain.PaymentTypeFinal:
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MockPaymentRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindDueFn != nil {
		return r.FindDueFn(ctx, now, limit)
	}
	var out []*domain.MissionPayment
	for _, p := range r.payments {
		if p.Status == domain.PaymentAuthorized && p.ScheduledDate != nil && !p.ScheduledDate.After(now) {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockPaymentRepository) FindProcessing(ctx context.Context, limit int) ([]*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindProcessingFn != nil {
		return r.FindProcessingFn(ctx, limit)
	}
	var out []*domain.MissionPayment
	for _, p := range r.payments {
		if p.Status == domain.PaymentProcessing {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockPaymentRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.MissionPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindExpiredHoldsFn != nil {
		return r.FindExpiredHoldsFn(ctx, now, limit)
	}
	var out []*domain.MissionPayment
	for _, p := range r.payments {
		if p.HoldExpired(now) {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockPaymentRepository) Update(ctx context.Context, p *domain.MissionPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateFn != nil {
		return r.UpdateFn(ctx, p)
	}
	if _, ok := r.payments[p.ID]; !ok {
		return application.ErrPaymentNotFound
	}
	r.payments[p.ID] = p
	return nil
}

func (r *MockPaymentRepository) UpdateFromStatus(ctx context.Context, p *domain.MissionPayment, expected domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateFromStatusFn != nil {
		return r.UpdateFromStatusFn(ctx, p, expected)
	}
	stored, ok := r.payments[p.ID]
	if !ok {
		return false, application.ErrPaymentNotFound
	}
	if stored != p && stored.Status != expected {
		return false, nil
	}
	r.payments[p.ID] = p
	return true, nil
}

// MockFailedTransferRepository
type MockFailedTransferRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.FailedTransfer

	CreateFn        func(ctx context.Context, f *domain.FailedTransfer) error
	FindByIDFn      func(ctx context.Context, id string) (*domain.FailedTransfer, error)
	FindRetryableFn func(ctx context.Context, limit int) ([]*domain.FailedTransfer, error)
	FindEscalatedFn func(ctx context.Context, limit int) ([]*domain.FailedTransfer, error)
	UpdateFn        func(ctx context.Context, f *domain.FailedTransfer) error
}

func NewMockFailedTransferRepository() *MockFailedTransferRepository {
	return &MockFailedTransferRepository{records: make(map[string]*domain.FailedTransfer)}
}

func (r *MockFailedTransferRepository) Create(ctx context.Context, f *domain.FailedTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateFn != nil {
		return r.CreateFn(ctx, f)
	}
	r.records[f.ID] = f
	return nil
}

func (r *MockFailedTransferRepository) FindByID(ctx context.Context, id string) (*domain.FailedTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindByIDFn != nil {
		return r.FindByIDFn(ctx, id)
	}
	f, ok := r.records[id]
	if !ok {
		return nil, application.ErrTransferNotFound
	}
	return f, nil
}

func (r *MockFailedTransferRepository) FindRetryable(ctx context.Context, limit int) ([]*domain.FailedTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindRetryableFn != nil {
		return r.FindRetryableFn(ctx, limit)
	}
	var out []*domain.FailedTransfer
	for _, f := range r.records {
		if f.Retryable() {
			out = append(out, f)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockFailedTransferRepository) FindEscalated(ctx context.Context, limit int) ([]*domain.FailedTransfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FindEscalatedFn != nil {
		return r.FindEscalatedFn(ctx, limit)
	}
	var out []*domain.FailedTransfer
	for _, f := range r.records {
		if f.Status == domain.TransferFailedPermanently {
			out = append(out, f)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockFailedTransferRepository) Update(ctx context.Context, f *domain.FailedTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateFn != nil {
		return r.UpdateFn(ctx, f)
	}
	r.records[f.ID] = f
	return nil
}

// MockGatewayClient
type MockGatewayClient struct {
	mu sync.Mutex

	DebitCalls    []application.DebitRequest
	TransferCalls []application.TransferRequest
	RefundCalls   []application.RefundRequest
	DebitKeys     []string
	TransferKeys  []string

	CreateDebitFn           func(ctx context.Context, req application.DebitRequest, idempotencyKey string) (*application.DebitResponse, error)
	CaptureDebitFn          func(ctx context.Context, intentID string) (*application.DebitResponse, error)
	CancelDebitFn           func(ctx context.Context, intentID string) (*application.DebitResponse, error)
	RetrieveDebitFn         func(ctx context.Context, intentID string) (*application.DebitResponse, error)
	CreateTransferFn        func(ctx context.Context, req application.TransferRequest, idempotencyKey string) (*application.TransferResponse, error)
	RetrieveMandateStatusFn func(ctx context.Context, payerHandle string) (application.MandateStatus, error)
	RetrieveAccountStatusFn func(ctx context.Context, payeeHandle string) (*application.AccountStatus, error)
	RefundFn                func(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error)
}

func NewMockGatewayClient() *MockGatewayClient {
	return &MockGatewayClient{}
}

func (g *MockGatewayClient) CreateDebit(ctx context.Context, req application.DebitRequest, idempotencyKey string) (*application.DebitResponse, error) {
	g.mu.Lock()
	g.DebitCalls = append(g.DebitCalls, req)
	g.DebitKeys = append(g.DebitKeys, idempotencyKey)
	g.mu.Unlock()
	if g.CreateDebitFn != nil {
		return g.CreateDebitFn(ctx, req, idempotencyKey)
	}
	return &application.DebitResponse{
		ID:       "pi_mock",
		Status:   application.IntentSucceeded,
		ChargeID: "ch_mock",
	}, nil
}

func (g *MockGatewayClient) CaptureDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	if g.CaptureDebitFn != nil {
		return g.CaptureDebitFn(ctx, intentID)
	}
	return &application.DebitResponse{ID: intentID, Status: application.IntentSucceeded, ChargeID: "ch_mock"}, nil
}

func (g *MockGatewayClient) CancelDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	if g.CancelDebitFn != nil {
		return g.CancelDebitFn(ctx, intentID)
	}
	return &application.DebitResponse{ID: intentID, Status: application.IntentCancelled}, nil
}

func (g *MockGatewayClient) RetrieveDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	if g.RetrieveDebitFn != nil {
		return g.RetrieveDebitFn(ctx, intentID)
	}
	return &application.DebitResponse{ID: intentID, Status: application.IntentSucceeded, ChargeID: "ch_mock"}, nil
}

func (g *MockGatewayClient) CreateTransfer(ctx context.Context, req application.TransferRequest, idempotencyKey string) (*application.TransferResponse, error) {
	g.mu.Lock()
	g.TransferCalls = append(g.TransferCalls, req)
	g.TransferKeys = append(g.TransferKeys, idempotencyKey)
	g.mu.Unlock()
	if g.CreateTransferFn != nil {
		return g.CreateTransferFn(ctx, req, idempotencyKey)
	}
	return &application.TransferResponse{ID: "tr_mock", Status: application.IntentSucceeded}, nil
}

func (g *MockGatewayClient) RetrieveMandateStatus(ctx context.Context, payerHandle string) (application.MandateStatus, error) {
	if g.RetrieveMandateStatusFn != nil {
		return g.RetrieveMandateStatusFn(ctx, payerHandle)
	}
	return application.MandateActive, nil
}

func (g *MockGatewayClient) RetrieveAccountStatus(ctx context.Context, payeeHandle string) (*application.AccountStatus, error) {
	if g.RetrieveAccountStatusFn != nil {
		return g.RetrieveAccountStatusFn(ctx, payeeHandle)
	}
	return &application.AccountStatus{ChargesEnabled: true, PayoutsEnabled: true}, nil
}

func (g *MockGatewayClient) Refund(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
	g.mu.Lock()
	g.RefundCalls = append(g.RefundCalls, req)
	g.mu.Unlock()
	if g.RefundFn != nil {
		return g.RefundFn(ctx, req, idempotencyKey)
	}
	return &application.RefundResponse{ID: "re_mock", Status: application.IntentSucceeded}, nil
}

// MockTxCoordinator runs the callback against the supplied repositories
// without any real transaction.
type MockTxCoordinator struct {
	Missions application.MissionRepository
	Payments application.PaymentRepository

	WithTransactionFn func(ctx context.Context, fn func(missions application.MissionRepository, payments application.PaymentRepository) error) error
}

func (c *MockTxCoordinator) WithTransaction(ctx context.Context, fn func(missions application.MissionRepository, payments application.PaymentRepository) error) error {
	if c.WithTransactionFn != nil {
		return c.WithTransactionFn(ctx, fn)
	}
	return fn(c.Missions, c.Payments)
}

// MockPublisher records every published event.
type MockPublisher struct {
	mu     sync.Mutex
	Events []application.Event

	PublishFn func(ctx context.Context, event application.Event) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, event application.Event) error {
	p.mu.Lock()
	p.Events = append(p.Events, event)
	p.mu.Unlock()
	if p.PublishFn != nil {
		return p.PublishFn(ctx, event)
	}
	return nil
}

// EventsOfType filters recorded events by type.
func (p *MockPublisher) EventsOfType(eventType string) []application.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []application.Event
	for _, e := range p.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
