// Package rest is the HTTP adapter over the orchestration services.
package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

var validate = validator.New()

// Handler bundles the service dependencies of the HTTP surface.
type Handler struct {
	missions *services.MissionService
	planner  *services.PlannerService
	confirm  *services.ConfirmService
	cancel   *services.CancelService
	release  *services.ReleaseService
	query    *services.QueryService
}

func NewHandler(
	missions *services.MissionService,
	planner *services.PlannerService,
	confirm *services.ConfirmService,
	cancel *services.CancelService,
	release *services.ReleaseService,
	query *services.QueryService,
) *Handler {
	return &Handler{
		missions: missions,
		planner:  planner,
		confirm:  confirm,
		cancel:   cancel,
		release:  release,
		query:    query,
	}
}

// actorFrom reads the authenticated party injected by the edge proxy.
// Authentication itself is out of scope here.
func actorFrom(r *http.Request) services.Actor {
	return services.Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Role: services.Role(r.Header.Get("X-Actor-Role")),
	}
}

type createMissionRequest struct {
	OfferID            string    `json:"offer_id" validate:"required"`
	PayerID            string    `json:"payer_id" validate:"required"`
	PayeeID            string    `json:"payee_id" validate:"required"`
	FinalPriceCents    int64     `json:"final_price_cents" validate:"gt=0"`
	Currency           string    `json:"currency"`
	DepositPercentage  int       `json:"deposit_percentage" validate:"gte=0,lte=100"`
	ScheduleKind       string    `json:"schedule_kind" validate:"required"`
	InstallmentCount   int       `json:"installment_count"`
	InstallmentDates   []string  `json:"installment_dates"`
	Months             int       `json:"months"`
	StartDate          time.Time `json:"start_date" validate:"required"`
	EndDate            time.Time `json:"end_date" validate:"required"`
	PayerBillingHandle string    `json:"payer_billing_handle" validate:"required"`
	PayeePayoutHandle  string    `json:"payee_payout_handle"`
}

func (h *Handler) createMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}

	dates := make([]time.Time, 0, len(req.InstallmentDates))
	for _, d := range req.InstallmentDates {
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			writeError(w, application.NewInvalidInputError(err))
			return
		}
		dates = append(dates, t)
	}

	mission, err := h.missions.CreateMission(r.Context(), services.CreateMissionCommand{
		OfferID:            req.OfferID,
		PayerID:            req.PayerID,
		PayeeID:            req.PayeeID,
		FinalPriceCents:    req.FinalPriceCents,
		Currency:           req.Currency,
		DepositPercentage:  req.DepositPercentage,
		ScheduleKind:       domain.ScheduleKind(req.ScheduleKind),
		InstallmentCount:   req.InstallmentCount,
		InstallmentDates:   dates,
		Months:             req.Months,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		PayerBillingHandle: req.PayerBillingHandle,
		PayeePayoutHandle:  req.PayeePayoutHandle,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMissionResponse(mission))
}

func (h *Handler) getMission(w http.ResponseWriter, r *http.Request) {
	mission, err := h.query.GetMission(r.Context(), chi.URLParam(r, "missionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMissionResponse(mission))
}

func (h *Handler) getMissionStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.query.GetMissionStatus(r.Context(), chi.URLParam(r, "missionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	allowed := make([]string, 0, len(view.AllowedTransitions))
	for _, s := range view.AllowedTransitions {
		allowed = append(allowed, string(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mission_id":          view.MissionID,
		"status":              string(view.Status),
		"payment_state":       string(view.PaymentState),
		"allowed_transitions": allowed,
	})
}

func (h *Handler) getMissionPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.query.GetMissionPayments(r.Context(), chi.URLParam(r, "missionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

type advanceRequest struct {
	Target string `json:"target" validate:"required"`
}

func (h *Handler) advanceMission(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}
	mission, err := h.missions.Advance(r.Context(),
		chi.URLParam(r, "missionID"), domain.MissionStatus(req.Target), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMissionResponse(mission))
}

func (h *Handler) planPayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.planner.PlanSchedule(r.Context(), chi.URLParam(r, "missionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(result.Payments))
	for _, p := range result.Payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"mission":  toMissionResponse(result.Mission),
		"payments": out,
	})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.confirm.ConfirmPayment(r.Context(), chi.URLParam(r, "missionID"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mission":            toMissionResponse(result.Mission),
		"commission_payment": toPaymentResponse(result.CommissionPayment),
		"deposit_payment":    toPaymentResponse(result.DepositPayment),
		"already_processed":  result.AlreadyProcessed,
	})
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) cancelMission(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, application.NewInvalidInputError(err))
		return
	}
	result, err := h.cancel.Cancel(r.Context(), services.CancelCommand{
		MissionID: chi.URLParam(r, "missionID"),
		Actor:     actorFrom(r),
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mission":          toMissionResponse(result.Mission),
		"deposit_refunded": result.DepositRefunded,
		"refund_id":        result.RefundID,
	})
}

// releaseDeposit is the operator escape hatch; the periodic worker handles
// the normal path.
func (h *Handler) releaseDeposit(w http.ResponseWriter, r *http.Request) {
	if actorFrom(r).Role != services.RoleOperator {
		writeError(w, application.NewForbiddenError(actorFrom(r).ID, "release deposits manually"))
		return
	}
	result, err := h.release.ReleaseDeposit(r.Context(), chi.URLParam(r, "missionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mission_id":       result.MissionID,
		"payment_id":       result.PaymentID,
		"transfer_id":      result.TransferID,
		"already_released": result.AlreadyReleased,
	})
}

func (h *Handler) listEscalatedTransfers(w http.ResponseWriter, r *http.Request) {
	if actorFrom(r).Role != services.RoleOperator {
		writeError(w, application.NewForbiddenError(actorFrom(r).ID, "list escalated transfers"))
		return
	}
	records, err := h.query.GetEscalatedTransfers(r.Context(), 100)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(records))
	for _, f := range records {
		out = append(out, map[string]any{
			"id":            f.ID,
			"mission_id":    f.MissionID,
			"payment_id":    f.PaymentID,
			"amount_cents":  f.AmountCents,
			"currency":      f.Currency,
			"error_code":    f.ErrorCode,
			"error_message": f.ErrorMessage,
			"retry_count":   f.RetryCount,
			"status":        string(f.Status),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"failed_transfers": out})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type missionResponse struct {
	ID                string     `json:"id"`
	OfferID           string     `json:"offer_id"`
	PayerID           string     `json:"payer_id"`
	PayeeID           string     `json:"payee_id"`
	FinalPriceCents   int64      `json:"final_price_cents"`
	DepositCents      int64      `json:"deposit_cents"`
	RemainingCents    int64      `json:"remaining_cents"`
	Currency          string     `json:"currency"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	Status            string     `json:"status"`
	PaymentState      string     `json:"payment_state"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelRequestedBy *string    `json:"cancel_requested_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toMissionResponse(m *domain.Mission) missionResponse {
	return missionResponse{
		ID:                m.ID,
		OfferID:           m.OfferID,
		PayerID:           m.PayerID,
		PayeeID:           m.PayeeID,
		FinalPriceCents:   m.FinalPriceCents,
		DepositCents:      m.DepositCents,
		RemainingCents:    m.RemainingCents,
		Currency:          m.Currency,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		Status:            string(m.Status),
		PaymentState:      string(m.PaymentState),
		CancelledAt:       m.CancelledAt,
		CancelRequestedBy: m.CancelRequestedBy,
		CreatedAt:         m.CreatedAt,
	}
}

type paymentResponse struct {
	ID            string     `json:"id"`
	MissionID     string     `json:"mission_id"`
	Type          string     `json:"type"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	Status        string     `json:"status"`
	HoldUntil     *time.Time `json:"hold_until,omitempty"`
	TransferID    *string    `json:"transfer_id,omitempty"`
	RefundID      *string    `json:"refund_id,omitempty"`
}

func toPaymentResponse(p *domain.MissionPayment) paymentResponse {
	if p == nil {
		return paymentResponse{}
	}
	return paymentResponse{
		ID:            p.ID,
		MissionID:     p.MissionID,
		Type:          string(p.Type),
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		ScheduledDate: p.ScheduledDate,
		Status:        string(p.Status),
		HoldUntil:     p.HoldUntil,
		TransferID:    p.TransferID,
		RefundID:      p.RefundID,
	}
}
