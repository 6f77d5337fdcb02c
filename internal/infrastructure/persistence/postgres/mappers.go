package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

type installmentPayload struct {
	Count int         `json:"count"`
	Dates []time.Time `json:"dates"`
}

type monthlyPayload struct {
	Months int `json:"months"`
}

func scheduleToColumns(s domain.Schedule) (string, []byte, error) {
	switch v := s.(type) {
	case domain.OneShotSchedule:
		return string(domain.ScheduleKindOneShot), nil, nil
	case domain.InstallmentSchedule:
		payload, err := json.Marshal(installmentPayload{Count: v.Count, Dates: v.Dates})
		return string(domain.ScheduleKindInstallments), payload, err
	case domain.MonthlySchedule:
		payload, err := json.Marshal(monthlyPayload{Months: v.Months})
		return string(domain.ScheduleKindMonthly), payload, err
	case nil:
		return string(domain.ScheduleKindOneShot), nil, nil
	default:
		return "", nil, fmt.Errorf("unknown schedule kind %T", s)
	}
}

func scheduleFromColumns(kind string, payload []byte) (domain.Schedule, error) {
	switch domain.ScheduleKind(kind) {
	case domain.ScheduleKindOneShot:
		return domain.OneShotSchedule{}, nil
	case domain.ScheduleKindInstallments:
		var p installmentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return domain.InstallmentSchedule{Count: p.Count, Dates: p.Dates}, nil
	case domain.ScheduleKindMonthly:
		var p monthlyPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return domain.MonthlySchedule{Months: p.Months}, nil
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", kind)
	}
}

func missionToDBModel(m *domain.Mission) (*MissionModel, error) {
	kind, payload, err := scheduleToColumns(m.Schedule)
	if err != nil {
		return nil, err
	}
	return &MissionModel{
		ID:                  m.ID,
		OfferID:             m.OfferID,
		PayerID:             m.PayerID,
		PayeeID:             m.PayeeID,
		FinalPriceCents:     m.FinalPriceCents,
		DepositPercentage:   m.DepositPercentage,
		DepositCents:        m.DepositCents,
		RemainingCents:      m.RemainingCents,
		Currency:            m.Currency,
		ScheduleKind:        kind,
		SchedulePayload:     payload,
		StartDate:           m.StartDate,
		EndDate:             m.EndDate,
		PayerBillingHandle:  m.PayerBillingHandle,
		PayeePayoutHandle:   m.PayeePayoutHandle,
		LastPaymentIntentID: m.LastPaymentIntentID,
		Status:              string(m.Status),
		PaymentState:        string(m.PaymentState),
		ConfirmedAt:         m.ConfirmedAt,
		PaymentConfirmedAt:  m.PaymentConfirmedAt,
		TransferScheduledAt: m.TransferScheduledAt,
		CancelledAt:         m.CancelledAt,
		CancelRequestedBy:   m.CancelRequestedBy,
		CancelReason:        m.CancelReason,
		CancelRefundID:      m.CancelRefundID,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

func missionToDomain(m MissionModel) (*domain.Mission, error) {
	schedule, err := scheduleFromColumns(m.ScheduleKind, m.SchedulePayload)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteMission(
		m.ID, m.OfferID, m.PayerID, m.PayeeID,
		m.FinalPriceCents, m.DepositPercentage, m.DepositCents, m.RemainingCents, m.Currency,
		schedule,
		m.StartDate, m.EndDate,
		m.PayerBillingHandle, m.PayeePayoutHandle, m.LastPaymentIntentID,
		domain.MissionStatus(m.Status), domain.PaymentState(m.PaymentState),
		m.ConfirmedAt, m.PaymentConfirmedAt, m.TransferScheduledAt,
		m.CancelledAt, m.CancelRequestedBy, m.CancelReason, m.CancelRefundID,
		m.CreatedAt, m.UpdatedAt,
	), nil
}

func paymentToDBModel(p *domain.MissionPayment) *PaymentModel {
	return &PaymentModel{
		ID:                p.ID,
		MissionID:         p.MissionID,
		Type:              string(p.Type),
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		ScheduledDate:     p.ScheduledDate,
		InstallmentNumber: p.InstallmentNumber,
		MonthNumber:       p.MonthNumber,
		Status:            string(p.Status),
		IntentID:          p.IntentID,
		ChargeID:          p.ChargeID,
		TransferID:        p.TransferID,
		RefundID:          p.RefundID,
		RoutedAtDebit:     p.RoutedAtDebit,
		HoldUntil:         p.HoldUntil,
		FailureReason:     p.FailureReason,
		CreatedAt:         p.CreatedAt,
		CapturedAt:        p.CapturedAt,
		TransferredAt:     p.TransferredAt,
	}
}

func paymentToDomain(m PaymentModel) *domain.MissionPayment {
	return domain.ReconstitutePayment(
		m.ID, m.MissionID,
		domain.PaymentType(m.Type), m.AmountCents, m.Currency,
		m.ScheduledDate, m.InstallmentNumber, m.MonthNumber,
		domain.PaymentStatus(m.Status),
		m.IntentID, m.ChargeID, m.TransferID, m.RefundID,
		m.RoutedAtDebit, m.HoldUntil, m.FailureReason,
		m.CreatedAt, m.CapturedAt, m.TransferredAt,
	)
}

func failedTransferToDBModel(f *domain.FailedTransfer) *FailedTransferModel {
	return &FailedTransferModel{
		ID:                f.ID,
		PaymentID:         f.PaymentID,
		MissionID:         f.MissionID,
		PayeeHandle:       f.PayeeHandle,
		AmountCents:       f.AmountCents,
		Currency:          f.Currency,
		CommissionRateBps: f.CommissionRateBps,
		ErrorCode:         f.ErrorCode,
		ErrorMessage:      f.ErrorMessage,
		RetryCount:        f.RetryCount,
		MaxRetries:        f.MaxRetries,
		Status:            string(f.Status),
		CreatedAt:         f.CreatedAt,
		LastAttemptAt:     f.LastAttemptAt,
	}
}

func failedTransferToDomain(m FailedTransferModel) *domain.FailedTransfer {
	return &domain.FailedTransfer{
		ID:                m.ID,
		PaymentID:         m.PaymentID,
		MissionID:         m.MissionID,
		PayeeHandle:       m.PayeeHandle,
		AmountCents:       m.AmountCents,
		Currency:          m.Currency,
		CommissionRateBps: m.CommissionRateBps,
		ErrorCode:         m.ErrorCode,
		ErrorMessage:      m.ErrorMessage,
		RetryCount:        m.RetryCount,
		MaxRetries:        m.MaxRetries,
		Status:            domain.FailedTransferStatus(m.Status),
		CreatedAt:         m.CreatedAt,
		LastAttemptAt:     m.LastAttemptAt,
	}
}
