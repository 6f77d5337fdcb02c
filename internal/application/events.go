package application

import "time"

// Event types published on mission payment transitions. Notification and
// invoicing side effects live in consumers of these events, never inline
// in the orchestration path.
const (
	EventMissionStatusChanged    = "mission.status_changed"
	EventMissionPaymentConfirmed = "mission.payment_confirmed"
	EventMissionPaymentSettled   = "mission.payment_settled"
	EventDepositReleased         = "mission.deposit_released"
	EventInstallmentCaptured     = "mission.installment_captured"
	EventMissionCancelled        = "mission.cancelled"
	EventRefundIssued            = "mission.refund_issued"
	EventTransferSucceeded       = "transfer.succeeded"
	EventTransferEscalated       = "transfer.escalated"
)

type Event struct {
	Type       string            `json:"type"`
	MissionID  string            `json:"mission_id"`
	PaymentID  string            `json:"payment_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

func NewEvent(eventType, missionID string) Event {
	return Event{
		Type:       eventType,
		MissionID:  missionID,
		OccurredAt: time.Now(),
		Data:       map[string]string{},
	}
}

func (e Event) WithPayment(paymentID string) Event {
	e.PaymentID = paymentID
	return e
}

func (e Event) With(key, value string) Event {
	e.Data[key] = value
	return e
}
