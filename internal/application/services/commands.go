package services

import (
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/domain"
)

// Role identifies which side of the mission an actor is on.
type Role string

const (
	RolePayer    Role = "payer"
	RolePayee    Role = "payee"
	RoleOperator Role = "operator"
)

// Actor is the authenticated party performing an operation. Authentication
// itself happens upstream; services only enforce role permissions.
type Actor struct {
	ID   string
	Role Role
}

type CreateMissionCommand struct {
	OfferID            string
	PayerID            string
	PayeeID            string
	FinalPriceCents    int64
	Currency           string
	DepositPercentage  int
	ScheduleKind       domain.ScheduleKind
	InstallmentCount   int
	InstallmentDates   []time.Time
	Months             int
	StartDate          time.Time
	EndDate            time.Time
	PayerBillingHandle string
	PayeePayoutHandle  string
}

type CancelCommand struct {
	MissionID string
	Actor     Actor
	Reason    string
}

// commissionRateFor selects the platform rate: one-off bookings and
// multi-month missions are charged at distinct configured rates.
func commissionRateFor(m *domain.Mission, cfg config.CommissionConfig) int64 {
	if m.IsShort() {
		return cfg.BookingRateBps
	}
	return cfg.MissionRateBps
}

// endOfDay pins a due date to the last second of its calendar day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
