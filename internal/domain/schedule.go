package domain

import "time"

// ScheduleKind discriminates the closed set of payment schedule shapes.
type ScheduleKind string

const (
	ScheduleKindOneShot      ScheduleKind = "one_shot"
	ScheduleKindInstallments ScheduleKind = "installments"
	ScheduleKindMonthly      ScheduleKind = "monthly"
)

// Schedule is a sealed union: exactly one variant per kind, each carrying
// only the fields that kind needs. The planner switches exhaustively on it.
type Schedule interface {
	Kind() ScheduleKind
}

// OneShotSchedule settles the remaining amount in a single final payment.
type OneShotSchedule struct{}

func (OneShotSchedule) Kind() ScheduleKind { return ScheduleKindOneShot }

// InstallmentSchedule settles the remaining amount on fixed dates.
type InstallmentSchedule struct {
	Count int
	Dates []time.Time
}

func (InstallmentSchedule) Kind() ScheduleKind { return ScheduleKindInstallments }

// MonthlySchedule settles the remaining amount in monthly payments.
type MonthlySchedule struct {
	Months int
}

func (MonthlySchedule) Kind() ScheduleKind { return ScheduleKindMonthly }
