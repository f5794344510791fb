package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobOffer represents a travel-nurse contract offer
type JobOffer struct {
	ID              string          `json:"id"`
	UserID          int64           `json:"user_id"`
	Facility        string          `json:"facility"`
	City            string          `json:"city"`
	State           string          `json:"state"` // assignment location, drives the GSA per-diem lookup
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	WeeklyHours     decimal.Decimal `json:"weekly_hours"`
	WeeklyStipend   decimal.Decimal `json:"weekly_stipend"` // housing + meals, non-taxable
	OvertimeRate    decimal.Decimal `json:"overtime_rate"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	ContractWeeks   int             `json:"contract_weeks"`
	CompletionBonus decimal.Decimal `json:"completion_bonus"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EndDate returns the contract end date, or nil when no start date is set.
func (o *JobOffer) EndDate() *time.Time {
	if o.StartDate == nil {
		return nil
	}
	end := o.StartDate.AddDate(0, 0, o.ContractWeeks*7)
	return &end
}
