package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerDiemRate holds the GSA daily lodging and meals ceilings for a locality.
type PerDiemRate struct {
	ID           int64           `json:"id"`
	State        string          `json:"state"`
	City         string          `json:"city"`
	DailyLodging decimal.Decimal `json:"daily_lodging"`
	DailyMeals   decimal.Decimal `json:"daily_meals"` // M&IE
	FiscalYear   int             `json:"fiscal_year"`
	FetchedAt    time.Time       `json:"fetched_at"`
}
