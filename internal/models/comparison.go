package models

import "github.com/shopspring/decimal"

// TaxContext holds the filer-side inputs shared across a comparison run.
// The state rate always comes from the tax-home state, never from the
// assignment location.
type TaxContext struct {
	TaxHomeState       string          `json:"tax_home_state"`
	FederalRate        decimal.Decimal `json:"federal_rate"` // effective rate, decimal fraction
	StateRate          decimal.Decimal `json:"state_rate"`
	WeeksWorkedPerYear int             `json:"weeks_worked_per_year"`
}

// ComparisonResult represents the take-home breakdown for a single offer.
// Results are derived values: they are recomputed whole from their inputs on
// every run and never patched field-by-field.
type ComparisonResult struct {
	OfferID             string          `json:"offer_id"`
	WeeklyTaxableIncome decimal.Decimal `json:"weekly_taxable_income"`
	WeeklyTax           decimal.Decimal `json:"weekly_tax"`
	WeeklyNonTaxable    decimal.Decimal `json:"weekly_non_taxable"` // stipend + amortized bonus
	WeeklyTakeHome      decimal.Decimal `json:"weekly_take_home"`
	AnnualTakeHome      decimal.Decimal `json:"annual_take_home"`
	Rank                int             `json:"rank"` // 1 = highest annual take-home
}

// GSAComplianceResult reports an offer's stipend against the federal
// per-diem safe-harbor ceiling.
type GSAComplianceResult struct {
	OfferID       string          `json:"offer_id"`
	Compliant     bool            `json:"compliant"`
	WeeklyCeiling decimal.Decimal `json:"weekly_ceiling"`
	ExcessAmount  decimal.Decimal `json:"excess_amount"` // potentially taxable portion of the stipend
}
