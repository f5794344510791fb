// Package engine implements the offer comparison calculations: take-home pay
// ranking, GSA per-diem compliance, and stipend tax-savings estimates.
//
// The engine is pure: it holds no mutable state, performs no I/O, and is safe
// to call concurrently. Repeated calls with identical inputs always recompute
// the same results; any caching belongs to the caller.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/travelcomp/offer-service/internal/models"
	"github.com/travelcomp/offer-service/internal/taxes"
)

// ErrInvalidInput is returned for malformed primary inputs: negative rates,
// non-positive weeks worked, or offers failing field validation. Malformed
// inputs are a caller bug and are rejected, never silently clamped.
var ErrInvalidInput = errors.New("invalid input")

var (
	one   = decimal.NewFromInt(1)
	seven = decimal.NewFromInt(7)
)

// Engine computes offer comparisons against an injected state rate table.
type Engine struct {
	rates *taxes.RateTable
}

// New returns an Engine backed by the given rate table.
func New(rates *taxes.RateTable) *Engine {
	return &Engine{rates: rates}
}

// OfferError reports an offer excluded from a comparison run and why.
type OfferError struct {
	OfferID string `json:"offer_id"`
	Reason  string `json:"reason"`
}

// StateTaxRate returns the effective income-tax rate for a tax-home state.
// States with no income tax return exactly zero; unknown states return
// taxes.ErrUnknownState.
func (e *Engine) StateTaxRate(state string) (decimal.Decimal, error) {
	st, err := taxes.ParseState(state)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return e.rates.Rate(st)
}

// CompareOffers computes the take-home breakdown for each offer and returns
// results ranked by annual take-home, highest first. Ties rank the shorter
// contract first, then the lower offer ID, so the ordering is reproducible.
//
// Invalid offers are skipped and reported in the second return value rather
// than aborting the whole run; malformed shared inputs (rates, weeksWorked)
// fail the entire call with ErrInvalidInput. An empty offer slice is not an
// error and yields an empty result.
func (e *Engine) CompareOffers(offers []models.JobOffer, federalRate, stateRate decimal.Decimal, weeksWorked int) ([]models.ComparisonResult, []OfferError, error) {
	if err := validateRates(federalRate, stateRate); err != nil {
		return nil, nil, err
	}
	if weeksWorked <= 0 {
		return nil, nil, fmt.Errorf("%w: weeks worked must be positive, got %d", ErrInvalidInput, weeksWorked)
	}

	combined := clampRate(federalRate.Add(stateRate))
	weeks := decimal.NewFromInt(int64(weeksWorked))

	type ranked struct {
		result        models.ComparisonResult
		contractWeeks int
	}

	results := make([]ranked, 0, len(offers))
	var skipped []OfferError

	for _, o := range offers {
		if err := validateOffer(o); err != nil {
			skipped = append(skipped, OfferError{OfferID: o.ID, Reason: err.Error()})
			continue
		}

		taxable := o.HourlyRate.Mul(o.WeeklyHours).
			Add(o.OvertimeRate.Mul(o.OvertimeHours)).Round(2)
		tax := taxable.Mul(combined).Round(2)
		// Stipends and the amortized completion bonus are never taxed.
		nonTaxable := o.WeeklyStipend.
			Add(o.CompletionBonus.Div(decimal.NewFromInt(int64(o.ContractWeeks)))).Round(2)
		takeHome := taxable.Sub(tax).Add(nonTaxable)
		annual := takeHome.Mul(weeks)

		results = append(results, ranked{
			result: models.ComparisonResult{
				OfferID:             o.ID,
				WeeklyTaxableIncome: taxable,
				WeeklyTax:           tax,
				WeeklyNonTaxable:    nonTaxable,
				WeeklyTakeHome:      takeHome,
				AnnualTakeHome:      annual,
			},
			contractWeeks: o.ContractWeeks,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if c := results[i].result.AnnualTakeHome.Cmp(results[j].result.AnnualTakeHome); c != 0 {
			return c > 0
		}
		if results[i].contractWeeks != results[j].contractWeeks {
			return results[i].contractWeeks < results[j].contractWeeks
		}
		return results[i].result.OfferID < results[j].result.OfferID
	})

	out := make([]models.ComparisonResult, len(results))
	for i, r := range results {
		r.result.Rank = i + 1
		out[i] = r.result
	}
	return out, skipped, nil
}

// CheckGSACompliance evaluates an offer's weekly stipend against the federal
// safe-harbor ceiling of (daily lodging + daily meals) x 7. A zero ceiling
// signals missing locality data, so any nonzero stipend is flagged for
// review rather than waved through.
func (e *Engine) CheckGSACompliance(offer models.JobOffer, dailyLodging, dailyMeals decimal.Decimal) (models.GSAComplianceResult, error) {
	if dailyLodging.IsNegative() || dailyMeals.IsNegative() {
		return models.GSAComplianceResult{}, fmt.Errorf("%w: GSA rates must not be negative", ErrInvalidInput)
	}
	if offer.WeeklyStipend.IsNegative() {
		return models.GSAComplianceResult{}, fmt.Errorf("%w: weekly stipend must not be negative", ErrInvalidInput)
	}

	ceiling := dailyLodging.Add(dailyMeals).Mul(seven)
	result := models.GSAComplianceResult{
		OfferID:       offer.ID,
		WeeklyCeiling: ceiling,
		Compliant:     true,
		ExcessAmount:  decimal.Zero,
	}
	if offer.WeeklyStipend.GreaterThan(ceiling) {
		result.Compliant = false
		result.ExcessAmount = offer.WeeklyStipend.Sub(ceiling)
	}
	return result, nil
}

// StipendTaxSavings estimates the tax avoided over weeksWorked weeks by
// receiving the stipend as non-taxable compensation instead of wages. This
// is an illustrative figure, not a filing computation; the weekly savings
// can never exceed the weekly stipend itself.
func (e *Engine) StipendTaxSavings(offer models.JobOffer, federalRate, stateRate decimal.Decimal, weeksWorked int) (decimal.Decimal, error) {
	if err := validateRates(federalRate, stateRate); err != nil {
		return decimal.Decimal{}, err
	}
	if weeksWorked <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: weeks worked must be positive, got %d", ErrInvalidInput, weeksWorked)
	}
	if offer.WeeklyStipend.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: weekly stipend must not be negative", ErrInvalidInput)
	}

	weekly := offer.WeeklyStipend.Mul(clampRate(federalRate.Add(stateRate)))
	if weekly.GreaterThan(offer.WeeklyStipend) {
		weekly = offer.WeeklyStipend
	}
	return weekly.Mul(decimal.NewFromInt(int64(weeksWorked))).Round(2), nil
}

// clampRate bounds a derived combined rate to [0, 1]. Primary rate inputs
// are validated instead of clamped; this only guards the sum.
func clampRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(one) {
		return one
	}
	return rate
}

func validateRates(federalRate, stateRate decimal.Decimal) error {
	if err := checkRate("federal", federalRate); err != nil {
		return err
	}
	return checkRate("state", stateRate)
}

func checkRate(name string, r decimal.Decimal) error {
	if r.IsNegative() {
		return fmt.Errorf("%w: %s rate must not be negative, got %s", ErrInvalidInput, name, r)
	}
	if r.GreaterThan(one) {
		return fmt.Errorf("%w: %s rate must not exceed 1, got %s", ErrInvalidInput, name, r)
	}
	return nil
}

func validateOffer(o models.JobOffer) error {
	switch {
	case o.HourlyRate.IsNegative():
		return fmt.Errorf("%w: hourly rate must not be negative", ErrInvalidInput)
	case o.WeeklyHours.Sign() <= 0:
		return fmt.Errorf("%w: weekly hours must be positive", ErrInvalidInput)
	case o.WeeklyStipend.IsNegative():
		return fmt.Errorf("%w: weekly stipend must not be negative", ErrInvalidInput)
	case o.OvertimeRate.IsNegative():
		return fmt.Errorf("%w: overtime rate must not be negative", ErrInvalidInput)
	case o.OvertimeHours.IsNegative():
		return fmt.Errorf("%w: overtime hours must not be negative", ErrInvalidInput)
	case o.ContractWeeks <= 0:
		return fmt.Errorf("%w: contract weeks must be positive", ErrInvalidInput)
	case o.CompletionBonus.IsNegative():
		return fmt.Errorf("%w: completion bonus must not be negative", ErrInvalidInput)
	}
	return nil
}
