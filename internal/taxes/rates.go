// Package taxes holds the static state income-tax rate table used by the
// comparison engine. Travel nurses are taxed by their tax-home state, not the
// assignment state, so every lookup here is keyed by the tax home.
package taxes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownState is returned when a state has no entry in the rate table.
// Callers must not fall back to a guessed rate on this error.
var ErrUnknownState = errors.New("unknown state")

// State is a two-letter USPS state code.
type State string

const (
	Alaska      State = "AK"
	Florida     State = "FL"
	Nevada      State = "NV"
	SouthDakota State = "SD"
	Texas       State = "TX"
	Washington  State = "WA"
	Wyoming     State = "WY"
)

// defaultRates maps each state to its effective income-tax rate on wages,
// expressed as a decimal fraction. These are blended effective rates for a
// typical travel-nurse income, not marginal brackets; refreshed once per
// tax year.
var defaultRates = map[State]float64{
	"AL": 0.0400, "AK": 0, "AZ": 0.0250, "AR": 0.0390, "CA": 0.0600,
	"CO": 0.0440, "CT": 0.0500, "DE": 0.0480, "FL": 0, "GA": 0.0539,
	"HI": 0.0640, "ID": 0.0530, "IL": 0.0495, "IN": 0.0305, "IA": 0.0380,
	"KS": 0.0470, "KY": 0.0400, "LA": 0.0300, "ME": 0.0580, "MD": 0.0475,
	"MA": 0.0500, "MI": 0.0425, "MN": 0.0580, "MS": 0.0440, "MO": 0.0420,
	"MT": 0.0510, "NE": 0.0450, "NV": 0, "NH": 0, "NJ": 0.0500,
	"NM": 0.0400, "NY": 0.0550, "NC": 0.0425, "ND": 0.0180, "OH": 0.0280,
	"OK": 0.0425, "OR": 0.0700, "PA": 0.0307, "RI": 0.0475, "SC": 0.0540,
	"SD": 0, "TN": 0, "TX": 0, "UT": 0.0455, "VT": 0.0550,
	"VA": 0.0470, "WA": 0, "WV": 0.0480, "WI": 0.0450, "WY": 0,
}

// NoIncomeTaxStates is the set of states with no state income tax at all.
// NH and TN additionally levy no tax on wage income, so they carry a zero
// rate in the table without being members of this set.
var NoIncomeTaxStates = map[State]bool{
	Texas:       true,
	Florida:     true,
	Washington:  true,
	Nevada:      true,
	Wyoming:     true,
	SouthDakota: true,
	Alaska:      true,
}

// ParseState converts a raw string to a State, returning an error for
// values outside the rate table.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := defaultRates[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
	return st, nil
}

// RateTable is an injectable per-state rate lookup. The zero value is not
// usable; construct with NewRateTable or DefaultTable.
type RateTable struct {
	rates map[State]decimal.Decimal
}

// NewRateTable builds a table from explicit per-state rates.
func NewRateTable(rates map[State]decimal.Decimal) *RateTable {
	copied := make(map[State]decimal.Decimal, len(rates))
	for st, r := range rates {
		copied[st] = r
	}
	return &RateTable{rates: copied}
}

// DefaultTable returns the built-in rate table.
func DefaultTable() *RateTable {
	rates := make(map[State]decimal.Decimal, len(defaultRates))
	for st, r := range defaultRates {
		if NoIncomeTaxStates[st] {
			rates[st] = decimal.Zero
			continue
		}
		rates[st] = decimal.NewFromFloat(r)
	}
	return &RateTable{rates: rates}
}

// Rate returns the effective income-tax rate for a tax-home state.
// States in the no-income-tax set return exactly zero. A state missing from
// the table returns ErrUnknownState rather than a default: silently assuming
// zero would understate the filer's tax liability.
func (t *RateTable) Rate(state State) (decimal.Decimal, error) {
	rate, ok := t.rates[state]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	return rate, nil
}

// States returns every state present in the table.
func (t *RateTable) States() []State {
	out := make([]State, 0, len(t.rates))
	for st := range t.rates {
		out = append(out, st)
	}
	return out
}
