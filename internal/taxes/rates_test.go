package taxes_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/travelcomp/offer-service/internal/taxes"
)

func TestRate_NoIncomeTaxStatesAreExactlyZero(t *testing.T) {
	table := taxes.DefaultTable()
	for _, st := range []taxes.State{"TX", "FL", "WA", "NV", "WY", "SD", "AK"} {
		rate, err := table.Rate(st)
		if err != nil {
			t.Errorf("Rate(%s) returned unexpected error: %v", st, err)
			continue
		}
		if !rate.Equal(decimal.Zero) {
			t.Errorf("Rate(%s) = %s, want exactly 0", st, rate)
		}
	}
}

func TestRate_UnknownStateFailsInsteadOfDefaulting(t *testing.T) {
	table := taxes.DefaultTable()
	for _, raw := range []taxes.State{"ZZ", "PR", ""} {
		_, err := table.Rate(raw)
		if !errors.Is(err, taxes.ErrUnknownState) {
			t.Errorf("Rate(%q) error = %v, want ErrUnknownState", raw, err)
		}
	}
}

func TestRate_AllRatesAreValidFractions(t *testing.T) {
	table := taxes.DefaultTable()
	states := table.States()
	if len(states) != 50 {
		t.Fatalf("DefaultTable covers %d states, want 50", len(states))
	}
	one := decimal.NewFromInt(1)
	for _, st := range states {
		rate, err := table.Rate(st)
		if err != nil {
			t.Fatalf("Rate(%s) returned unexpected error: %v", st, err)
		}
		if rate.IsNegative() || rate.GreaterThan(one) {
			t.Errorf("Rate(%s) = %s, want a fraction in [0, 1]", st, rate)
		}
	}
}

func TestParseState(t *testing.T) {
	cases := []struct {
		in      string
		want    taxes.State
		wantErr bool
	}{
		{"CA", "CA", false},
		{"ca", "CA", false},
		{" tx ", "TX", false},
		{"California", "", true},
		{"ZZ", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := taxes.ParseState(c.in)
		if c.wantErr {
			if !errors.Is(err, taxes.ErrUnknownState) {
				t.Errorf("ParseState(%q) error = %v, want ErrUnknownState", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseState(%q) returned unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseState(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewRateTable_IsInjectable(t *testing.T) {
	custom := taxes.NewRateTable(map[taxes.State]decimal.Decimal{
		"CA": decimal.NewFromFloat(0.08),
	})
	rate, err := custom.Rate("CA")
	if err != nil {
		t.Fatalf("Rate(CA) returned unexpected error: %v", err)
	}
	if !rate.Equal(decimal.NewFromFloat(0.08)) {
		t.Errorf("Rate(CA) = %s, want 0.08", rate)
	}
	if _, err := custom.Rate("NY"); !errors.Is(err, taxes.ErrUnknownState) {
		t.Errorf("Rate(NY) on custom table error = %v, want ErrUnknownState", err)
	}
}
