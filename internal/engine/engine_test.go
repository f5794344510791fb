package engine_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/travelcomp/offer-service/internal/engine"
	"github.com/travelcomp/offer-service/internal/models"
	"github.com/travelcomp/offer-service/internal/taxes"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine() *engine.Engine {
	return engine.New(taxes.DefaultTable())
}

func baseOffer(id string) models.JobOffer {
	return models.JobOffer{
		ID:            id,
		HourlyRate:    d("50"),
		WeeklyHours:   d("36"),
		WeeklyStipend: d("1500"),
		ContractWeeks: 13,
	}
}

// ── CompareOffers ──────────────────────────────────────────────────────────

func TestCompareOffers_RanksHigherTakeHomeFirst(t *testing.T) {
	e := newEngine()
	// A: 50*36 = 1800 taxable, tax 396, take-home 1800-396+1500 = 2904
	// B: 45*36 = 1620 taxable, tax 356.40, take-home 1620-356.40+1800 = 3063.60
	a := baseOffer("offer-a")
	b := models.JobOffer{
		ID:            "offer-b",
		HourlyRate:    d("45"),
		WeeklyHours:   d("36"),
		WeeklyStipend: d("1800"),
		ContractWeeks: 13,
	}

	results, skipped, err := e.CompareOffers([]models.JobOffer{a, b}, d("0.22"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("CompareOffers skipped %d offers, want 0", len(skipped))
	}
	if len(results) != 2 {
		t.Fatalf("CompareOffers returned %d results, want 2", len(results))
	}

	if results[0].OfferID != "offer-b" {
		t.Errorf("rank 1 offer = %s, want offer-b", results[0].OfferID)
	}
	if !results[0].WeeklyTakeHome.Equal(d("3063.60")) {
		t.Errorf("offer-b weekly take-home = %s, want 3063.60", results[0].WeeklyTakeHome)
	}
	if !results[0].AnnualTakeHome.Equal(d("147052.80")) {
		t.Errorf("offer-b annual take-home = %s, want 147052.80", results[0].AnnualTakeHome)
	}
	if !results[1].WeeklyTakeHome.Equal(d("2904")) {
		t.Errorf("offer-a weekly take-home = %s, want 2904", results[1].WeeklyTakeHome)
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", results[0].Rank, results[1].Rank)
	}
}

func TestCompareOffers_Deterministic(t *testing.T) {
	e := newEngine()
	offers := []models.JobOffer{baseOffer("offer-a"), baseOffer("offer-b"), baseOffer("offer-c")}

	first, _, err := e.CompareOffers(offers, d("0.22"), d("0.05"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _, err := e.CompareOffers(offers, d("0.22"), d("0.05"), 48)
		if err != nil {
			t.Fatalf("CompareOffers run %d returned unexpected error: %v", i, err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d returned %d results, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].OfferID != first[j].OfferID || again[j].Rank != first[j].Rank {
				t.Fatalf("run %d position %d = %s (rank %d), want %s (rank %d)",
					i, j, again[j].OfferID, again[j].Rank, first[j].OfferID, first[j].Rank)
			}
			if !again[j].AnnualTakeHome.Equal(first[j].AnnualTakeHome) {
				t.Fatalf("run %d annual take-home for %s = %s, want %s",
					i, again[j].OfferID, again[j].AnnualTakeHome, first[j].AnnualTakeHome)
			}
		}
	}
}

func TestCompareOffers_TieBreaks(t *testing.T) {
	e := newEngine()
	// Identical pay, different contract lengths: shorter ranks first.
	short := baseOffer("offer-z")
	short.ContractWeeks = 8
	long := baseOffer("offer-a")
	long.ContractWeeks = 26

	results, _, err := e.CompareOffers([]models.JobOffer{long, short}, d("0.22"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	if results[0].OfferID != "offer-z" {
		t.Errorf("tie-break by contract length: rank 1 = %s, want offer-z", results[0].OfferID)
	}

	// Identical pay and length: lower offer ID ranks first.
	results, _, err = e.CompareOffers([]models.JobOffer{baseOffer("offer-b"), baseOffer("offer-a")}, d("0.22"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	if results[0].OfferID != "offer-a" {
		t.Errorf("tie-break by ID: rank 1 = %s, want offer-a", results[0].OfferID)
	}
}

func TestCompareOffers_StipendNeverTaxed(t *testing.T) {
	e := newEngine()
	base := baseOffer("offer-a")
	raised := base
	raised.ID = "offer-b"
	raised.WeeklyStipend = base.WeeklyStipend.Add(d("250"))

	results, _, err := e.CompareOffers([]models.JobOffer{base, raised}, d("0.30"), d("0.06"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}

	byID := map[string]models.ComparisonResult{}
	for _, r := range results {
		byID[r.OfferID] = r
	}
	delta := byID["offer-b"].WeeklyTakeHome.Sub(byID["offer-a"].WeeklyTakeHome)
	if !delta.Equal(d("250")) {
		t.Errorf("raising stipend by 250 changed weekly take-home by %s, want exactly 250", delta)
	}
}

func TestCompareOffers_EmptyInput(t *testing.T) {
	results, skipped, err := newEngine().CompareOffers(nil, d("0.22"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers(nil) returned unexpected error: %v", err)
	}
	if len(results) != 0 || len(skipped) != 0 {
		t.Errorf("CompareOffers(nil) = %d results, %d skipped, want 0, 0", len(results), len(skipped))
	}
}

func TestCompareOffers_SkipAndReport(t *testing.T) {
	e := newEngine()
	bad := baseOffer("offer-bad")
	bad.ContractWeeks = 0
	good := baseOffer("offer-good")

	results, skipped, err := e.CompareOffers([]models.JobOffer{bad, good}, d("0.22"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].OfferID != "offer-good" {
		t.Fatalf("valid offer missing from results: %+v", results)
	}
	if len(skipped) != 1 || skipped[0].OfferID != "offer-bad" {
		t.Fatalf("invalid offer not reported: %+v", skipped)
	}
	if skipped[0].Reason == "" {
		t.Error("skipped offer has empty reason")
	}
}

func TestCompareOffers_RejectsMalformedRates(t *testing.T) {
	e := newEngine()
	offers := []models.JobOffer{baseOffer("offer-a")}

	cases := []struct {
		name        string
		federal     decimal.Decimal
		state       decimal.Decimal
		weeksWorked int
	}{
		{"negative federal rate", d("-0.1"), d("0"), 48},
		{"federal rate above 1", d("1.5"), d("0"), 48},
		{"negative state rate", d("0.22"), d("-0.05"), 48},
		{"zero weeks worked", d("0.22"), d("0"), 0},
		{"negative weeks worked", d("0.22"), d("0"), -4},
	}
	for _, c := range cases {
		_, _, err := e.CompareOffers(offers, c.federal, c.state, c.weeksWorked)
		if !errors.Is(err, engine.ErrInvalidInput) {
			t.Errorf("%s: error = %v, want ErrInvalidInput", c.name, err)
		}
	}
}

func TestCompareOffers_ClampsCombinedRate(t *testing.T) {
	e := newEngine()
	// 0.9 + 0.9 sums past 1.0; the combined rate clamps so take-home stays
	// at stipend level instead of going negative.
	o := baseOffer("offer-a")
	results, _, err := e.CompareOffers([]models.JobOffer{o}, d("0.9"), d("0.9"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	if !results[0].WeeklyTakeHome.Equal(d("1500")) {
		t.Errorf("weekly take-home at clamped 100%% rate = %s, want 1500", results[0].WeeklyTakeHome)
	}
	if results[0].WeeklyTakeHome.IsNegative() {
		t.Error("weekly take-home went negative")
	}
}

func TestCompareOffers_AmortizesBonusAndOvertime(t *testing.T) {
	e := newEngine()
	o := baseOffer("offer-a")
	o.CompletionBonus = d("1300") // 100/week over 13 weeks
	o.OvertimeRate = d("75")
	o.OvertimeHours = d("4")

	results, _, err := e.CompareOffers([]models.JobOffer{o}, d("0.20"), d("0"), 48)
	if err != nil {
		t.Fatalf("CompareOffers returned unexpected error: %v", err)
	}
	r := results[0]
	// taxable = 50*36 + 75*4 = 2100; tax = 420; non-taxable = 1500 + 100
	if !r.WeeklyTaxableIncome.Equal(d("2100")) {
		t.Errorf("weekly taxable income = %s, want 2100", r.WeeklyTaxableIncome)
	}
	if !r.WeeklyTax.Equal(d("420")) {
		t.Errorf("weekly tax = %s, want 420", r.WeeklyTax)
	}
	if !r.WeeklyTakeHome.Equal(d("3280")) {
		t.Errorf("weekly take-home = %s, want 3280", r.WeeklyTakeHome)
	}
}

// ── CheckGSACompliance ─────────────────────────────────────────────────────

func TestCheckGSACompliance_Boundary(t *testing.T) {
	e := newEngine()
	lodging, meals := d("107"), d("79") // weekly ceiling (107+79)*7 = 1302

	atCeiling := baseOffer("offer-a")
	atCeiling.WeeklyStipend = d("1302")
	result, err := e.CheckGSACompliance(atCeiling, lodging, meals)
	if err != nil {
		t.Fatalf("CheckGSACompliance returned unexpected error: %v", err)
	}
	if !result.Compliant {
		t.Error("stipend exactly at ceiling should be compliant")
	}
	if !result.ExcessAmount.Equal(d("0")) {
		t.Errorf("excess at ceiling = %s, want 0", result.ExcessAmount)
	}

	overCeiling := baseOffer("offer-b")
	overCeiling.WeeklyStipend = d("1303")
	result, err = e.CheckGSACompliance(overCeiling, lodging, meals)
	if err != nil {
		t.Fatalf("CheckGSACompliance returned unexpected error: %v", err)
	}
	if result.Compliant {
		t.Error("stipend above ceiling should be non-compliant")
	}
	if !result.ExcessAmount.Equal(d("1")) {
		t.Errorf("excess above ceiling = %s, want 1", result.ExcessAmount)
	}
}

func TestCheckGSACompliance_ZeroCeilingFlagsAnyStipend(t *testing.T) {
	e := newEngine()
	o := baseOffer("offer-a")
	o.WeeklyStipend = d("1")

	result, err := e.CheckGSACompliance(o, d("0"), d("0"))
	if err != nil {
		t.Fatalf("CheckGSACompliance returned unexpected error: %v", err)
	}
	if result.Compliant {
		t.Error("nonzero stipend against a zero ceiling should be flagged for review")
	}
	if !result.ExcessAmount.Equal(d("1")) {
		t.Errorf("excess = %s, want 1", result.ExcessAmount)
	}
}

func TestCheckGSACompliance_RejectsNegativeRates(t *testing.T) {
	_, err := newEngine().CheckGSACompliance(baseOffer("offer-a"), d("-1"), d("79"))
	if !errors.Is(err, engine.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

// ── StipendTaxSavings ──────────────────────────────────────────────────────

func TestStipendTaxSavings(t *testing.T) {
	e := newEngine()
	o := baseOffer("offer-a") // stipend 1500

	savings, err := e.StipendTaxSavings(o, d("0.22"), d("0.05"), 48)
	if err != nil {
		t.Fatalf("StipendTaxSavings returned unexpected error: %v", err)
	}
	// 1500 * 0.27 * 48 = 19440
	if !savings.Equal(d("19440")) {
		t.Errorf("savings = %s, want 19440", savings)
	}
}

func TestStipendTaxSavings_NeverExceedsStipend(t *testing.T) {
	e := newEngine()
	o := baseOffer("offer-a")
	weeks := 48

	// Combined rate clamps at 1, so weekly savings cap at the stipend itself.
	savings, err := e.StipendTaxSavings(o, d("1"), d("1"), weeks)
	if err != nil {
		t.Fatalf("StipendTaxSavings returned unexpected error: %v", err)
	}
	maxTotal := o.WeeklyStipend.Mul(decimal.NewFromInt(int64(weeks)))
	if savings.GreaterThan(maxTotal) {
		t.Errorf("savings %s exceeds total stipend %s", savings, maxTotal)
	}
	if !savings.Equal(maxTotal) {
		t.Errorf("savings at 100%% combined rate = %s, want %s", savings, maxTotal)
	}
}

func TestStipendTaxSavings_RejectsInvalidInput(t *testing.T) {
	e := newEngine()
	o := baseOffer("offer-a")

	if _, err := e.StipendTaxSavings(o, d("-0.1"), d("0"), 48); !errors.Is(err, engine.ErrInvalidInput) {
		t.Errorf("negative rate: error = %v, want ErrInvalidInput", err)
	}
	if _, err := e.StipendTaxSavings(o, d("0.22"), d("0"), 0); !errors.Is(err, engine.ErrInvalidInput) {
		t.Errorf("zero weeks: error = %v, want ErrInvalidInput", err)
	}
}

// ── StateTaxRate ───────────────────────────────────────────────────────────

func TestStateTaxRate_UnknownState(t *testing.T) {
	_, err := newEngine().StateTaxRate("ZZ")
	if !errors.Is(err, taxes.ErrUnknownState) {
		t.Errorf("StateTaxRate(\"ZZ\") error = %v, want ErrUnknownState", err)
	}
}
