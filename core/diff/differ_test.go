package diff

import (
	"testing"

	"sasu-tax/core/engine"
	"sasu-tax/core/rates"
	"sasu-tax/core/rates/ratestest"
	"sasu-tax/core/types"
)

var d = ratestest.D

func taxation(t *testing.T, table *rates.Table, salary string) *types.TaxationResult {
	t.Helper()
	result, err := engine.New(table).CompleteTaxation(types.RemunerationInput{
		GrossSalary: d(salary),
		Revenue:     d("150000"),
		Expenses:    d("50000"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestDiffIdentical(t *testing.T) {
	table := ratestest.France2024()
	a := taxation(t, table, "40000")
	b := taxation(t, table, "40000")

	result := NewDiffer(d("0")).Diff(a, b)
	if result.HasChanges() {
		t.Errorf("identical results produced changes: %+v", result.Lines)
	}
	if !result.TotalDelta.IsZero() || !result.DeltaPercent.IsZero() {
		t.Errorf("expected zero delta, got %s (%s%%)", result.TotalDelta, result.DeltaPercent)
	}
}

// TestDiffAcrossYears checks a wider income-tax scale lowers tax on the same salary
func TestDiffAcrossYears(t *testing.T) {
	registry, err := rates.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	t2024, _ := registry.Get(2024)
	t2025, _ := registry.Get(2025)

	result := NewDiffer(d("0.01")).Diff(taxation(t, t2024, "40000"), taxation(t, t2025, "40000"))
	if result.BaseYear != 2024 || result.Year != 2025 {
		t.Errorf("years = %d -> %d", result.BaseYear, result.Year)
	}

	var found bool
	for _, line := range result.Lines {
		if line.Name == "tax_on_salary" {
			found = true
			if line.ChangeType != ChangeDecreased || !line.Delta.IsNegative() {
				t.Errorf("tax on salary should decrease, got %s (%s)", line.ChangeType, line.Delta)
			}
		}
		if line.Name == "employer_charges" {
			t.Error("salary charges are identical in both tables")
		}
	}
	if !found {
		t.Errorf("tax on salary missing from %+v", result.Lines)
	}
}

func TestDiffThreshold(t *testing.T) {
	table := ratestest.France2024()
	a := taxation(t, table, "40000")
	b := taxation(t, table, "40001")

	if NewDiffer(d("1000")).Diff(a, b).HasChanges() {
		t.Error("a one euro raise is under a 1000 threshold")
	}
	if !NewDiffer(d("0.01")).Diff(a, b).HasChanges() {
		t.Error("a one euro raise is over a cent threshold")
	}
}

func TestChangeTypeText(t *testing.T) {
	for _, c := range []ChangeType{ChangeUnchanged, ChangeIncreased, ChangeDecreased} {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var parsed ChangeType
		if err := parsed.UnmarshalText(text); err != nil || parsed != c {
			t.Errorf("%s did not parse back: %v", text, err)
		}
	}

	var c ChangeType
	if err := c.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected an error for an unknown name")
	}
}
