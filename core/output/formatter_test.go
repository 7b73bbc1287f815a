package output

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"sasu-tax/core/engine"
	"sasu-tax/core/optimizer"
	"sasu-tax/core/rates/ratestest"
	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

var d = ratestest.D

func salaryScenario(t *testing.T) *types.TaxationResult {
	t.Helper()
	result, err := engine.New(ratestest.France2024()).CompleteTaxation(types.RemunerationInput{
		GrossSalary: d("40000"),
		Revenue:     d("150000"),
		Expenses:    d("50000"),
		VATRate:     d("0.20"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00 €"},
		{"999.5", "999,50 €"},
		{"1000", "1 000,00 €"},
		{"29353.54", "29 353,54 €"},
		{"1234567.891", "1 234 567,89 €"},
		{"-42500", "-42 500,00 €"},
	}
	for _, tt := range tests {
		if got := Money(d(tt.in)); got != tt.want {
			t.Errorf("Money(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(d("0.055")); got != "5.50 %" {
		t.Errorf("Percent(0.055) = %q", got)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"table", "JSON", ""} {
		if _, err := New(name, true); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("html", true); !errors.IsType(err, errors.TypeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for html, got %v", err)
	}
}

// TestTableTaxation checks figures appear and every row has the same width
func TestTableTaxation(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{NoColor: true}
	if err := f.RenderTaxation(&buf, salaryScenario(t), []string{"first advice"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"SASU taxation 2024", "29 353,54 €", "53 996,46 €", "• first advice"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	width := -1
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "│") && !strings.Contains(line, "┼") {
			continue
		}
		n := utf8.RuneCountInString(line)
		if width == -1 {
			width = n
		} else if n != width {
			t.Errorf("misaligned row (%d runes, want %d): %q", n, width, line)
		}
	}
}

func TestTableCappedDividendsWarning(t *testing.T) {
	result, err := engine.New(ratestest.France2024()).CompleteTaxation(types.RemunerationInput{
		Dividends: d("100000"),
		Revenue:   d("60000"),
		Expenses:  d("55000"),
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := (&TableFormatter{NoColor: true}).RenderTaxation(&buf, result, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "capped at 4 250,00 €") {
		t.Errorf("missing cap warning:\n%s", buf.String())
	}
}

func TestJSONComparison(t *testing.T) {
	opt := optimizer.New(engine.New(ratestest.France2024()))
	cmp, err := opt.CompareStrategies(d("50000"), d("120000"), d("30000"), types.SalaryConstraints{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := (&JSONFormatter{Indent: "  "}).RenderComparison(&buf, cmp); err != nil {
		t.Fatal(err)
	}

	var decoded types.StrategyComparison
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !decoded.Optimal.OptimalGrossSalary.Equal(cmp.Optimal.OptimalGrossSalary) {
		t.Error("optimal salary did not survive encoding")
	}
}

func TestTableRates(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{NoColor: true}).RenderRates(&buf, ratestest.France2024()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Rates 2024", "42 500,00 €", "∞", "standard", "20 966,40 €"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("rates output missing %q", want)
		}
	}
}
