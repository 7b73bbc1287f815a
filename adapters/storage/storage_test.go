package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sasu-tax/core/engine"
	"sasu-tax/core/rates/ratestest"
	"sasu-tax/core/types"
	"sasu-tax/internal/config"
	"sasu-tax/internal/errors"
)

func sampleResult(t *testing.T, salary string) *types.TaxationResult {
	t.Helper()
	result, err := engine.New(ratestest.France2024()).CompleteTaxation(types.RemunerationInput{
		GrossSalary: ratestest.D(salary),
		Dividends:   ratestest.D("20000"),
		Revenue:     ratestest.D("150000"),
		Expenses:    ratestest.D("30000"),
	})
	if err != nil {
		t.Fatalf("taxation failed: %v", err)
	}
	return result
}

func stores(t *testing.T) map[string]Store {
	file, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
	}
}

// TestStoreLifecycle runs save, get, list and delete against every local backend
func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			calc := NewStoredCalculation(sampleResult(t, "50000"), "acme", "baseline", "first pass")
			if err := store.Save(ctx, calc); err != nil {
				t.Fatalf("save: %v", err)
			}
			if calc.ID == "" || calc.CreatedAt.IsZero() {
				t.Fatal("save must assign ID and CreatedAt")
			}

			got, err := store.Get(ctx, calc.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.CalculationType != "mixed" || got.Status != StatusFinal {
				t.Errorf("unexpected type/status: %s/%s", got.CalculationType, got.Status)
			}
			if !got.TotalTaxes.Equal(calc.TotalTaxes) || !got.Details.Summary.NetIncome.Equal(calc.NetIncome) {
				t.Errorf("figures did not survive storage: %s vs %s", got.TotalTaxes, calc.TotalTaxes)
			}

			list, err := store.List(ctx, &ListFilter{CompanyID: "acme"})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 || list[0].ID != calc.ID {
				t.Errorf("expected the saved calculation, got %d entries", len(list))
			}

			notes, status := "signed off", StatusArchived
			updated, err := store.Update(ctx, calc.ID, &CalculationUpdate{Notes: &notes, Status: &status})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.Notes != notes || updated.Status != StatusArchived || updated.ScenarioName != "baseline" {
				t.Errorf("unexpected update result: notes %q status %q scenario %q",
					updated.Notes, updated.Status, updated.ScenarioName)
			}
			if updated.UpdatedAt.Before(updated.CreatedAt) {
				t.Errorf("updated_at %s before created_at %s", updated.UpdatedAt, updated.CreatedAt)
			}
			if got, err := store.Get(ctx, calc.ID); err != nil || got.Notes != notes || !got.TotalTaxes.Equal(calc.TotalTaxes) {
				t.Errorf("update did not persist: %+v, %v", got, err)
			}

			bad := "pending"
			if _, err := store.Update(ctx, calc.ID, &CalculationUpdate{Status: &bad}); !errors.IsType(err, errors.TypeInvalidInput) {
				t.Errorf("expected INVALID_INPUT for status %q, got %v", bad, err)
			}
			if _, err := store.Update(ctx, "6f1c2a34-0000-4000-8000-000000000000", &CalculationUpdate{Notes: &notes}); !errors.IsType(err, errors.TypeNotFound) {
				t.Errorf("expected NOT_FOUND for an unknown id, got %v", err)
			}

			if err := store.Delete(ctx, calc.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, calc.ID); !errors.IsType(err, errors.TypeNotFound) {
				t.Errorf("expected NOT_FOUND after delete, got %v", err)
			}
			if err := store.Delete(ctx, calc.ID); !errors.IsType(err, errors.TypeNotFound) {
				t.Errorf("expected NOT_FOUND on second delete, got %v", err)
			}
		})
	}
}

// TestListOrderAndPaging checks newest-first ordering, filters and offset/limit
func TestListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for i, salary := range []string{"30000", "40000", "50000", "60000"} {
				company := "acme"
				if i == 3 {
					company = "globex"
				}
				calc := NewStoredCalculation(sampleResult(t, salary), company, "", "")
				calc.CreatedAt = base.Add(time.Duration(i) * time.Hour)
				if err := store.Save(ctx, calc); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, calc.ID)
			}

			tests := []struct {
				name   string
				filter *ListFilter
				want   []string
			}{
				{name: "all", filter: nil, want: []string{ids[3], ids[2], ids[1], ids[0]}},
				{name: "company", filter: &ListFilter{CompanyID: "acme"}, want: []string{ids[2], ids[1], ids[0]}},
				{name: "paged", filter: &ListFilter{CompanyID: "acme", Offset: 1, Limit: 1}, want: []string{ids[1]}},
				{name: "offset past end", filter: &ListFilter{Offset: 10}, want: []string{}},
				{name: "other year", filter: &ListFilter{TaxYear: 2025}, want: []string{}},
				{name: "unknown company", filter: &ListFilter{CompanyID: "initech"}, want: []string{}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := store.List(ctx, tt.filter)
					if err != nil {
						t.Fatal(err)
					}
					if len(got) != len(tt.want) {
						t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
					}
					for i := range tt.want {
						if got[i].ID != tt.want[i] {
							t.Errorf("position %d: got %s, want %s", i, got[i].ID, tt.want[i])
						}
					}
				})
			}
		})
	}
}

func TestFileStoreRejectsNonUUID(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	calc := NewStoredCalculation(sampleResult(t, "50000"), "", "", "")
	calc.ID = "../escape"
	if err := store.Save(context.Background(), calc); !errors.IsType(err, errors.TypeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := store.Get(context.Background(), "../escape"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// TestSummaryColumnsAreRounded keeps headline figures identical across backends
func TestSummaryColumnsAreRounded(t *testing.T) {
	result := sampleResult(t, "48600.321765625")
	calc := NewStoredCalculation(result, "", "", "")

	if !calc.GrossSalary.Equal(ratestest.D("48600.32")) {
		t.Errorf("gross salary = %s, want 48600.32", calc.GrossSalary)
	}
	for name, value := range map[string]decimal.Decimal{
		"dividends":   calc.Dividends,
		"total taxes": calc.TotalTaxes,
		"net income":  calc.NetIncome,
	} {
		if !value.Equal(value.Round(2)) {
			t.Errorf("%s keeps more than two decimals: %s", name, value)
		}
	}
	if !calc.EffectiveTaxRate.Equal(calc.EffectiveTaxRate.Round(6)) {
		t.Errorf("effective rate keeps more than six decimals: %s", calc.EffectiveTaxRate)
	}
	if !calc.Details.Input.GrossSalary.Equal(ratestest.D("48600.321765625")) {
		t.Error("details must keep full precision")
	}
}

func TestCalculationType(t *testing.T) {
	tests := []struct {
		salary, dividends string
		want              string
	}{
		{"50000", "10000", "mixed"},
		{"50000", "0", "salary"},
		{"0", "10000", "dividend"},
		{"0", "0", "annual"},
	}
	for _, tt := range tests {
		in := types.RemunerationInput{GrossSalary: ratestest.D(tt.salary), Dividends: ratestest.D(tt.dividends)}
		if got := calculationType(in); got != tt.want {
			t.Errorf("calculationType(%s, %s) = %s, want %s", tt.salary, tt.dividends, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", store)
	}

	store, err = Open(ctx, config.StorageConfig{Backend: "file", Directory: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Errorf("expected file store, got %T", store)
	}

	if _, err := Open(ctx, config.StorageConfig{Backend: "redis"}); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG error, got %v", err)
	}
	if _, err := Open(ctx, config.StorageConfig{Backend: "postgres"}); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG error for missing URL, got %v", err)
	}
}
