// Package storage persists tax calculations.
// Supports multiple backends: memory, file, PostgreSQL.
package storage

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
	"sasu-tax/internal/config"
	"sasu-tax/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
)

// DefaultListLimit applies when a filter has no limit
const DefaultListLimit = 100

// Calculation statuses
const (
	StatusDraft    = "draft"
	StatusFinal    = "final"
	StatusArchived = "archived"
)

// Summary column scales; Details keeps full precision
const (
	amountScale = 2
	rateScale   = 6
)

// Store is the storage interface
type Store interface {
	// Save stores a calculation, assigning ID and CreatedAt when empty
	Save(ctx context.Context, calc *StoredCalculation) error

	// Get retrieves a calculation by ID
	Get(ctx context.Context, id string) (*StoredCalculation, error)

	// List returns calculations newest first
	List(ctx context.Context, filter *ListFilter) ([]*StoredCalculation, error)

	// Update changes the metadata of a calculation and returns the updated record
	Update(ctx context.Context, id string, update *CalculationUpdate) (*StoredCalculation, error)

	// Delete removes a calculation
	Delete(ctx context.Context, id string) error

	// Close releases backend resources
	Close() error
}

// StoredCalculation is a saved tax calculation with its headline figures
type StoredCalculation struct {
	ID string `json:"id"`

	// CompanyID groups calculations; empty means unassigned
	CompanyID string `json:"company_id,omitempty"`

	TaxYear     int    `json:"tax_year"`
	RateTableID string `json:"rate_table_id"`

	// CalculationType is salary, dividend, mixed or annual
	CalculationType string `json:"calculation_type"`

	ScenarioName        string `json:"scenario_name,omitempty"`
	ScenarioDescription string `json:"scenario_description,omitempty"`
	Notes               string `json:"notes,omitempty"`
	Status              string `json:"status"`

	GrossSalary      decimal.Decimal `json:"gross_salary"`
	Dividends        decimal.Decimal `json:"dividends"`
	Revenue          decimal.Decimal `json:"revenue"`
	Expenses         decimal.Decimal `json:"expenses"`
	TotalTaxes       decimal.Decimal `json:"total_taxes"`
	NetIncome        decimal.Decimal `json:"net_income_after_tax"`
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"`

	// Details is the full breakdown
	Details *types.TaxationResult `json:"details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStoredCalculation copies the headline figures out of a result.
// Amounts are rounded to cents and the rate to six decimals in every backend.
func NewStoredCalculation(result *types.TaxationResult, companyID, scenarioName, notes string) *StoredCalculation {
	return &StoredCalculation{
		CompanyID:        companyID,
		TaxYear:          result.TaxYear,
		RateTableID:      result.RateTableID,
		CalculationType:  calculationType(result.Input),
		ScenarioName:     scenarioName,
		Notes:            notes,
		Status:           StatusFinal,
		GrossSalary:      result.Input.GrossSalary.Round(amountScale),
		Dividends:        result.Dividends.Dividends.Round(amountScale),
		Revenue:          result.Input.Revenue.Round(amountScale),
		Expenses:         result.Input.Expenses.Round(amountScale),
		TotalTaxes:       result.Summary.TotalTaxes.Round(amountScale),
		NetIncome:        result.Summary.NetIncome.Round(amountScale),
		EffectiveTaxRate: result.Summary.EffectiveTaxRate.Round(rateScale),
		Details:          result,
	}
}

// CalculationUpdate is a partial metadata change; nil fields are left as they are
type CalculationUpdate struct {
	ScenarioName        *string `json:"scenario_name,omitempty"`
	ScenarioDescription *string `json:"scenario_description,omitempty"`
	Status              *string `json:"status,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// Validate rejects unknown statuses
func (u *CalculationUpdate) Validate() error {
	if u == nil || u.Status == nil {
		return nil
	}
	switch *u.Status {
	case StatusDraft, StatusFinal, StatusArchived:
		return nil
	default:
		return errors.InvalidInput("status must be one of %s, %s, %s; got %q",
			StatusDraft, StatusFinal, StatusArchived, *u.Status)
	}
}

func (u *CalculationUpdate) apply(calc *StoredCalculation, now time.Time) {
	if u != nil {
		if u.ScenarioName != nil {
			calc.ScenarioName = *u.ScenarioName
		}
		if u.ScenarioDescription != nil {
			calc.ScenarioDescription = *u.ScenarioDescription
		}
		if u.Status != nil {
			calc.Status = *u.Status
		}
		if u.Notes != nil {
			calc.Notes = *u.Notes
		}
	}
	calc.UpdatedAt = now
}

func calculationType(in types.RemunerationInput) string {
	switch {
	case in.GrossSalary.IsPositive() && in.Dividends.IsPositive():
		return "mixed"
	case in.Dividends.IsPositive():
		return "dividend"
	case in.GrossSalary.IsPositive():
		return "salary"
	default:
		return "annual"
	}
}

// ListFilter filters calculation listing
type ListFilter struct {
	CompanyID string
	TaxYear   int
	Limit     int
	Offset    int
}

func (f *ListFilter) matches(calc *StoredCalculation) bool {
	if f == nil {
		return true
	}
	if f.CompanyID != "" && calc.CompanyID != f.CompanyID {
		return false
	}
	if f.TaxYear != 0 && calc.TaxYear != f.TaxYear {
		return false
	}
	return true
}

func (f *ListFilter) limit() int {
	if f == nil || f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f *ListFilter) offset() int {
	if f == nil || f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// sortAndPage orders newest first (ID breaks ties) then applies offset and limit
func sortAndPage(results []*StoredCalculation, filter *ListFilter) []*StoredCalculation {
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})

	offset := filter.offset()
	if offset >= len(results) {
		return []*StoredCalculation{}
	}
	results = results[offset:]

	if limit := filter.limit(); limit < len(results) {
		results = results[:limit]
	}
	return results
}

func notFound(id string) error {
	return errors.NotFound("calculation", id)
}

// Open creates the store selected by configuration
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch Backend(cfg.Backend) {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(cfg.Directory)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported storage backend: %s", cfg.Backend)
	}
}

// Ensure interfaces are implemented
var (
	_ Store     = (*MemoryStore)(nil)
	_ Store     = (*FileStore)(nil)
	_ Store     = (*PostgresStore)(nil)
	_ io.Closer = (*PostgresStore)(nil)
)
