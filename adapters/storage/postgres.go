package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tax_calculations (
	id                 UUID PRIMARY KEY,
	company_id         TEXT NOT NULL DEFAULT '',
	tax_year           INTEGER NOT NULL,
	rate_table_id      TEXT NOT NULL,
	calculation_type   TEXT NOT NULL,
	scenario_name      TEXT NOT NULL DEFAULT '',
	scenario_description TEXT NOT NULL DEFAULT '',
	notes              TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'final',
	gross_salary       NUMERIC(15,2) NOT NULL,
	dividends          NUMERIC(15,2) NOT NULL,
	revenue            NUMERIC(15,2) NOT NULL,
	expenses           NUMERIC(15,2) NOT NULL,
	total_taxes        NUMERIC(15,2) NOT NULL,
	net_income         NUMERIC(15,2) NOT NULL,
	effective_tax_rate NUMERIC(9,6) NOT NULL,
	details            JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE tax_calculations ADD COLUMN IF NOT EXISTS scenario_description TEXT NOT NULL DEFAULT '';
ALTER TABLE tax_calculations ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW();
CREATE INDEX IF NOT EXISTS idx_tax_calculations_company ON tax_calculations (company_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tax_calculations_year ON tax_calculations (tax_year);
`

// Numeric columns come back as text so decimals round-trip without float conversion
const selectColumns = `
	id::text, company_id, tax_year, rate_table_id, calculation_type,
	scenario_name, scenario_description, notes, status,
	gross_salary::text, dividends::text, revenue::text, expenses::text,
	total_taxes::text, net_income::text, effective_tax_rate::text,
	details::text, created_at, updated_at`

// PostgresStore stores calculations in the tax_calculations table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and ensures the schema exists
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New(errors.TypeConfig, "database URL is required for the postgres backend")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Storage("failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Storage("failed to reach database", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the table and indexes when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return errors.Storage("failed to create schema", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, calc *StoredCalculation) error {
	if calc.ID == "" {
		calc.ID = uuid.New().String()
	} else if _, err := uuid.Parse(calc.ID); err != nil {
		return errors.InvalidInput("calculation ID must be a UUID, got %q", calc.ID)
	}

	details, err := json.Marshal(calc.Details)
	if err != nil {
		return errors.Storage("failed to marshal calculation details", err)
	}
	if calc.Status == "" {
		calc.Status = StatusFinal
	}

	createdAt, updatedAt := calc.CreatedAt, calc.UpdatedAt
	err = s.pool.QueryRow(ctx, `
		INSERT INTO tax_calculations (
			id, company_id, tax_year, rate_table_id, calculation_type,
			scenario_name, scenario_description, notes, status,
			gross_salary, dividends, revenue, expenses,
			total_taxes, net_income, effective_tax_rate,
			details, created_at, updated_at
		) VALUES (
			$1::uuid, $2, $3, $4, $5, $6, $7, $8, $9,
			$10::numeric, $11::numeric, $12::numeric, $13::numeric,
			$14::numeric, $15::numeric, $16::numeric,
			$17::jsonb, COALESCE($18::timestamptz, NOW()),
			COALESCE($19::timestamptz, $18::timestamptz, NOW())
		)
		ON CONFLICT (id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			scenario_name = EXCLUDED.scenario_name,
			scenario_description = EXCLUDED.scenario_description,
			notes = EXCLUDED.notes,
			status = EXCLUDED.status,
			details = EXCLUDED.details,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		calc.ID, calc.CompanyID, calc.TaxYear, calc.RateTableID, calc.CalculationType,
		calc.ScenarioName, calc.ScenarioDescription, calc.Notes, calc.Status,
		calc.GrossSalary.String(), calc.Dividends.String(), calc.Revenue.String(), calc.Expenses.String(),
		calc.TotalTaxes.String(), calc.NetIncome.String(), calc.EffectiveTaxRate.String(),
		string(details), nullTime(createdAt), nullTime(updatedAt),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return errors.Storage("failed to save calculation", err)
	}

	calc.CreatedAt = createdAt.UTC()
	calc.UpdatedAt = updatedAt.UTC()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*StoredCalculation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM tax_calculations WHERE id = $1::uuid", id)
	calc, err := scanCalculation(row)
	if err == pgx.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Storage("failed to load calculation", err)
	}
	return calc, nil
}

func (s *PostgresStore) List(ctx context.Context, filter *ListFilter) ([]*StoredCalculation, error) {
	query := "SELECT " + selectColumns + " FROM tax_calculations"

	var conditions []string
	var args []interface{}
	if filter != nil && filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter != nil && filter.TaxYear != 0 {
		args = append(args, filter.TaxYear)
		conditions = append(conditions, fmt.Sprintf("tax_year = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.limit(), filter.offset())
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Storage("failed to list calculations", err)
	}
	defer rows.Close()

	results := []*StoredCalculation{}
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, errors.Storage("failed to scan calculation", err)
		}
		results = append(results, calc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("failed to iterate calculations", err)
	}
	return results, nil
}

// Update sets only the fields present in the update; COALESCE keeps the others
func (s *PostgresStore) Update(ctx context.Context, id string, update *CalculationUpdate) (*StoredCalculation, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}
	if update == nil {
		update = &CalculationUpdate{}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tax_calculations SET
			scenario_name = COALESCE($2::text, scenario_name),
			scenario_description = COALESCE($3::text, scenario_description),
			status = COALESCE($4::text, status),
			notes = COALESCE($5::text, notes),
			updated_at = NOW()
		WHERE id = $1::uuid
		RETURNING `+selectColumns,
		id, update.ScenarioName, update.ScenarioDescription, update.Status, update.Notes,
	)
	calc, err := scanCalculation(row)
	if err == pgx.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Storage("failed to update calculation", err)
	}
	return calc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM tax_calculations WHERE id = $1::uuid", id)
	if err != nil {
		return errors.Storage("failed to delete calculation", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanCalculation(row pgx.Row) (*StoredCalculation, error) {
	var calc StoredCalculation
	var numerics [7]string
	var details string

	err := row.Scan(
		&calc.ID, &calc.CompanyID, &calc.TaxYear, &calc.RateTableID, &calc.CalculationType,
		&calc.ScenarioName, &calc.ScenarioDescription, &calc.Notes, &calc.Status,
		&numerics[0], &numerics[1], &numerics[2], &numerics[3],
		&numerics[4], &numerics[5], &numerics[6],
		&details, &calc.CreatedAt, &calc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	targets := []*decimal.Decimal{
		&calc.GrossSalary, &calc.Dividends, &calc.Revenue, &calc.Expenses,
		&calc.TotalTaxes, &calc.NetIncome, &calc.EffectiveTaxRate,
	}
	for i, target := range targets {
		value, err := decimal.NewFromString(numerics[i])
		if err != nil {
			return nil, fmt.Errorf("numeric column %d: %w", i, err)
		}
		*target = value
	}

	calc.Details = &types.TaxationResult{}
	if err := json.Unmarshal([]byte(details), calc.Details); err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	calc.CreatedAt = calc.CreatedAt.UTC()
	calc.UpdatedAt = calc.UpdatedAt.UTC()
	return &calc, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
