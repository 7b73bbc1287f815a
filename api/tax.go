package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sasu-tax/core/diff"
	"sasu-tax/core/engine"
	"sasu-tax/core/optimizer"
	"sasu-tax/core/rates"
	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

// maxParallelYears bounds the goroutines of one year comparison
const maxParallelYears = 4

// resolveTable picks the table for a requested year; zero means the default year
func (s *Server) resolveTable(year int) (*rates.Table, error) {
	if year == 0 {
		year = s.defaultYear
	}
	if year == 0 {
		return s.registry.Latest()
	}

	table, err := s.registry.Get(year)
	if errors.IsType(err, errors.TypeNotFound) {
		return nil, errors.InvalidInput("tax year %d is not supported (available: %v)", year, s.registry.Years())
	}
	return table, err
}

// remunerationInput turns a request into engine input; an explicit rate wins over a preset
func remunerationInput(req *CalculateRequest, eng *engine.Engine) (types.RemunerationInput, error) {
	in := types.RemunerationInput{
		GrossSalary: req.GrossSalary,
		Dividends:   req.Dividends,
		Revenue:     req.Revenue,
		Expenses:    req.Expenses,
	}

	if req.VATRate != nil {
		rate := *req.VATRate
		if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return in, errors.InvalidInput("VAT rate must be in (0, 1], got %s", rate)
		}
		in.VATRate = rate
		return in, nil
	}

	rate, err := eng.VATRate(req.VATPreset)
	if err != nil {
		return in, err
	}
	in.VATRate = rate
	return in, nil
}

func (s *Server) calculate(req *CalculateRequest) (*types.TaxationResult, *engine.Engine, error) {
	table, err := s.resolveTable(req.TaxYear)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(table)
	in, err := remunerationInput(req, eng)
	if err != nil {
		return nil, nil, err
	}

	result, err := eng.CompleteTaxation(in)
	if err != nil {
		return nil, nil, err
	}
	return result, eng, nil
}

// handleCalculate handles POST /api/v1/tax/calculate
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	var req CalculateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Input(&req)

	result, eng, err := s.calculate(&req)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(result.TaxYear, result.RateTableID)

	resp := newCalculationResponse(&req, result)
	if req.wantsRecommendations() {
		resp.Recommendations = optimizer.New(eng).Recommendations(result)
	}

	s.writeSuccess(w, rec, resp, http.StatusOK)
}

// handleOptimize handles POST /api/v1/tax/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	var req OptimizeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Input(&req)

	table, err := s.resolveTable(req.TaxYear)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(table.Year(), table.ID())

	opt := optimizer.New(engine.New(table), optimizer.WithLogger(s.logger.Named("optimizer")))
	comparison, err := opt.CompareStrategies(req.TargetNetIncome, req.Revenue, req.Expenses, types.SalaryConstraints{
		MinSalary: req.MinSalary,
		MaxSalary: req.MaxSalary,
	})
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	if req.RequireConvergence && !comparison.Optimal.Converged {
		s.writeFailure(w, r, rec, errors.NoFeasibleSolution(fmt.Sprintf(
			"no salary/dividend split reaches a net income of %s within %s",
			optimizer.FormatEuros(req.TargetNetIncome), optimizer.FormatEuros(optimizer.TargetTolerance))))
		return
	}

	s.writeSuccess(w, rec, comparison, http.StatusOK)
}

// handleCompareYears handles POST /api/v1/tax/compare-years.
// Each year runs on its own engine over the shared immutable table.
func (s *Server) handleCompareYears(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	var req CompareYearsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Input(&req)

	years := uniqueYears(req.Years)
	if len(years) == 0 {
		years = s.registry.Years()
	}

	tables := make([]*rates.Table, len(years))
	for i, year := range years {
		table, err := s.resolveTable(year)
		if err != nil {
			s.writeFailure(w, r, rec, err)
			return
		}
		tables[i] = table
	}

	summaries := make([]YearSummary, len(tables))
	results := make([]*types.TaxationResult, len(tables))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxParallelYears)

	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			eng := engine.New(table)
			in, err := remunerationInput(&req.CalculateRequest, eng)
			if err != nil {
				return err
			}
			result, err := eng.CompleteTaxation(in)
			if err != nil {
				return err
			}

			results[i] = result
			summaries[i] = YearSummary{
				TaxYear:     result.TaxYear,
				RateTableID: result.RateTableID,
				VATRate:     result.VAT.VATRate,
				NetSalary:   result.Salary.NetSalary,
				Summary:     result.Summary,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}

	resp := &CompareYearsResponse{Years: summaries, Changes: []*diff.Result{}}
	differ := diff.NewDiffer(decimal.Zero)
	for i := 1; i < len(results); i++ {
		resp.Changes = append(resp.Changes, differ.Diff(results[0], results[i]))
	}

	s.writeSuccess(w, rec, resp, http.StatusOK)
}

func uniqueYears(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, year := range years {
		if _, ok := seen[year]; ok {
			continue
		}
		seen[year] = struct{}{}
		out = append(out, year)
	}
	sort.Ints(out)
	return out
}
