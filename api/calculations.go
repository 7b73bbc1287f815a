package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sasu-tax/adapters/storage"
	"sasu-tax/internal/errors"
)

// maxListLimit bounds one page of stored calculations
const maxListLimit = 1000

// handleSaveCalculation handles POST /api/v1/tax/calculations
func (s *Server) handleSaveCalculation(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	var req SaveCalculationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Input(&req)

	result, _, err := s.calculate(&req.CalculateRequest)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(result.TaxYear, result.RateTableID)

	calc := storage.NewStoredCalculation(result, req.CompanyID, req.ScenarioName, req.Notes)
	calc.ScenarioDescription = req.ScenarioDescription
	if err := s.store.Save(r.Context(), calc); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}

	s.writeSuccess(w, rec, calc, http.StatusCreated)
}

// handleListCalculations handles GET /api/v1/tax/calculations
func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)
	query := r.URL.Query()

	filter := &storage.ListFilter{CompanyID: query.Get("company_id")}
	var err error
	if filter.TaxYear, err = queryInt(query.Get("tax_year"), 0); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	if filter.Offset, err = queryInt(query.Get("skip"), 0); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	if filter.Limit, err = queryInt(query.Get("limit"), storage.DefaultListLimit); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		s.writeFailure(w, r, rec, errors.InvalidInput("limit must be between 1 and %d", maxListLimit))
		return
	}

	calcs, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}

	s.writeSuccess(w, rec, &CalculationList{
		Calculations: calcs,
		Count:        len(calcs),
		Skip:         filter.Offset,
		Limit:        filter.Limit,
	}, http.StatusOK)
}

// handleGetCalculation handles GET /api/v1/tax/calculations/{id}
func (s *Server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	calc, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(calc.TaxYear, calc.RateTableID)

	s.writeSuccess(w, rec, calc, http.StatusOK)
}

// handleUpdateCalculation handles PUT /api/v1/tax/calculations/{id}
func (s *Server) handleUpdateCalculation(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	var req UpdateCalculationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Input(&req)

	calc, err := s.store.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(calc.TaxYear, calc.RateTableID)

	s.writeSuccess(w, rec, calc, http.StatusOK)
}

// handleDeleteCalculation handles DELETE /api/v1/tax/calculations/{id}
func (s *Server) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}

	s.writeSuccess(w, rec, map[string]string{"id": id, "status": "deleted"}, http.StatusOK)
}

// queryInt parses a non-negative query parameter
func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.InvalidInput("expected a non-negative integer, got %q", raw)
	}
	return n, nil
}
