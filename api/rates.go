package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sasu-tax/internal/errors"
)

// handleListRates handles GET /api/v1/rates
func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	tables := s.registry.Tables()
	infos := make([]RateTableInfo, 0, len(tables))
	for _, table := range tables {
		infos = append(infos, RateTableInfo{
			Year:     table.Year(),
			ID:       table.ID(),
			Currency: table.Currency(),
		})
	}

	s.writeSuccess(w, rec, infos, http.StatusOK)
}

// handleGetRates handles GET /api/v1/rates/{year}
func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rec := recorderFor(r)

	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		s.writeFailure(w, r, rec, errors.InvalidInput("invalid tax year %q", raw))
		return
	}

	table, err := s.registry.Get(year)
	if err != nil {
		s.writeFailure(w, r, rec, err)
		return
	}
	rec.Table(table.Year(), table.ID())

	s.writeSuccess(w, rec, table, http.StatusOK)
}
