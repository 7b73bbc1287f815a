package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sasu-tax/adapters/storage"
	"sasu-tax/api/envelope"
	"sasu-tax/core/rates"
	"sasu-tax/core/types"
)

type response[T any] struct {
	Data     T                   `json:"data"`
	Error    *envelope.ErrorBody `json:"error"`
	Metadata envelope.Metadata   `json:"metadata"`
}

func newTestServer(t *testing.T, configure ...func(*Options)) *Server {
	t.Helper()
	registry, err := rates.Builtin()
	if err != nil {
		t.Fatalf("builtin rates: %v", err)
	}
	opts := Options{
		Registry:    registry,
		DefaultYear: 2024,
		Version:     "test",
		CORSOrigins: []string{"http://localhost:3000"},
	}
	for _, fn := range configure {
		fn(&opts)
	}
	s := NewServer(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) response[T] {
	t.Helper()
	var out response[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return out
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

const salaryScenario = `{
	"tax_year": 2024,
	"gross_salary": 40000,
	"dividends": 0,
	"revenue": 150000,
	"expenses": 50000,
	"vat_preset": "standard"
}`

// TestCalculate runs the reference salary scenario through the HTTP layer
func TestCalculate(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/tax/calculate", salaryScenario)
	assertStatus(t, rec, http.StatusOK)

	resp := decodeResponse[CalculationResponse](t, rec)
	assertDecimal(t, "profit before tax", resp.Data.ProfitBeforeTax, "43200")
	assertDecimal(t, "corporate tax", resp.Data.CorporateTax, "6550")
	assertDecimal(t, "total taxes", resp.Data.TotalTaxes, "53996.46")
	assertDecimal(t, "net income", resp.Data.NetIncome, "29353.54")
	assertDecimal(t, "optimization potential", resp.Data.OptimizationPotential, "0")

	if resp.Data.CalculationDetails == nil || resp.Data.CalculationDetails.TaxYear != 2024 {
		t.Fatal("calculation details missing")
	}
	if resp.Data.Recommendations == nil {
		t.Error("recommendations are included by default")
	}

	meta := resp.Metadata
	if _, err := uuid.Parse(meta.RequestID); err != nil {
		t.Errorf("request id %q is not a uuid", meta.RequestID)
	}
	if len(meta.InputHash) != 64 {
		t.Errorf("input hash %q is not a sha256 hex", meta.InputHash)
	}
	if meta.TaxYear != 2024 || meta.RateTableID != resp.Data.CalculationDetails.RateTableID {
		t.Errorf("metadata table = (%d, %s)", meta.TaxYear, meta.RateTableID)
	}
	if got := rec.Header().Get(middleware.RequestIDHeader); got != meta.RequestID {
		t.Errorf("response header request id %q != %q", got, meta.RequestID)
	}
}

func TestCalculateWithoutRecommendations(t *testing.T) {
	s := newTestServer(t)
	body := `{"gross_salary": 40000, "revenue": 150000, "expenses": 50000, "include_recommendations": false}`
	rec := do(t, s, http.MethodPost, "/api/v1/tax/calculate", body)
	assertStatus(t, rec, http.StatusOK)

	resp := decodeResponse[CalculationResponse](t, rec)
	if resp.Data.Recommendations != nil {
		t.Errorf("unexpected recommendations: %v", resp.Data.Recommendations)
	}
	if resp.Metadata.TaxYear != 2024 {
		t.Errorf("default year = %d, want 2024", resp.Metadata.TaxYear)
	}
}

// TestInputHashIgnoresFormatting proves the hash covers the decoded request, not raw bytes
func TestInputHashIgnoresFormatting(t *testing.T) {
	s := newTestServer(t)
	compact := `{"expenses":50000,"revenue":150000,"gross_salary":40000,"tax_year":2024,"dividends":0,"vat_preset":"standard"}`

	first := decodeResponse[CalculationResponse](t, do(t, s, http.MethodPost, "/api/v1/tax/calculate", salaryScenario))
	second := decodeResponse[CalculationResponse](t, do(t, s, http.MethodPost, "/api/v1/tax/calculate", compact))

	if first.Metadata.InputHash != second.Metadata.InputHash {
		t.Errorf("hashes differ: %s vs %s", first.Metadata.InputHash, second.Metadata.InputHash)
	}
	if first.Metadata.RequestID == second.Metadata.RequestID {
		t.Error("request ids must be unique")
	}
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "malformed json", body: `{"gross_salary":`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "unknown field", body: `{"salary": 1}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "negative salary", body: `{"gross_salary": -1}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "unknown preset", body: `{"revenue": 1000, "vat_preset": "luxury"}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "vat rate above one", body: `{"revenue": 1000, "vat_rate": 1.5}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "explicit zero vat rate", body: `{"revenue": 1000, "vat_rate": 0}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "negative vat rate", body: `{"revenue": 1000, "vat_rate": -0.2}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "unsupported year", body: `{"tax_year": 1999, "revenue": 1000}`, status: http.StatusBadRequest, code: "INVALID_INPUT"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/tax/calculate", tt.body)
			assertStatus(t, rec, tt.status)

			resp := decodeResponse[interface{}](t, rec)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("expected error code %s, got %+v", tt.code, resp.Error)
			}
			if resp.Error.Message == "" || resp.Metadata.RequestID == "" {
				t.Error("errors must carry a message and a request id")
			}
		})
	}
}

func TestOptimize(t *testing.T) {
	s := newTestServer(t)
	body := `{"target_net_income": 50000, "revenue": 120000, "expenses": 30000}`
	rec := do(t, s, http.MethodPost, "/api/v1/tax/optimize", body)
	assertStatus(t, rec, http.StatusOK)

	resp := decodeResponse[types.StrategyComparison](t, rec)
	if resp.Data.Optimal == nil || !resp.Data.Optimal.Converged {
		t.Fatalf("expected a converged optimum, got %+v", resp.Data.Optimal)
	}
	if len(resp.Data.Recommendations) == 0 {
		t.Error("comparison must carry recommendations")
	}
	if resp.Data.SavingsVsAllSalary.IsNegative() {
		t.Errorf("negative savings: %s", resp.Data.SavingsVsAllSalary)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/tax/optimize", `{"target_net_income": -5, "revenue": 1000}`)
	assertStatus(t, rec, http.StatusBadRequest)

	rec = do(t, s, http.MethodPost, "/api/v1/tax/optimize", `{"target_net_income": 0, "revenue": 0}`)
	assertStatus(t, rec, http.StatusBadRequest)
}

// TestOptimizeRequireConvergence escalates the fallback only when asked to
func TestOptimizeRequireConvergence(t *testing.T) {
	s := newTestServer(t)
	unreachable := `{"target_net_income": 1000000, "revenue": 50000, "expenses": 0`

	rec := do(t, s, http.MethodPost, "/api/v1/tax/optimize", unreachable+`}`)
	assertStatus(t, rec, http.StatusOK)
	lenient := decodeResponse[types.StrategyComparison](t, rec)
	if lenient.Data.Optimal == nil || lenient.Data.Optimal.Converged {
		t.Fatalf("expected the fallback result, got %+v", lenient.Data.Optimal)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/tax/optimize", unreachable+`, "require_convergence": true}`)
	assertStatus(t, rec, http.StatusUnprocessableEntity)
	strict := decodeResponse[interface{}](t, rec)
	if strict.Error == nil || strict.Error.Code != "NO_FEASIBLE_SOLUTION" {
		t.Fatalf("expected NO_FEASIBLE_SOLUTION, got %+v", strict.Error)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/tax/optimize",
		`{"target_net_income": 50000, "revenue": 120000, "expenses": 30000, "require_convergence": true}`)
	assertStatus(t, rec, http.StatusOK)
}

// TestCompareYears checks ordering and deduplication of the concurrent comparison
func TestCompareYears(t *testing.T) {
	s := newTestServer(t)
	body := `{"gross_salary": 40000, "revenue": 150000, "expenses": 50000, "years": [2025, 2024, 2024]}`
	rec := do(t, s, http.MethodPost, "/api/v1/tax/compare-years", body)
	assertStatus(t, rec, http.StatusOK)

	resp := decodeResponse[CompareYearsResponse](t, rec)
	rows := resp.Data.Years
	if len(rows) != 2 || rows[0].TaxYear != 2024 || rows[1].TaxYear != 2025 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].RateTableID == rows[1].RateTableID {
		t.Error("each year must use its own rate table")
	}
	assertDecimal(t, "2024 total taxes", rows[0].Summary.TotalTaxes, "53996.46")

	if len(resp.Data.Changes) != 1 {
		t.Fatalf("expected one diff against 2024, got %d", len(resp.Data.Changes))
	}
	change := resp.Data.Changes[0]
	if change.BaseYear != 2024 || change.Year != 2025 || !change.HasChanges() {
		t.Errorf("unexpected diff: %+v", change)
	}
	if !change.TotalDelta.Equal(rows[1].Summary.TotalTaxes.Sub(rows[0].Summary.TotalTaxes)) {
		t.Errorf("total delta %s does not match the summaries", change.TotalDelta)
	}

	all := decodeResponse[CompareYearsResponse](t, do(t, s, http.MethodPost, "/api/v1/tax/compare-years", `{"revenue": 1000}`))
	if len(all.Data.Years) != 2 {
		t.Errorf("empty years must compare every table, got %d rows", len(all.Data.Years))
	}

	rec = do(t, s, http.MethodPost, "/api/v1/tax/compare-years", `{"revenue": 1000, "years": [2024, 1990]}`)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestCalculationsLifecycle(t *testing.T) {
	s := newTestServer(t)

	body := `{"gross_salary": 40000, "revenue": 150000, "expenses": 50000, "company_id": "acme", "scenario_name": "baseline"}`
	rec := do(t, s, http.MethodPost, "/api/v1/tax/calculations", body)
	assertStatus(t, rec, http.StatusCreated)

	created := decodeResponse[struct {
		ID           string          `json:"id"`
		ScenarioName string          `json:"scenario_name"`
		TotalTaxes   decimal.Decimal `json:"total_taxes"`
	}](t, rec)
	if created.Data.ID == "" || created.Data.ScenarioName != "baseline" {
		t.Fatalf("unexpected created calculation: %+v", created.Data)
	}
	assertDecimal(t, "stored total taxes", created.Data.TotalTaxes, "53996.46")

	list := decodeResponse[CalculationList](t, do(t, s, http.MethodGet, "/api/v1/tax/calculations?company_id=acme", ""))
	if list.Data.Count != 1 || list.Data.Limit != 100 {
		t.Errorf("unexpected list: count %d limit %d", list.Data.Count, list.Data.Limit)
	}

	empty := decodeResponse[CalculationList](t, do(t, s, http.MethodGet, "/api/v1/tax/calculations?company_id=globex", ""))
	if empty.Data.Count != 0 {
		t.Errorf("filter leaked %d calculations", empty.Data.Count)
	}

	path := "/api/v1/tax/calculations/" + created.Data.ID
	assertStatus(t, do(t, s, http.MethodGet, path, ""), http.StatusOK)

	rec = do(t, s, http.MethodPut, path, `{"notes": "reviewed", "status": "draft", "scenario_description": "salary only"}`)
	assertStatus(t, rec, http.StatusOK)
	updated := decodeResponse[storage.StoredCalculation](t, rec)
	if updated.Data.Notes != "reviewed" || updated.Data.Status != storage.StatusDraft ||
		updated.Data.ScenarioDescription != "salary only" {
		t.Errorf("update not applied: %+v", updated.Data)
	}
	if updated.Data.ScenarioName != "baseline" {
		t.Errorf("omitted fields must keep their value, scenario_name = %q", updated.Data.ScenarioName)
	}
	assertDecimal(t, "figures after update", updated.Data.TotalTaxes, "53996.46")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "unknown status", path: path, body: `{"status": "pending"}`, status: http.StatusBadRequest},
		{name: "figures are read only", path: path, body: `{"total_taxes": 0}`, status: http.StatusBadRequest},
		{name: "unknown id", path: "/api/v1/tax/calculations/" + uuid.New().String(), body: `{"notes": "x"}`, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertStatus(t, do(t, s, http.MethodPut, tt.path, tt.body), tt.status)
		})
	}

	assertStatus(t, do(t, s, http.MethodDelete, path, ""), http.StatusOK)

	rec = do(t, s, http.MethodGet, path, "")
	assertStatus(t, rec, http.StatusNotFound)
	if resp := decodeResponse[interface{}](t, rec); resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %+v", resp.Error)
	}
	assertStatus(t, do(t, s, http.MethodDelete, path, ""), http.StatusNotFound)
}

func TestListCalculationsQueryValidation(t *testing.T) {
	s := newTestServer(t)
	for _, query := range []string{"skip=-1", "limit=0", "limit=5000", "tax_year=abc"} {
		t.Run(query, func(t *testing.T) {
			assertStatus(t, do(t, s, http.MethodGet, "/api/v1/tax/calculations?"+query, ""), http.StatusBadRequest)
		})
	}
}

func TestRates(t *testing.T) {
	s := newTestServer(t)

	list := decodeResponse[[]RateTableInfo](t, do(t, s, http.MethodGet, "/api/v1/rates", ""))
	if len(list.Data) != 2 || list.Data[0].Year != 2024 || list.Data[1].Year != 2025 {
		t.Fatalf("unexpected tables: %+v", list.Data)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/rates/2024", "")
	assertStatus(t, rec, http.StatusOK)
	table := decodeResponse[map[string]interface{}](t, rec)
	if table.Data["id"] != list.Data[0].ID || table.Metadata.RateTableID != list.Data[0].ID {
		t.Errorf("table id mismatch: %v vs %s", table.Data["id"], list.Data[0].ID)
	}

	assertStatus(t, do(t, s, http.MethodGet, "/api/v1/rates/1999", ""), http.StatusNotFound)
	assertStatus(t, do(t, s, http.MethodGet, "/api/v1/rates/latest", ""), http.StatusBadRequest)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		assertStatus(t, do(t, s, http.MethodGet, "/api/v1/rates", ""), http.StatusOK)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/rates", "")
	assertStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}

	// Health is outside the limited group
	assertStatus(t, do(t, s, http.MethodGet, "/health", ""), http.StatusOK)
}

// TestCloseStopsLimiterCleanup checks Close ends the limiter goroutine and can be repeated
func TestCloseStopsLimiterCleanup(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 10 })
	if s.limiter == nil {
		t.Fatal("rate limiting must start a limiter")
	}

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case <-s.limiter.done:
	default:
		t.Error("cleanup goroutine still running after Close")
	}

	if err := newTestServer(t).Close(); err != nil {
		t.Errorf("closing a server without a limiter: %v", err)
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:80", forwarded: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{name: "ipv6", remoteAddr: "[::1]:8080", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := extractIP(req); got != tt.want {
				t.Errorf("extractIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthVersionAndRouting(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := newTestServer(t, func(o *Options) { o.Logger = zap.New(core) })

	assertStatus(t, do(t, s, http.MethodGet, "/health", ""), http.StatusOK)

	var version struct {
		Version  string `json:"version"`
		TaxYears []int  `json:"tax_years"`
	}
	if err := json.Unmarshal(do(t, s, http.MethodGet, "/version", "").Body.Bytes(), &version); err != nil {
		t.Fatal(err)
	}
	if version.Version != "test" || len(version.TaxYears) != 2 {
		t.Errorf("unexpected version payload: %+v", version)
	}

	rec := do(t, s, http.MethodGet, "/api/v1/nothing", "")
	assertStatus(t, rec, http.StatusNotFound)
	if resp := decodeResponse[interface{}](t, rec); resp.Error == nil {
		t.Error("unknown routes must use the error envelope")
	}

	assertStatus(t, do(t, s, http.MethodPut, "/api/v1/tax/calculate", "{}"), http.StatusMethodNotAllowed)

	if got := logs.FilterMessage("request").Len(); got != 4 {
		t.Errorf("expected one log line per request, got %d", got)
	}
}

func TestSuppliedRequestIDIsKept(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates", nil)
	req.Header.Set(middleware.RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	resp := decodeResponse[interface{}](t, rec)
	if resp.Metadata.RequestID != id {
		t.Errorf("request id = %s, want %s", resp.Metadata.RequestID, id)
	}
}
