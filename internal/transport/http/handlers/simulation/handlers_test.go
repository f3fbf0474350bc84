package simulationhandler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"salarysim/internal/domain/payroll"
	"salarysim/internal/platform/metrics"
	"salarysim/internal/transport/http/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

func newTestRouter(t *testing.T, maxBatch int) (http.Handler, *metrics.Collector) {
	t.Helper()
	collector := metrics.New()
	h := NewHandler(payroll.NewSimulator(payroll.DefaultSchedule()), collector, maxBatch)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/", h.HandleCompat)
	r.Route("/api/v1", h.RegisterRoutes)
	return r, collector
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestSimulateGrossToNet(t *testing.T) {
	router, collector := newTestRouter(t, 0)
	rec := post(t, router, "/api/v1/simulations", `{"method":"gross-to-net","taxResidentStatus":"local","grossSalary":"10,000,000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.RequestID == "" {
		t.Fatalf("expected success envelope with request id, got %+v", env)
	}
	var result payroll.Result
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.NetSalary != 8_950_000 || result.IncomeTax != 0 {
		t.Fatalf("unexpected result net=%d tax=%d", result.NetSalary, result.IncomeTax)
	}
	if collector.Snapshot()["grossToNetTotal"] != uint64(1) {
		t.Fatalf("expected one gross-to-net simulation recorded, got %v", collector.Snapshot())
	}
}

func TestSimulateNetToGrossReportsSolver(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	rec := post(t, router, "/api/v1/simulations", `{"method":"net-to-gross","netSalary":25222500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result payroll.Result
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Solver == nil || !result.Solver.Converged {
		t.Fatalf("expected converged solver info, got %+v", result.Solver)
	}
	if diff := result.NetSalary - 25_222_500; diff > 1 || diff < -1 {
		t.Fatalf("expected net close to target, got %d", result.NetSalary)
	}
}

func TestSimulateBelowMinimumIsUnprocessable(t *testing.T) {
	router, collector := newTestRouter(t, 0)
	rec := post(t, router, "/api/v1/simulations", `{"method":"gross-to-net","grossSalary":4000000}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != payroll.CodeBelowMinimum {
		t.Fatalf("expected below_minimum error, got %+v", env.Error)
	}
	if env.Error.Message != "Please enter a valid gross salary (minimum 5,000,000 VND)." {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
	if collector.Snapshot()["rejectedTotal"] != uint64(1) {
		t.Fatalf("expected rejection recorded, got %v", collector.Snapshot())
	}
}

func TestSimulateRejectsUnknownEnums(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	rec := post(t, router, "/api/v1/simulations", `{"method":"sideways","taxResidentStatus":"martian","grossSalary":10000000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	fields, _ := env.Error.Details["fields"].([]any)
	if len(fields) != 2 {
		t.Fatalf("expected two field issues, got %v", env.Error.Details)
	}
}

func TestSimulateMalformedPayload(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	rec := post(t, router, "/api/v1/simulations", `{"grossSalary":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != "invalid_payload" {
		t.Fatalf("expected invalid_payload, got %+v", env.Error)
	}
}

func TestCompatEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	rec := post(t, router, "/", `{"method":"gross-to-net","grossSalary":10000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var flat map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &flat); err != nil {
		t.Fatalf("decode flat result: %v", err)
	}
	if flat["netSalary"] != float64(8_950_000) {
		t.Fatalf("expected flat netSalary, got %v", flat["netSalary"])
	}
	if _, wrapped := flat["success"]; wrapped {
		t.Fatal("expected compat response without envelope")
	}

	rec = post(t, router, "/", `{"method":"net-to-gross","netSalary":1000000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for validation failure, got %d", rec.Code)
	}
	var failure map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode error record: %v", err)
	}
	if failure["error"] != "Please enter a valid net salary (minimum 4,475,000 VND)." {
		t.Fatalf("unexpected error record %v", failure)
	}

	rec = post(t, router, "/", `{"method":"sideways","grossSalary":10000000}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected unknown method error record, got %d %s", rec.Code, rec.Body.String())
	}

	rec = post(t, router, "/", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	router, collector := newTestRouter(t, 0)
	body := `{"items":[
		{"method":"gross-to-net","grossSalary":30000000},
		{"method":"gross-to-net","grossSalary":100},
		{"method":"gross-to-net","grossSalary":10000000}
	]}`
	rec := post(t, router, "/api/v1/simulations/batch", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var batch BatchResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch.Items) != 3 || batch.Succeeded != 2 || batch.Failed != 1 {
		t.Fatalf("unexpected batch summary %+v", batch)
	}
	for i, item := range batch.Items {
		if item.Index != i {
			t.Fatalf("expected item %d at position %d", item.Index, i)
		}
	}
	if batch.Items[0].Result.NetSalary != 25_222_500 {
		t.Fatalf("expected first item net 25,222,500, got %d", batch.Items[0].Result.NetSalary)
	}
	if batch.Items[1].Error == nil || batch.Items[1].Error.Code != payroll.CodeBelowMinimum {
		t.Fatalf("expected second item to fail below minimum, got %+v", batch.Items[1])
	}
	if batch.Items[2].Result.NetSalary != 8_950_000 {
		t.Fatalf("expected third item net 8,950,000, got %d", batch.Items[2].Result.NetSalary)
	}
	if collector.Snapshot()["grossToNetTotal"] != uint64(2) {
		t.Fatalf("expected two recorded simulations, got %v", collector.Snapshot())
	}
}

func TestBatchLimits(t *testing.T) {
	router, _ := newTestRouter(t, 2)

	rec := post(t, router, "/api/v1/simulations/batch", `{"items":[{},{},{}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected oversized batch to be rejected, got %d", rec.Code)
	}

	rec = post(t, router, "/api/v1/simulations/batch", `{"items":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected empty batch to be rejected, got %d", rec.Code)
	}

	rec = post(t, router, "/api/v1/simulations/batch", `{"items":[{"method":"bogus"}]}`)
	env := decodeEnvelope(t, rec)
	if rec.Code != http.StatusBadRequest || env.Error == nil {
		t.Fatalf("expected item validation failure, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `items[0].method`) {
		t.Fatalf("expected indexed field name, got %s", rec.Body.String())
	}
}

func TestScheduleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"VN-2024-R1"`) || !strings.Contains(body, `"upTo":null`) {
		t.Fatalf("expected schedule name and unbounded bracket, got %s", body)
	}
}
