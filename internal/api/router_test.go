package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/api/handlers"
	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/config"
	"github.com/jorge-redcloud/demand-planning/pkg/logger"
	"github.com/jorge-redcloud/demand-planning/pkg/redis"
)

type fakeReader struct {
	reports    []contracts.AccuracyReport
	records    []contracts.ForecastRecord
	selections []contracts.ModelSelection
	run        *contracts.EvaluationRun
	err        error

	lastScope string
}

func (f *fakeReader) LoadReports(_ context.Context, _ contracts.Level, scope string) ([]contracts.AccuracyReport, error) {
	f.lastScope = scope
	return f.reports, f.err
}

func (f *fakeReader) LoadRecords(_ context.Context, _ contracts.Level, entityID string) ([]contracts.ForecastRecord, error) {
	var out []contracts.ForecastRecord
	for _, r := range f.records {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeReader) LoadSelections(context.Context, contracts.Level) ([]contracts.ModelSelection, error) {
	return f.selections, f.err
}

func (f *fakeReader) LatestRun(context.Context) (*contracts.EvaluationRun, error) {
	return f.run, f.err
}

func newTestRouter(t *testing.T, reader *fakeReader) http.Handler {
	t.Helper()
	cfg := &config.Config{LogLevel: "error", Env: "development"}
	log := logger.NewWithWriter(cfg, io.Discard)

	client, err := redis.New(context.Background(), cfg) // REDIS_ENABLED=false → 캐시 우회
	require.NoError(t, err)
	cache := redis.NewCache(client, "demand")

	return NewRouter(handlers.NewEvaluationHandler(reader, cache, log), log, true)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestRouter(t, &fakeReader{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetReports(t *testing.T) {
	wmape := 12.5
	reader := &fakeReader{reports: []contracts.AccuracyReport{
		{Level: "sku", Scope: contracts.ScopeEntity, Key: "A", WMAPE: &wmape, Confidence: contracts.ConfidenceHigh},
		{Level: "sku", Scope: contracts.ScopeEntity, Key: "B", Confidence: contracts.ConfidenceNone},
		{Level: "sku", Scope: contracts.ScopeLevel, Key: "sku", WMAPE: &wmape, Confidence: contracts.ConfidenceHigh},
	}}
	router := newTestRouter(t, reader)

	rec, body := get(t, router, "/api/levels/sku/reports?scope=entity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.ScopeEntity, reader.lastScope)
	assert.Len(t, body["reports"], 3)

	dist := body["confidence_distribution"].(map[string]interface{})
	assert.Equal(t, 1.0, dist["high"])
	assert.Equal(t, 1.0, dist["none"])
}

func TestGetReports_BadInput(t *testing.T) {
	router := newTestRouter(t, &fakeReader{})

	rec, _ := get(t, router, "/api/levels/region/reports")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, router, "/api/levels/sku/reports?scope=ALL")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReports_StoreError(t *testing.T) {
	rec, body := get(t, newTestRouter(t, &fakeReader{err: errors.New("db down")}), "/api/levels/sku/reports")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to load reports", body["error"])
}

func TestGetRecords(t *testing.T) {
	pred := 9.0
	reader := &fakeReader{records: []contracts.ForecastRecord{
		{Level: "customer", EntityID: "12", YearWeek: contracts.YearWeek{Year: 2025, Week: 27}, Actual: 10, Predicted: &pred},
		{Level: "customer", EntityID: "12", YearWeek: contracts.YearWeek{Year: 2025, Week: 28}, Actual: 0},
	}}
	router := newTestRouter(t, reader)

	rec, body := get(t, router, "/api/levels/customer/entities/12/records")
	require.Equal(t, http.StatusOK, rec.Code)
	records := body["records"].([]interface{})
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "2025-W27", first["year_week"])
	assert.Nil(t, records[1].(map[string]interface{})["predicted"], "missing prediction stays null")

	rec, _ = get(t, router, "/api/levels/customer/entities/99/records")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSelections(t *testing.T) {
	reader := &fakeReader{selections: []contracts.ModelSelection{
		{Level: "sku", EntityID: "A", ModelTag: "linear_trend"},
		{Level: "sku", EntityID: "B", ModelTag: "linear_trend"},
		{Level: "sku", EntityID: "C", ModelTag: "naive_last"},
	}}

	rec, body := get(t, newTestRouter(t, reader), "/api/levels/sku/selections")
	require.Equal(t, http.StatusOK, rec.Code)
	wins := body["wins"].(map[string]interface{})
	assert.Equal(t, 2.0, wins["linear_trend"])
	assert.Equal(t, 1.0, wins["naive_last"])
}

func TestGetLatestRun(t *testing.T) {
	rec, _ := get(t, newTestRouter(t, &fakeReader{}), "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	reader := &fakeReader{run: &contracts.EvaluationRun{RunID: "r1", Success: true, TrainEnd: contracts.YearWeek{Year: 2025, Week: 26}}}
	rec, body := get(t, newTestRouter(t, reader), "/api/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", body["run_id"])
	assert.Equal(t, "2025-W26", body["train_end"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &fakeReader{})
	get(t, router, "/health")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "demand_api_requests_total")
}
