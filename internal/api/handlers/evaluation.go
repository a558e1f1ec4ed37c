package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/logger"
	"github.com/jorge-redcloud/demand-planning/pkg/redis"
)

// EvaluationReader reads the evaluation output tables
type EvaluationReader interface {
	LoadReports(ctx context.Context, level contracts.Level, scope string) ([]contracts.AccuracyReport, error)
	LoadRecords(ctx context.Context, level contracts.Level, entityID string) ([]contracts.ForecastRecord, error)
	LoadSelections(ctx context.Context, level contracts.Level) ([]contracts.ModelSelection, error)
	LatestRun(ctx context.Context) (*contracts.EvaluationRun, error)
}

// EvaluationHandler serves accuracy reports, forecast records and model selection (read-only)
// ⭐ SSOT: 평가 결과 조회 API 핸들러는 이 구조체에서만
type EvaluationHandler struct {
	store  EvaluationReader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(store EvaluationReader, cache *redis.Cache, log *logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// ReportsResponse is the body of GET /api/levels/{level}/reports
type ReportsResponse struct {
	Level      contracts.Level              `json:"level"`
	Scope      string                       `json:"scope,omitempty"`
	Reports    []contracts.AccuracyReport   `json:"reports"`
	Confidence map[contracts.Confidence]int `json:"confidence_distribution"`
}

// GetReports returns accuracy reports of a level
// GET /api/levels/{level}/reports?scope=ENTITY|LEVEL
func (h *EvaluationHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}

	scope := strings.ToUpper(r.URL.Query().Get("scope"))
	if scope != "" && scope != contracts.ScopeEntity && scope != contracts.ScopeLevel {
		respondError(w, http.StatusBadRequest, "scope must be ENTITY or LEVEL")
		return
	}

	var reports []contracts.AccuracyReport
	err := h.cache.GetOrSet(r.Context(), redis.ReportKey(string(level), scope), &reports, redis.TTLRun, func() (interface{}, error) {
		return h.store.LoadReports(r.Context(), level, scope)
	})
	if err != nil {
		h.logger.WithError(err).WithField("level", level).Error("Failed to load reports")
		respondError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}

	// 엔티티 리포트 기준 신뢰도 분포
	dist := make(map[contracts.Confidence]int)
	for _, rep := range reports {
		if rep.Scope == contracts.ScopeEntity {
			dist[rep.Confidence]++
		}
	}

	if reports == nil {
		reports = []contracts.AccuracyReport{}
	}
	respondJSON(w, http.StatusOK, ReportsResponse{
		Level:      level,
		Scope:      scope,
		Reports:    reports,
		Confidence: dist,
	})
}

// GetRecords returns one entity's test-window forecast records
// GET /api/levels/{level}/entities/{entity}/records
func (h *EvaluationHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}
	entityID := mux.Vars(r)["entity"]

	var records []contracts.ForecastRecord
	err := h.cache.GetOrSet(r.Context(), redis.EntityRecordsKey(string(level), entityID), &records, redis.TTLRun, func() (interface{}, error) {
		return h.store.LoadRecords(r.Context(), level, entityID)
	})
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"level":     level,
			"entity_id": entityID,
		}).Error("Failed to load records")
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "no forecast records for entity")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"level":     level,
		"entity_id": entityID,
		"records":   records,
	})
}

// GetSelections returns the best model per entity
// GET /api/levels/{level}/selections
func (h *EvaluationHandler) GetSelections(w http.ResponseWriter, r *http.Request) {
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}

	var selections []contracts.ModelSelection
	err := h.cache.GetOrSet(r.Context(), redis.SelectionKey(string(level)), &selections, redis.TTLRun, func() (interface{}, error) {
		return h.store.LoadSelections(r.Context(), level)
	})
	if err != nil {
		h.logger.WithError(err).WithField("level", level).Error("Failed to load selections")
		respondError(w, http.StatusInternalServerError, "failed to load selections")
		return
	}

	// 모델별 선택 횟수
	wins := make(map[string]int)
	for _, s := range selections {
		wins[s.ModelTag]++
	}

	if selections == nil {
		selections = []contracts.ModelSelection{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"level":      level,
		"selections": selections,
		"wins":       wins,
	})
}

// GetLatestRun returns the newest pipeline run record
// GET /api/runs/latest
func (h *EvaluationHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	var run *contracts.EvaluationRun
	err := h.cache.GetOrSet(r.Context(), redis.LatestRunKey(), &run, redis.TTLShort, func() (interface{}, error) {
		return h.store.LatestRun(r.Context())
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}

	if run == nil {
		respondError(w, http.StatusNotFound, "no pipeline run recorded")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func parseLevel(w http.ResponseWriter, r *http.Request) (contracts.Level, bool) {
	level, err := contracts.ParseLevel(mux.Vars(r)["level"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return level, true
}
