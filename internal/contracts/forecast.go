package contracts

import "time"

// ForecastRecord is one evaluated test-window prediction
// ⭐ SSOT: forecast_evaluation 테이블 1 row
//
// Predicted/AbsError/PctError가 nil이면 해당 주 예측 없음 (0으로 대체하지 않음)
type ForecastRecord struct {
	Level           Level      `json:"level"`
	EntityID        string     `json:"entity_id"`
	YearWeek        YearWeek   `json:"year_week"`
	Actual          float64    `json:"actual"`
	Predicted       *float64   `json:"predicted"`
	AbsError        *float64   `json:"abs_error"`
	PctError        *float64   `json:"pct_error"` // nil when actual == 0
	ConfidenceLevel Confidence `json:"confidence_level"`
	ModelTag        string     `json:"model_tag"`
}

// HasPrediction reports whether the external model produced a value
func (r ForecastRecord) HasPrediction() bool {
	return r.Predicted != nil
}

// AccuracyReport summarizes the forecast accuracy of one group of records
// Level/Key: ENTITY/<entity_id>, LEVEL/<sku|category|customer>, ALL/ALL
type AccuracyReport struct {
	RunID        string          `json:"run_id"`
	ModelTag     string          `json:"model_tag"`
	Level        Level           `json:"level"`
	Scope        string          `json:"scope"` // ENTITY / LEVEL / ALL
	Key          string          `json:"key"`
	SampleCount  int             `json:"sample_count"`  // rows with a prediction
	MissingCount int             `json:"missing_count"` // PredictionUnavailable rows
	EntityCount  int             `json:"entity_count"`
	MAE          *float64        `json:"mae"`
	RMSE         *float64        `json:"rmse"`
	MedianMAPE   *float64        `json:"median_mape"`
	WMAPE        *float64        `json:"wmape"`
	Pattern      Pattern         `json:"pattern,omitempty"`
	Tier         SufficiencyTier `json:"sufficiency_tier,omitempty"`
	Confidence   Confidence      `json:"confidence"`
	Disclaimer   string          `json:"disclaimer,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Report scopes
const (
	ScopeEntity = "ENTITY"
	ScopeLevel  = "LEVEL"
	ScopeAll    = "ALL"
)

// ModelSelection is the best model per entity by WMAPE
type ModelSelection struct {
	Level    Level    `json:"level"`
	EntityID string   `json:"entity_id"`
	ModelTag string   `json:"model_tag"`
	WMAPE    *float64 `json:"wmape"`
	Runners  int      `json:"candidates"`
}

// EvaluationRun is the audit row of one pipeline run
type EvaluationRun struct {
	RunID       string    `json:"run_id"`
	ConfigHash  string    `json:"config_hash"`
	TrainEnd    YearWeek  `json:"train_end"`
	ModelTags   []string  `json:"model_tags"`
	EntityCount int       `json:"entity_count"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
