package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, run 기록, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Ingest  Identity  Features  Classify  Evaluate

// Stage represents a pipeline stage
type Stage string

const (
	// StageIngest S0: 거래 데이터 품질 게이트
	// 책임: MalformedRecord 거부, 행 단위 dq_score 계산
	// 위치: internal/ingest/
	StageIngest Stage = "S0_INGEST"

	// StageIdentity S1: 고객 ID 통합
	// 책임: original_customer_id → master_customer_id (append-only)
	// 위치: internal/identity/
	StageIdentity Stage = "S1_IDENTITY"

	// StageFeatures S2: 주간 집계 및 피처
	// 책임: lag/rolling/calendar/price 피처, leakage 방지
	// 위치: internal/features/
	StageFeatures Stage = "S2_FEATURES"

	// StageClassify S3: 패턴 분류 + 데이터 충분성 등급
	// 위치: internal/pattern/
	StageClassify Stage = "S3_CLASSIFY"

	// StageEvaluate S4: walk-forward 백테스트
	// 책임: train/test 분할, 예측, MAE/RMSE/MAPE/WMAPE, confidence
	// 위치: internal/evaluation/
	StageEvaluate Stage = "S4_EVALUATE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageIngest:
		return "S0"
	case StageIdentity:
		return "S1"
	case StageFeatures:
		return "S2"
	case StageClassify:
		return "S3"
	case StageEvaluate:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageIngest:
		return "transaction quality gate"
	case StageIdentity:
		return "customer identity resolution"
	case StageFeatures:
		return "weekly aggregation and features"
	case StageClassify:
		return "pattern and sufficiency tiering"
	case StageEvaluate:
		return "walk-forward evaluation"
	default:
		return "unknown"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageIngest,
		StageIdentity,
		StageFeatures,
		StageClassify,
		StageEvaluate,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult represents the result of a pipeline stage execution
type StageResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
