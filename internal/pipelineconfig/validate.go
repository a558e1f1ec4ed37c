package pipelineconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// cronParser는 scheduler와 같은 6필드(초 포함) 형식
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.PipelineID == "" {
		return ValidationError{"meta.pipeline_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Features ===
	if len(cfg.Features.Levels) == 0 {
		return ValidationError{"features.levels", "must not be empty"}
	}
	seen := make(map[string]bool)
	for i, s := range cfg.Features.Levels {
		if _, err := contracts.ParseLevel(s); err != nil {
			return ValidationError{fmt.Sprintf("features.levels[%d]", i), err.Error()}
		}
		if seen[s] {
			return ValidationError{fmt.Sprintf("features.levels[%d]", i), "duplicate level " + s}
		}
		seen[s] = true
	}
	if cfg.Features.PromoWeek < 1 || cfg.Features.PromoWeek > 53 {
		return ValidationError{"features.promo_week", "must be in range [1, 53]"}
	}
	if cfg.Features.Parallelism < 0 {
		return ValidationError{"features.parallelism", "must be >= 0"}
	}

	// === Classifier ===
	c := cfg.Classifier
	if c.StableCV <= 0 {
		return ValidationError{"classifier.stable_cv", "must be > 0"}
	}
	if c.CyclicalCV <= c.StableCV {
		return ValidationError{"classifier", "cyclical_cv must be > stable_cv"}
	}
	if c.BulkRangeRatio <= 1 {
		return ValidationError{"classifier.bulk_range_ratio", "must be > 1"}
	}

	// === Tiering ===
	if cfg.Tiering.MinWeeks < 1 {
		return ValidationError{"tiering.min_weeks", "must be >= 1"}
	}
	if cfg.Tiering.FullWeeks < cfg.Tiering.MinWeeks {
		return ValidationError{"tiering", "full_weeks must be >= min_weeks"}
	}

	// === Evaluation ===
	if _, err := contracts.ParseYearWeek(cfg.Evaluation.TrainEndWeek); err != nil {
		return ValidationError{"evaluation.train_end_week", err.Error()}
	}
	if len(cfg.Evaluation.Models) == 0 {
		return ValidationError{"evaluation.models", "must not be empty"}
	}
	models := make(map[string]bool)
	for i, m := range cfg.Evaluation.Models {
		if m != ModelRemote {
			if _, err := evaluation.BaselineByName(m); err != nil {
				return ValidationError{fmt.Sprintf("evaluation.models[%d]", i), err.Error()}
			}
		}
		if models[m] {
			return ValidationError{fmt.Sprintf("evaluation.models[%d]", i), "duplicate model " + m}
		}
		models[m] = true
	}
	if cfg.Evaluation.Parallelism < 0 {
		return ValidationError{"evaluation.parallelism", "must be >= 0"}
	}

	// === Confidence ===
	if cfg.Confidence.High <= 0 {
		return ValidationError{"confidence.high", "must be > 0"}
	}
	if cfg.Confidence.Medium < cfg.Confidence.High {
		return ValidationError{"confidence", "medium must be >= high"}
	}

	// === Schedule ===
	if cfg.Schedule.Enabled {
		if _, err := cronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if !cfg.Evaluation.StrictHorizon {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_HORIZON",
			Message: "strict_horizon=false: test 구간 lag가 예측 입력에 포함됨",
		})
	}

	if cfg.Features.FillMissingWeeks {
		warnings = append(warnings, Warning{
			Code:    "ZERO_FILL",
			Message: "fill_missing_weeks=true: 0 주가 추가되어 CV와 주 수가 달라짐",
		})
	}

	if len(cfg.Evaluation.Models) == 1 {
		warnings = append(warnings, Warning{
			Code:    "SINGLE_MODEL",
			Message: "모델 1개: model_selection 비교 의미 없음",
		})
	}

	if cfg.Tiering.FullWeeks < 2*cfg.Tiering.MinWeeks {
		warnings = append(warnings, Warning{
			Code:    "NARROW_MARGINAL",
			Message: "full_weeks < 2×min_weeks: marginal 구간이 좁음",
		})
	}

	return warnings
}
