package pipelineconfig

import (
	"fmt"
	"time"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/features"
	"github.com/jorge-redcloud/demand-planning/internal/pattern"
)

// Config는 수요예측 파이프라인의 전체 설정
type Config struct {
	Meta       Meta                            `yaml:"meta" json:"meta"`
	Ingest     Ingest                          `yaml:"ingest" json:"ingest"`
	Identity   Identity                        `yaml:"identity" json:"identity"`
	Features   Features                        `yaml:"features" json:"features"`
	Classifier Classifier                      `yaml:"classifier" json:"classifier"`
	Tiering    Tiering                         `yaml:"tiering" json:"tiering"`
	Evaluation Evaluation                      `yaml:"evaluation" json:"evaluation"`
	Confidence evaluation.ConfidenceThresholds `yaml:"confidence" json:"confidence"`
	Schedule   Schedule                        `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	PipelineID string `yaml:"pipeline_id" json:"pipeline_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Ingest S0: 입력 파일
type Ingest struct {
	Sheet string `yaml:"sheet" json:"sheet"` // xlsx sheet, 빈 값 = 첫 시트
}

// Identity S1: 고객 ID 통합
type Identity struct {
	CacheEnabled bool `yaml:"cache_enabled" json:"cache_enabled"`
}

// Features S2: 주간 피처
type Features struct {
	Levels           []string `yaml:"levels" json:"levels"`
	FillMissingWeeks bool     `yaml:"fill_missing_weeks" json:"fill_missing_weeks"`
	PromoWeek        int      `yaml:"promo_week" json:"promo_week"`
	Parallelism      int      `yaml:"parallelism" json:"parallelism"`
}

// Classifier S3: 패턴 분류 기준
type Classifier struct {
	StableCV       float64 `yaml:"stable_cv" json:"stable_cv"`
	CyclicalCV     float64 `yaml:"cyclical_cv" json:"cyclical_cv"`
	BulkRangeRatio float64 `yaml:"bulk_range_ratio" json:"bulk_range_ratio"`
}

// Tiering S3: 데이터 충분성 등급
type Tiering struct {
	MinWeeks  int `yaml:"min_weeks" json:"min_weeks"`
	FullWeeks int `yaml:"full_weeks" json:"full_weeks"`
}

// Evaluation S4: walk-forward
type Evaluation struct {
	TrainEndWeek  string   `yaml:"train_end_week" json:"train_end_week"` // YYYY-Www
	StrictHorizon bool     `yaml:"strict_horizon" json:"strict_horizon"`
	Models        []string `yaml:"models" json:"models"` // baseline tag 또는 "remote"
	Parallelism   int      `yaml:"parallelism" json:"parallelism"`
}

// Schedule 주간 재계산 (cron, 초 단위 포함 6필드)
type Schedule struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
}

// ModelRemote selects the HTTP predictor in evaluation.models
const ModelRemote = "remote"

// Default returns the built-in settings
func Default() *Config {
	th := pattern.DefaultThresholds()
	fc := features.DefaultConfig()
	return &Config{
		Meta: Meta{
			PipelineID: "weekly_demand",
			Version:    "1.0.0",
			Timezone:   "UTC",
		},
		Identity: Identity{CacheEnabled: true},
		Features: Features{
			Levels:           []string{string(contracts.LevelSKU), string(contracts.LevelCategory), string(contracts.LevelCustomer)},
			FillMissingWeeks: fc.FillMissingWeeks,
			PromoWeek:        fc.PromoWeek,
			Parallelism:      fc.Parallelism,
		},
		Classifier: Classifier{
			StableCV:       th.StableCV,
			CyclicalCV:     th.CyclicalCV,
			BulkRangeRatio: th.BulkRangeRatio,
		},
		Tiering: Tiering{
			MinWeeks:  th.MinWeeks,
			FullWeeks: th.FullWeeks,
		},
		Evaluation: Evaluation{
			TrainEndWeek:  "2025-W26",
			StrictHorizon: true,
			Models:        []string{evaluation.ModelMovingAvg4},
			Parallelism:   8,
		},
		Confidence: evaluation.DefaultConfidenceThresholds(),
		Schedule: Schedule{
			Enabled: false,
			Cron:    "0 0 6 * * MON",
		},
	}
}

// Levels parses features.levels
func (c *Config) Levels() ([]contracts.Level, error) {
	out := make([]contracts.Level, 0, len(c.Features.Levels))
	for _, s := range c.Features.Levels {
		l, err := contracts.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// FeatureConfig maps the features section onto the engine config
func (c *Config) FeatureConfig() features.Config {
	return features.Config{
		FillMissingWeeks: c.Features.FillMissingWeeks,
		Parallelism:      c.Features.Parallelism,
		PromoWeek:        c.Features.PromoWeek,
	}
}

// Thresholds merges classifier and tiering into the classifier thresholds
func (c *Config) Thresholds() pattern.Thresholds {
	return pattern.Thresholds{
		MinWeeks:       c.Tiering.MinWeeks,
		FullWeeks:      c.Tiering.FullWeeks,
		StableCV:       c.Classifier.StableCV,
		CyclicalCV:     c.Classifier.CyclicalCV,
		BulkRangeRatio: c.Classifier.BulkRangeRatio,
	}
}

// TrainEnd parses evaluation.train_end_week
func (c *Config) TrainEnd() (contracts.YearWeek, error) {
	yw, err := contracts.ParseYearWeek(c.Evaluation.TrainEndWeek)
	if err != nil {
		return contracts.YearWeek{}, fmt.Errorf("evaluation.train_end_week: %w", err)
	}
	return yw, nil
}

// EvaluationConfig maps the evaluation and confidence sections onto the evaluator config
func (c *Config) EvaluationConfig() (evaluation.Config, error) {
	trainEnd, err := c.TrainEnd()
	if err != nil {
		return evaluation.Config{}, err
	}
	return evaluation.Config{
		TrainEnd:      trainEnd,
		StrictHorizon: c.Evaluation.StrictHorizon,
		Parallelism:   c.Evaluation.Parallelism,
		Confidence:    c.Confidence,
	}, nil
}

// RunSnapshot 실행 시점 설정 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	PipelineID string    `json:"pipeline_id"`
	TrainEnd   string    `json:"train_end_week"`
	CreatedAt  time.Time `json:"created_at"`
}
