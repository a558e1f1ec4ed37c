package pipelineconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/pattern"
)

func TestLoad(t *testing.T) {
	path := "../../configs/pipeline.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "weekly_demand", cfg.Meta.PipelineID)
	assert.Equal(t, pattern.DefaultThresholds(), cfg.Thresholds())
	assert.Len(t, cfg.Evaluation.Models, 7)

	trainEnd, err := cfg.TrainEnd()
	require.NoError(t, err)
	assert.Equal(t, contracts.YearWeek{Year: 2025, Week: 26}, trainEnd)

	levels, err := cfg.Levels()
	require.NoError(t, err)
	assert.Equal(t, contracts.AllLevels(), levels)

	// 해시 64자, 동일 설정 → 동일 해시
	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	ec, err := cfg.EvaluationConfig()
	require.NoError(t, err)
	assert.True(t, ec.StrictHorizon)
	assert.Equal(t, 40.0, ec.Confidence.High)

	fc := cfg.FeatureConfig()
	assert.Equal(t, 47, fc.PromoWeek)
}

func TestParse_KeepsDefaultsForOmittedKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
evaluation:
  train_end_week: "2025-W10"
  models: [naive_last, remote]
`))
	require.NoError(t, err)

	assert.Equal(t, "2025-W10", cfg.Evaluation.TrainEndWeek)
	assert.Equal(t, []string{"naive_last", ModelRemote}, cfg.Evaluation.Models)
	assert.True(t, cfg.Evaluation.StrictHorizon)
	assert.Equal(t, 10, cfg.Tiering.MinWeeks)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
tiering:
  min_week: 5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_week")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing pipeline id", func(c *Config) { c.Meta.PipelineID = "" }, "meta.pipeline_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"no levels", func(c *Config) { c.Features.Levels = nil }, "features.levels"},
		{"unknown level", func(c *Config) { c.Features.Levels = []string{"sku", "region"} }, "features.levels[1]"},
		{"duplicate level", func(c *Config) { c.Features.Levels = []string{"sku", "sku"} }, "features.levels[1]"},
		{"promo week", func(c *Config) { c.Features.PromoWeek = 54 }, "features.promo_week"},
		{"stable cv", func(c *Config) { c.Classifier.StableCV = 0 }, "classifier.stable_cv"},
		{"cv order", func(c *Config) { c.Classifier.CyclicalCV = 0.2 }, "classifier"},
		{"bulk ratio", func(c *Config) { c.Classifier.BulkRangeRatio = 1 }, "classifier.bulk_range_ratio"},
		{"min weeks", func(c *Config) { c.Tiering.MinWeeks = 0 }, "tiering.min_weeks"},
		{"tier order", func(c *Config) { c.Tiering.FullWeeks = 5 }, "tiering"},
		{"train end format", func(c *Config) { c.Evaluation.TrainEndWeek = "2025-26" }, "evaluation.train_end_week"},
		{"train end week 53", func(c *Config) { c.Evaluation.TrainEndWeek = "2025-W53" }, "evaluation.train_end_week"},
		{"no models", func(c *Config) { c.Evaluation.Models = nil }, "evaluation.models"},
		{"unknown model", func(c *Config) { c.Evaluation.Models = []string{"prophet"} }, "evaluation.models[0]"},
		{"duplicate model", func(c *Config) { c.Evaluation.Models = []string{"naive_last", "naive_last"} }, "evaluation.models[1]"},
		{"confidence high", func(c *Config) { c.Confidence.High = 0 }, "confidence.high"},
		{"confidence order", func(c *Config) { c.Confidence.Medium = 30 }, "confidence"},
		{"bad cron", func(c *Config) { c.Schedule.Enabled = true; c.Schedule.Cron = "0 6 * * MON" }, "schedule.cron"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_DisabledScheduleIgnoresCron(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Enabled = false
	cfg.Schedule.Cron = "not a cron"
	assert.NoError(t, Validate(cfg))
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Evaluation.StrictHorizon = false
	cfg.Features.FillMissingWeeks = true
	cfg.Tiering.FullWeeks = 15

	codes := make(map[string]bool)
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["LOOSE_HORIZON"])
	assert.True(t, codes["ZERO_FILL"])
	assert.True(t, codes["SINGLE_MODEL"])
	assert.True(t, codes["NARROW_MARGINAL"])

	cfg = Default()
	cfg.Evaluation.Models = []string{"naive_last", "linear_trend"}
	assert.Empty(t, Warn(cfg))
}

func TestHash_ChangesWithSettings(t *testing.T) {
	a := Default()
	b := Default()
	b.Tiering.MinWeeks = 12

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, data, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// 기본값을 직렬화한 YAML은 다시 로드 가능해야 함
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	reloaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)

	_, _, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunSnapshot(t *testing.T) {
	cfg := Default()
	snap, err := NewRunSnapshot(cfg, []byte("meta: {}"))
	require.NoError(t, err)

	hash, _ := Hash(cfg)
	assert.Equal(t, hash, snap.ConfigHash)
	assert.Equal(t, "weekly_demand", snap.PipelineID)
	assert.Equal(t, "2025-W26", snap.TrainEnd)
}
