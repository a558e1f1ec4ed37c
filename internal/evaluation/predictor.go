package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/metrics"
)

// FeatureRow is the leakage-safe part of a weekly row sent to a model.
// Same-week aggregates (quantity, revenue, price) are never included.
type FeatureRow struct {
	YearWeek        contracts.YearWeek `json:"year_week"`
	Lag1            *float64           `json:"lag1"`
	Lag2            *float64           `json:"lag2"`
	Lag4            *float64           `json:"lag4"`
	RollingAvg4w    *float64           `json:"rolling_avg_4w"`
	RollingStd4w    *float64           `json:"rolling_std_4w"`
	RollingMin4w    *float64           `json:"rolling_min_4w"`
	RollingMax4w    *float64           `json:"rolling_max_4w"`
	RollingAvg8w    *float64           `json:"rolling_avg_8w"`
	WeekOfYear      int                `json:"week_of_year"`
	IsMonthEnd      bool               `json:"is_month_end"`
	IsQuarterEnd    bool               `json:"is_quarter_end"`
	IsW47           bool               `json:"is_w47"`
	IsHolidaySeason bool               `json:"is_holiday_season"`
}

// FeaturesOf strips the target-week values from a weekly row
func FeaturesOf(w contracts.WeeklyAggregate) FeatureRow {
	return FeatureRow{
		YearWeek:        w.YearWeek,
		Lag1:            w.Lag1,
		Lag2:            w.Lag2,
		Lag4:            w.Lag4,
		RollingAvg4w:    w.RollingAvg4w,
		RollingStd4w:    w.RollingStd4w,
		RollingMin4w:    w.RollingMin4w,
		RollingMax4w:    w.RollingMax4w,
		RollingAvg8w:    w.RollingAvg8w,
		WeekOfYear:      w.WeekOfYear,
		IsMonthEnd:      w.IsMonthEnd,
		IsQuarterEnd:    w.IsQuarterEnd,
		IsW47:           w.IsW47,
		IsHolidaySeason: w.IsHolidaySeason,
	}
}

// Observation is one training week
type Observation struct {
	YearWeek contracts.YearWeek `json:"year_week"`
	Quantity float64            `json:"quantity"`
}

// PredictRequest carries only data available before the target week
type PredictRequest struct {
	Level    contracts.Level           `json:"level"`
	EntityID string                    `json:"entity_id"`
	Target   contracts.YearWeek        `json:"target_week"`
	Features FeatureRow                `json:"features"`
	History  []Observation             `json:"history"` // train window, week order
	Pattern  contracts.Pattern         `json:"pattern"`
	Tier     contracts.SufficiencyTier `json:"sufficiency_tier"`
}

// Predictor returns one quantity per request.
// contracts.ErrPredictionUnavailable is recoverable for that row; any other error fails the stage.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, req PredictRequest) (float64, error)
}

// PredictorFunc adapts a function to Predictor
type PredictorFunc struct {
	Tag string
	Fn  func(ctx context.Context, req PredictRequest) (float64, error)
}

// Name returns the model tag
func (p PredictorFunc) Name() string { return p.Tag }

// Predict calls Fn
func (p PredictorFunc) Predict(ctx context.Context, req PredictRequest) (float64, error) {
	return p.Fn(ctx, req)
}

// RetryConfig bounds RetryPredictor
type RetryConfig struct {
	MaxAttempts int           // total attempts per row (≥1)
	BaseDelay   time.Duration // doubled after each failure
	MaxDelay    time.Duration

	// MaxConsecutiveFailures rows in a row that exhaust retries before the predictor
	// is declared down (0 = never)
	MaxConsecutiveFailures int
}

// DefaultRetryConfig returns conservative retry settings
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:            3,
		BaseDelay:              200 * time.Millisecond,
		MaxDelay:               5 * time.Second,
		MaxConsecutiveFailures: 25,
	}
}

// RetryPredictor retries transient predictor errors.
// Exhausted rows become ErrPredictionUnavailable; a streak of them becomes ErrPredictorDown.
type RetryPredictor struct {
	inner  Predictor
	cfg    RetryConfig
	streak atomic.Int64
	log    zerolog.Logger
}

// NewRetryPredictor wraps inner
func NewRetryPredictor(inner Predictor, cfg RetryConfig, log zerolog.Logger) *RetryPredictor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryPredictor{
		inner: inner,
		cfg:   cfg,
		log:   log.With().Str("component", "evaluation.retry").Str("model", inner.Name()).Logger(),
	}
}

// Name returns the wrapped model tag
func (r *RetryPredictor) Name() string { return r.inner.Name() }

// Predict calls the wrapped predictor with bounded exponential backoff
func (r *RetryPredictor) Predict(ctx context.Context, req PredictRequest) (float64, error) {
	delay := r.cfg.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		v, err := r.inner.Predict(ctx, req)
		if err == nil {
			r.streak.Store(0)
			metrics.RecordPrediction(r.Name(), "ok")
			return v, nil
		}
		if !retryable(ctx, err) {
			if errors.Is(err, contracts.ErrPredictionUnavailable) {
				r.streak.Store(0)
				metrics.RecordPrediction(r.Name(), "unavailable")
			}
			return 0, err
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}

		r.log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("entity_id", req.EntityID).
			Msg("retrying prediction")

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if r.cfg.MaxDelay > 0 && delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}

	metrics.RecordPrediction(r.Name(), "failed")
	n := r.streak.Add(1)
	if r.cfg.MaxConsecutiveFailures > 0 && n >= int64(r.cfg.MaxConsecutiveFailures) {
		return 0, fmt.Errorf("%w: %d consecutive failures: %v", contracts.ErrPredictorDown, n, lastErr)
	}
	return 0, fmt.Errorf("%w: %v", contracts.ErrPredictionUnavailable, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, contracts.ErrPredictionUnavailable) &&
		!errors.Is(err, contracts.ErrPredictorDown) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
