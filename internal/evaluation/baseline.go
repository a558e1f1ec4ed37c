package evaluation

import (
	"context"
	"fmt"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Baseline model tags
const (
	ModelNaiveLast      = "naive_last"
	ModelMovingAvg4     = "moving_average_4w"
	ModelMovingAvg8     = "moving_average_8w"
	ModelSeasonalNaive  = "seasonal_naive"
	ModelLinearTrend    = "linear_trend"
	ModelExpSmoothing03 = "exp_smoothing_0.3"
	ModelExpSmoothing05 = "exp_smoothing_0.5"
)

const (
	seasonalLag    = 26
	minTrendPoints = 4
)

// =============================================================================
// Baseline predictors (train window only, no features)
// =============================================================================

// NaiveLast predicts the last train quantity
type NaiveLast struct{}

func (NaiveLast) Name() string { return ModelNaiveLast }

func (NaiveLast) Predict(_ context.Context, req PredictRequest) (float64, error) {
	if len(req.History) == 0 {
		return 0, unavailable(req, "empty history")
	}
	return req.History[len(req.History)-1].Quantity, nil
}

// MovingAverage predicts the mean of the last Window train weeks
type MovingAverage struct {
	Window int
}

func (m MovingAverage) Name() string { return fmt.Sprintf("moving_average_%dw", m.Window) }

func (m MovingAverage) Predict(_ context.Context, req PredictRequest) (float64, error) {
	if m.Window <= 0 || len(req.History) < m.Window {
		return 0, unavailable(req, "history shorter than window")
	}
	tail := req.History[len(req.History)-m.Window:]
	sum := 0.0
	for _, o := range tail {
		sum += o.Quantity
	}
	return sum / float64(m.Window), nil
}

// SeasonalNaive predicts the quantity 26 weeks before the target, else the train mean
type SeasonalNaive struct{}

func (SeasonalNaive) Name() string { return ModelSeasonalNaive }

func (SeasonalNaive) Predict(_ context.Context, req PredictRequest) (float64, error) {
	if len(req.History) == 0 {
		return 0, unavailable(req, "empty history")
	}
	season := req.Target.Prev(seasonalLag)
	sum := 0.0
	for _, o := range req.History {
		if o.YearWeek == season {
			return o.Quantity, nil
		}
		sum += o.Quantity
	}
	return sum / float64(len(req.History)), nil
}

// LinearTrend extrapolates an OLS line over calendar week offsets, clamped at 0
type LinearTrend struct{}

func (LinearTrend) Name() string { return ModelLinearTrend }

func (LinearTrend) Predict(_ context.Context, req PredictRequest) (float64, error) {
	n := len(req.History)
	if n < minTrendPoints {
		return 0, unavailable(req, "fewer than 4 train weeks")
	}

	origin := req.History[0].YearWeek
	var sumX, sumY, sumXY, sumX2 float64
	for _, o := range req.History {
		x := float64(origin.WeeksBetween(o.YearWeek))
		sumX += x
		sumY += o.Quantity
		sumXY += x * o.Quantity
		sumX2 += x * x
	}

	fn := float64(n)
	slope := 0.0
	if den := fn*sumX2 - sumX*sumX; den != 0 {
		slope = (fn*sumXY - sumX*sumY) / den
	}
	intercept := (sumY - slope*sumX) / fn

	x := float64(origin.WeeksBetween(req.Target))
	pred := intercept + slope*x
	if pred < 0 {
		return 0, nil
	}
	return pred, nil
}

// ExpSmoothing is simple exponential smoothing over the train window
type ExpSmoothing struct {
	Alpha float64
}

func (e ExpSmoothing) Name() string { return fmt.Sprintf("exp_smoothing_%.1f", e.Alpha) }

func (e ExpSmoothing) Predict(_ context.Context, req PredictRequest) (float64, error) {
	if len(req.History) < 2 {
		return 0, unavailable(req, "fewer than 2 train weeks")
	}
	level := req.History[0].Quantity
	for _, o := range req.History[1:] {
		level = e.Alpha*o.Quantity + (1-e.Alpha)*level
	}
	return level, nil
}

// Baselines returns every baseline in tie-break order
func Baselines() []Predictor {
	return []Predictor{
		NaiveLast{},
		MovingAverage{Window: 4},
		MovingAverage{Window: 8},
		SeasonalNaive{},
		LinearTrend{},
		ExpSmoothing{Alpha: 0.3},
		ExpSmoothing{Alpha: 0.5},
	}
}

// BaselineTags returns the model tags of Baselines, in the same order
func BaselineTags() []string {
	preds := Baselines()
	tags := make([]string, len(preds))
	for i, p := range preds {
		tags[i] = p.Name()
	}
	return tags
}

// BaselineByName looks up a baseline by model tag
func BaselineByName(tag string) (Predictor, error) {
	for _, p := range Baselines() {
		if p.Name() == tag {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown model %q", tag)
}

func unavailable(req PredictRequest, reason string) error {
	return fmt.Errorf("%s %s: %s: %w", req.EntityID, req.Target, reason, contracts.ErrPredictionUnavailable)
}
