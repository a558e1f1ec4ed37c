package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func history(qty ...float64) []Observation {
	out := make([]Observation, len(qty))
	for i, q := range qty {
		out[i] = Observation{YearWeek: contracts.YearWeek{Year: 2025, Week: 1 + i}, Quantity: q}
	}
	return out
}

func request(target int, h []Observation) PredictRequest {
	return PredictRequest{
		EntityID: "A",
		Target:   contracts.YearWeek{Year: 2025, Week: target},
		History:  h,
	}
}

func TestBaselines(t *testing.T) {
	h := history(10, 12, 14, 16, 18, 20, 22, 24)

	tests := []struct {
		model  Predictor
		target int
		want   float64
	}{
		{NaiveLast{}, 10, 24},
		{MovingAverage{Window: 4}, 10, 21},
		{MovingAverage{Window: 8}, 10, 17},
		{SeasonalNaive{}, 10, 17},
		{SeasonalNaive{}, 30, 16},
		{LinearTrend{}, 10, 28},
		{ExpSmoothing{Alpha: 0.3}, 10, 19.7176534},
	}

	for _, tt := range tests {
		t.Run(tt.model.Name(), func(t *testing.T) {
			got, err := tt.model.Predict(context.Background(), request(tt.target, h))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestLinearTrend_ClampsAtZero(t *testing.T) {
	got, err := LinearTrend{}.Predict(context.Background(), request(20, history(40, 30, 20, 10)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestLinearTrend_UsesCalendarOffsets(t *testing.T) {
	h := []Observation{
		{YearWeek: contracts.YearWeek{Year: 2025, Week: 1}, Quantity: 0},
		{YearWeek: contracts.YearWeek{Year: 2025, Week: 2}, Quantity: 1},
		{YearWeek: contracts.YearWeek{Year: 2025, Week: 5}, Quantity: 4},
		{YearWeek: contracts.YearWeek{Year: 2025, Week: 6}, Quantity: 5},
	}
	got, err := LinearTrend{}.Predict(context.Background(), request(11, h))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9)
}

func TestBaselines_Unavailable(t *testing.T) {
	tests := []struct {
		model Predictor
		h     []Observation
	}{
		{NaiveLast{}, nil},
		{MovingAverage{Window: 8}, history(1, 2, 3, 4)},
		{SeasonalNaive{}, nil},
		{LinearTrend{}, history(1, 2, 3)},
		{ExpSmoothing{Alpha: 0.5}, history(1)},
	}

	for _, tt := range tests {
		t.Run(tt.model.Name(), func(t *testing.T) {
			_, err := tt.model.Predict(context.Background(), request(20, tt.h))
			assert.ErrorIs(t, err, contracts.ErrPredictionUnavailable)
		})
	}
}

func TestBaselineByName(t *testing.T) {
	for _, tag := range []string{
		ModelNaiveLast, ModelMovingAvg4, ModelMovingAvg8, ModelSeasonalNaive,
		ModelLinearTrend, ModelExpSmoothing03, ModelExpSmoothing05,
	} {
		p, err := BaselineByName(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, tag, p.Name())
	}

	_, err := BaselineByName("prophet")
	assert.Error(t, err)
}

func TestBaselineTags(t *testing.T) {
	tags := BaselineTags()
	require.Len(t, tags, len(Baselines()))
	assert.Equal(t, ModelNaiveLast, tags[0])
	assert.Equal(t, ModelExpSmoothing05, tags[len(tags)-1])
}
