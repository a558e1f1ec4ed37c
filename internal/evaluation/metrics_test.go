package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func rec(actual float64, predicted *float64) contracts.ForecastRecord {
	r := contracts.ForecastRecord{EntityID: "A", Actual: actual, Predicted: predicted}
	ScoreRecord(&r)
	return r
}

func TestScoreRecord(t *testing.T) {
	tests := []struct {
		name    string
		actual  float64
		pred    *float64
		wantAbs *float64
		wantPct *float64
	}{
		{"exact", 10, contracts.Float(10), contracts.Float(0), contracts.Float(0)},
		{"over", 10, contracts.Float(12), contracts.Float(2), contracts.Float(20)},
		{"zero actual", 0, contracts.Float(5), contracts.Float(5), nil},
		{"no prediction", 10, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec(tt.actual, tt.pred)
			assert.Equal(t, tt.wantAbs, r.AbsError)
			assert.Equal(t, tt.wantPct, r.PctError)
		})
	}
}

func TestMeasure_ZeroActualRow(t *testing.T) {
	records := []contracts.ForecastRecord{
		rec(0, contracts.Float(5)),
		rec(10, contracts.Float(8)),
	}

	acc := Measure(records)
	assert.Equal(t, 2, acc.SampleCount)
	require.NotNil(t, acc.MedianMAPE)
	assert.InDelta(t, 20.0, *acc.MedianMAPE, 1e-9, "zero-actual row excluded from MAPE")
	require.NotNil(t, acc.WMAPE)
	assert.InDelta(t, 70.0, *acc.WMAPE, 1e-9, "abs_error 5 counted in the numerator")
	assert.InDelta(t, 3.5, *acc.MAE, 1e-9)
	assert.InDelta(t, math.Sqrt(29.0/2), *acc.RMSE, 1e-9)
}

func TestMeasure_MissingPredictions(t *testing.T) {
	records := []contracts.ForecastRecord{
		rec(10, contracts.Float(10)),
		rec(50, nil),
		rec(20, contracts.Float(10)),
	}

	acc := Measure(records)
	assert.Equal(t, 2, acc.SampleCount)
	assert.Equal(t, 1, acc.MissingCount)
	assert.InDelta(t, 100*10.0/30.0, *acc.WMAPE, 1e-9, "missing row is not imputed as zero")
	assert.InDelta(t, 25.0, *acc.MedianMAPE, 1e-9)
}

func TestMeasure_NullCases(t *testing.T) {
	empty := Measure(nil)
	assert.Nil(t, empty.MAE)
	assert.Nil(t, empty.WMAPE)
	assert.Nil(t, empty.Error())

	allMissing := Measure([]contracts.ForecastRecord{rec(3, nil)})
	assert.Equal(t, 1, allMissing.MissingCount)
	assert.Nil(t, allMissing.RMSE)

	zeroActuals := Measure([]contracts.ForecastRecord{rec(0, contracts.Float(1)), rec(0, contracts.Float(0))})
	assert.Nil(t, zeroActuals.WMAPE)
	assert.Nil(t, zeroActuals.MedianMAPE)
	require.NotNil(t, zeroActuals.MAE)
	assert.InDelta(t, 0.5, *zeroActuals.MAE, 1e-9)
}

func TestMeasure_WMAPEProperties(t *testing.T) {
	actuals := []float64{3, 0, 17, 250, 9, 41}

	exact := make([]contracts.ForecastRecord, len(actuals))
	for i, a := range actuals {
		exact[i] = rec(a, contracts.Float(a))
	}
	acc := Measure(exact)
	require.NotNil(t, acc.WMAPE)
	assert.Equal(t, 0.0, *acc.WMAPE)

	for i := range actuals {
		off := make([]contracts.ForecastRecord, len(actuals))
		copy(off, exact)
		off[i] = rec(actuals[i], contracts.Float(actuals[i]+0.5))

		got := Measure(off)
		require.NotNil(t, got.WMAPE)
		assert.Greater(t, *got.WMAPE, 0.0, "row %d", i)
	}
}

func TestAccuracy_ErrorFallback(t *testing.T) {
	acc := Accuracy{MedianMAPE: contracts.Float(12)}
	assert.Equal(t, 12.0, *acc.Error())

	acc.WMAPE = contracts.Float(30)
	assert.Equal(t, 30.0, *acc.Error())
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}
