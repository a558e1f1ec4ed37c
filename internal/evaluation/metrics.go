package evaluation

import (
	"math"
	"sort"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Accuracy holds the error metrics of a group of records.
// Nil means "not computable" (no rows with a prediction, or Σactual ≤ 0 for WMAPE).
type Accuracy struct {
	SampleCount  int      `json:"sample_count"`
	MissingCount int      `json:"missing_count"`
	MAE          *float64 `json:"mae"`
	RMSE         *float64 `json:"rmse"`
	MedianMAPE   *float64 `json:"median_mape"`
	WMAPE        *float64 `json:"wmape"`
}

// Error returns the error used for confidence: WMAPE, else median MAPE
func (a Accuracy) Error() *float64 {
	if a.WMAPE != nil {
		return a.WMAPE
	}
	return a.MedianMAPE
}

// ScoreRecord fills AbsError and PctError from Actual/Predicted.
// pct_error is null when actual == 0.
func ScoreRecord(r *contracts.ForecastRecord) {
	if r.Predicted == nil {
		r.AbsError, r.PctError = nil, nil
		return
	}
	abs := math.Abs(r.Actual - *r.Predicted)
	r.AbsError = contracts.Float(abs)
	if r.Actual == 0 {
		r.PctError = nil
		return
	}
	r.PctError = contracts.Float(100 * abs / math.Abs(r.Actual))
}

// Measure aggregates records. Rows without a prediction only count as missing.
// WMAPE = 100·Σ|a−p| / Σa over predicted rows; zero-actual rows add to the numerator only.
func Measure(records []contracts.ForecastRecord) Accuracy {
	var acc Accuracy
	var sumAbs, sumSq, sumActual float64
	var pcts []float64

	for _, r := range records {
		if r.Predicted == nil {
			acc.MissingCount++
			continue
		}
		acc.SampleCount++

		abs := math.Abs(r.Actual - *r.Predicted)
		sumAbs += abs
		sumSq += abs * abs
		sumActual += r.Actual

		if r.Actual != 0 {
			pcts = append(pcts, 100*abs/math.Abs(r.Actual))
		}
	}

	if acc.SampleCount == 0 {
		return acc
	}

	n := float64(acc.SampleCount)
	acc.MAE = contracts.Float(sumAbs / n)
	acc.RMSE = contracts.Float(math.Sqrt(sumSq / n))
	if len(pcts) > 0 {
		acc.MedianMAPE = contracts.Float(median(pcts))
	}
	if sumActual > 0 {
		acc.WMAPE = contracts.Float(100 * sumAbs / sumActual)
	}

	return acc
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
