package evaluation

import (
	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// CheckLeakage nulls every lag/rolling input that is not known at prediction time.
// Inputs at or after the target week always leak. Under strict walk-forward, inputs
// after trainEnd leak too. Returns the cleaned row and the number of nulled inputs.
func CheckLeakage(f FeatureRow, trainEnd contracts.YearWeek, strict bool) (FeatureRow, int) {
	leaks := func(source contracts.YearWeek) bool {
		if !source.Less(f.YearWeek) {
			return true
		}
		return strict && source.After(trainEnd)
	}

	violations := 0
	for _, lag := range []struct {
		k   int
		ptr **float64
	}{
		{1, &f.Lag1},
		{2, &f.Lag2},
		{4, &f.Lag4},
	} {
		if *lag.ptr != nil && leaks(f.YearWeek.Prev(lag.k)) {
			*lag.ptr = nil
			violations++
		}
	}

	// rolling window = target-1 .. target-n; the newest week decides
	if f.RollingAvg4w != nil && leaks(f.YearWeek.Prev(1)) {
		f.RollingAvg4w, f.RollingStd4w, f.RollingMin4w, f.RollingMax4w = nil, nil, nil, nil
		violations++
	}
	if f.RollingAvg8w != nil && leaks(f.YearWeek.Prev(1)) {
		f.RollingAvg8w = nil
		violations++
	}

	return f, violations
}
