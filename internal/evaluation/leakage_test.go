package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func fullFeatures(target contracts.YearWeek) FeatureRow {
	return FeatureRow{
		YearWeek:     target,
		Lag1:         contracts.Float(1),
		Lag2:         contracts.Float(2),
		Lag4:         contracts.Float(4),
		RollingAvg4w: contracts.Float(2.5),
		RollingStd4w: contracts.Float(1),
		RollingMin4w: contracts.Float(1),
		RollingMax4w: contracts.Float(4),
		WeekOfYear:   target.Week,
	}
}

func TestCheckLeakage(t *testing.T) {
	trainEnd := contracts.YearWeek{Year: 2025, Week: 26}

	tests := []struct {
		name       string
		target     int
		strict     bool
		violations int
		lag1       bool
		lag2       bool
		lag4       bool
		rolling    bool
	}{
		{"first test week", 27, true, 0, true, true, true, true},
		{"second test week", 28, true, 2, false, true, true, false},
		{"third test week", 29, true, 3, false, false, true, false},
		{"sixth test week", 32, true, 4, false, false, false, false},
		{"one-step-ahead keeps history", 32, false, 0, true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := contracts.YearWeek{Year: 2025, Week: tt.target}
			got, n := CheckLeakage(fullFeatures(target), trainEnd, tt.strict)

			assert.Equal(t, tt.violations, n)
			assert.Equal(t, tt.lag1, got.Lag1 != nil, "lag1")
			assert.Equal(t, tt.lag2, got.Lag2 != nil, "lag2")
			assert.Equal(t, tt.lag4, got.Lag4 != nil, "lag4")
			assert.Equal(t, tt.rolling, got.RollingAvg4w != nil, "rolling")
			assert.Equal(t, tt.rolling, got.RollingMax4w != nil, "rolling max")
			assert.Equal(t, tt.target, got.WeekOfYear, "calendar untouched")
		})
	}
}

func TestCheckLeakage_LongWindow(t *testing.T) {
	trainEnd := contracts.YearWeek{Year: 2025, Week: 26}

	first := FeatureRow{YearWeek: contracts.YearWeek{Year: 2025, Week: 27}, RollingAvg8w: contracts.Float(3)}
	got, n := CheckLeakage(first, trainEnd, true)
	assert.Zero(t, n)
	assert.NotNil(t, got.RollingAvg8w)

	later := FeatureRow{YearWeek: contracts.YearWeek{Year: 2025, Week: 28}, RollingAvg8w: contracts.Float(3)}
	got, n = CheckLeakage(later, trainEnd, true)
	assert.Equal(t, 1, n)
	assert.Nil(t, got.RollingAvg8w)

	got, n = CheckLeakage(later, trainEnd, false)
	assert.Zero(t, n)
	assert.NotNil(t, got.RollingAvg8w)
}

func TestFeaturesOf_DropsTargetWeekValues(t *testing.T) {
	row := contracts.WeeklyAggregate{
		YearWeek:    contracts.YearWeek{Year: 2025, Week: 30},
		Quantity:    999,
		Revenue:     5000,
		AvgPrice:    5,
		PriceChange: contracts.Float(1),
		Lag1:        contracts.Float(7),
		IsW47:       true,
	}

	f := FeaturesOf(row)
	assert.Equal(t, row.YearWeek, f.YearWeek)
	assert.Equal(t, row.Lag1, f.Lag1)
	assert.True(t, f.IsW47)
}
