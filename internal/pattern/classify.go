package pattern

import (
	"math"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Thresholds for pattern and sufficiency decisions
type Thresholds struct {
	MinWeeks       int     `yaml:"min_weeks" json:"min_weeks"`               // below → insufficient
	FullWeeks      int     `yaml:"full_weeks" json:"full_weeks"`             // at or above → full tier
	StableCV       float64 `yaml:"stable_cv" json:"stable_cv"`               // cv < → stable
	CyclicalCV     float64 `yaml:"cyclical_cv" json:"cyclical_cv"`           // cv < → cyclical
	BulkRangeRatio float64 `yaml:"bulk_range_ratio" json:"bulk_range_ratio"` // ratio > → bulk_oneoff
}

// DefaultThresholds returns the production thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWeeks:       10,
		FullWeeks:      20,
		StableCV:       0.3,
		CyclicalCV:     0.7,
		BulkRangeRatio: 10,
	}
}

// Stats describes one entity's weekly quantity series
type Stats struct {
	N          int     `json:"n_weeks"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"` // population
	CV         float64 `json:"cv"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	RangeRatio float64 `json:"range_ratio"`
}

// Profile computes the series statistics used by Classify.
// Denominators are floored at 1 so near-zero series never divide by zero.
func Profile(quantities []float64) Stats {
	s := Stats{N: len(quantities)}
	if s.N == 0 {
		return s
	}

	s.Min, s.Max = quantities[0], quantities[0]
	sum := 0.0
	for _, q := range quantities {
		sum += q
		s.Min = math.Min(s.Min, q)
		s.Max = math.Max(s.Max, q)
	}
	s.Mean = sum / float64(s.N)

	ss := 0.0
	for _, q := range quantities {
		ss += (q - s.Mean) * (q - s.Mean)
	}
	s.Std = math.Sqrt(ss / float64(s.N))

	s.CV = s.Std / math.Max(s.Mean, 1)
	s.RangeRatio = s.Max / math.Max(s.Min, 1)
	return s
}

// Classify tags a completed weekly series. First match wins:
// insufficient_data → stable → cyclical → bulk_oneoff → high_variance.
func Classify(quantities []float64, cfg Thresholds) contracts.Pattern {
	return classifyStats(Profile(quantities), cfg)
}

func classifyStats(s Stats, cfg Thresholds) contracts.Pattern {
	switch {
	case s.N < cfg.MinWeeks:
		return contracts.PatternInsufficientData
	case s.CV < cfg.StableCV:
		return contracts.PatternStable
	case s.CV < cfg.CyclicalCV:
		return contracts.PatternCyclical
	case s.RangeRatio > cfg.BulkRangeRatio:
		return contracts.PatternBulkOneOff
	default:
		return contracts.PatternHighVariance
	}
}

// Tier is a pure function of history length
func Tier(nWeeks int, cfg Thresholds) contracts.SufficiencyTier {
	switch {
	case nWeeks >= cfg.FullWeeks:
		return contracts.TierFull
	case nWeeks >= cfg.MinWeeks:
		return contracts.TierMarginal
	default:
		return contracts.TierInsufficient
	}
}
