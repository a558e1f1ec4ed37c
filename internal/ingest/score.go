package ingest

import (
	"math"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// Row-level data quality deductions
const (
	penaltyMissingRevenue  = 30
	penaltyUnknownRegion   = 20
	penaltyMissingCustomer = 10
)

// Score returns the 0-100 data quality score of one accepted row
func Score(t contracts.RawTransaction) int {
	score := 100
	if t.UnitPrice == 0 && t.Revenue() == 0 {
		score -= penaltyMissingRevenue
	}
	if !contracts.IsKnownRegion(t.Region) {
		score -= penaltyUnknownRegion
	}
	if t.OriginalCustomerID == "" {
		score -= penaltyMissingCustomer
	}
	if score < 0 {
		score = 0
	}
	return score
}

// TierOf buckets a score: ≤50 poor, ≤70 fair, ≤90 good, else excellent
func TierOf(score float64) contracts.DQTier {
	switch {
	case score <= 50:
		return contracts.DQPoor
	case score <= 70:
		return contracts.DQFair
	case score <= 90:
		return contracts.DQGood
	default:
		return contracts.DQExcellent
	}
}

// QualityReport summarizes one batch of transactions
type QualityReport struct {
	Total           int                      `json:"total"`
	Accepted        int                      `json:"accepted"`
	Rejected        int                      `json:"rejected"`
	AvgScore        float64                  `json:"avg_score"`
	ByTier          map[contracts.DQTier]int `json:"by_tier"`
	ByRegion        map[string]int           `json:"by_region"`
	MissingCustomer int                      `json:"missing_customer"`
	RejectReasons   map[string]int           `json:"reject_reasons"` // field → count
}

// Summarize builds a QualityReport from the gate output
func Summarize(accepted []contracts.RawTransaction, rejected []error) QualityReport {
	report := QualityReport{
		Total:         len(accepted) + len(rejected),
		Accepted:      len(accepted),
		Rejected:      len(rejected),
		ByTier:        make(map[contracts.DQTier]int),
		ByRegion:      make(map[string]int),
		RejectReasons: make(map[string]int),
	}

	var sum float64
	for _, t := range accepted {
		s := Score(t)
		sum += float64(s)
		report.ByTier[TierOf(float64(s))]++

		region := t.Region
		if !contracts.IsKnownRegion(region) {
			region = contracts.RegionUnknown
		}
		report.ByRegion[region]++

		if t.OriginalCustomerID == "" {
			report.MissingCustomer++
		}
	}
	if len(accepted) > 0 {
		report.AvgScore = sum / float64(len(accepted))
	}

	for _, err := range rejected {
		if mre, ok := err.(*contracts.MalformedRecordError); ok {
			report.RejectReasons[mre.Field]++
			continue
		}
		report.RejectReasons["other"]++
	}

	return report
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
