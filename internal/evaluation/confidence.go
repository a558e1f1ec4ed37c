package evaluation

import (
	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// ConfidenceThresholds are error cut-offs in percent
type ConfidenceThresholds struct {
	High   float64 `yaml:"high" json:"high"`     // error < High → high (full tier)
	Medium float64 `yaml:"medium" json:"medium"` // error < Medium → medium
}

// DefaultConfidenceThresholds returns 40 / 70
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{High: 40, Medium: 70}
}

// Disclaimers shown next to a confidence label
const (
	DisclaimerNoForecast = "no forecast available: fewer than 10 weeks of history"
	DisclaimerBulk       = "bulk/one-off buying pattern: weekly forecast not reliable"
	DisclaimerMarginal   = "limited history (10-19 weeks): treat as indicative"
	DisclaimerNoAccuracy = "no measurable accuracy in the test window"
)

// Confidence is a deterministic lookup of tier, pattern and error (WMAPE, else median MAPE)
// ⭐ SSOT: 신뢰도 등급 규칙 (모델 아님, 조회 테이블)
func Confidence(tier contracts.SufficiencyTier, p contracts.Pattern, errPct *float64, th ConfidenceThresholds) (contracts.Confidence, string) {
	switch {
	case tier == contracts.TierInsufficient || p == contracts.PatternInsufficientData:
		return contracts.ConfidenceNone, DisclaimerNoForecast
	case p == contracts.PatternBulkOneOff:
		return contracts.ConfidenceLow, DisclaimerBulk
	case errPct == nil:
		return contracts.ConfidenceLow, DisclaimerNoAccuracy
	}

	e := *errPct
	if tier == contracts.TierMarginal {
		if e < th.Medium {
			return contracts.ConfidenceMedium, DisclaimerMarginal
		}
		return contracts.ConfidenceLow, DisclaimerMarginal
	}

	switch {
	case e < th.High:
		return contracts.ConfidenceHigh, ""
	case e < th.Medium:
		return contracts.ConfidenceMedium, ""
	default:
		return contracts.ConfidenceLow, ""
	}
}
