package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

func TestConfidence(t *testing.T) {
	th := DefaultConfidenceThresholds()

	tests := []struct {
		name       string
		tier       contracts.SufficiencyTier
		pattern    contracts.Pattern
		err        *float64
		want       contracts.Confidence
		disclaimer string
	}{
		{"insufficient", contracts.TierInsufficient, contracts.PatternInsufficientData, nil, contracts.ConfidenceNone, DisclaimerNoForecast},
		{"bulk full", contracts.TierFull, contracts.PatternBulkOneOff, contracts.Float(5), contracts.ConfidenceLow, DisclaimerBulk},
		{"full good", contracts.TierFull, contracts.PatternStable, contracts.Float(25), contracts.ConfidenceHigh, ""},
		{"full at high cut", contracts.TierFull, contracts.PatternStable, contracts.Float(40), contracts.ConfidenceMedium, ""},
		{"full medium", contracts.TierFull, contracts.PatternCyclical, contracts.Float(69.9), contracts.ConfidenceMedium, ""},
		{"full poor", contracts.TierFull, contracts.PatternHighVariance, contracts.Float(70), contracts.ConfidenceLow, ""},
		{"marginal good", contracts.TierMarginal, contracts.PatternStable, contracts.Float(10), contracts.ConfidenceMedium, DisclaimerMarginal},
		{"marginal poor", contracts.TierMarginal, contracts.PatternStable, contracts.Float(95), contracts.ConfidenceLow, DisclaimerMarginal},
		{"no accuracy", contracts.TierFull, contracts.PatternStable, nil, contracts.ConfidenceLow, DisclaimerNoAccuracy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, disclaimer := Confidence(tt.tier, tt.pattern, tt.err, th)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.disclaimer, disclaimer)
		})
	}
}
