package contracts

// Pattern is the demand-shape tag of an entity series
type Pattern string

const (
	PatternStable           Pattern = "stable"
	PatternCyclical         Pattern = "cyclical"
	PatternBulkOneOff       Pattern = "bulk_oneoff"
	PatternHighVariance     Pattern = "high_variance"
	PatternInsufficientData Pattern = "insufficient_data"
)

// AllPatterns returns every pattern tag in decision order
func AllPatterns() []Pattern {
	return []Pattern{
		PatternInsufficientData,
		PatternStable,
		PatternCyclical,
		PatternBulkOneOff,
		PatternHighVariance,
	}
}

// IsValid checks the tag against AllPatterns
func (p Pattern) IsValid() bool {
	for _, known := range AllPatterns() {
		if p == known {
			return true
		}
	}
	return false
}

// SufficiencyTier classifies history length
type SufficiencyTier string

const (
	TierFull         SufficiencyTier = "full"
	TierMarginal     SufficiencyTier = "marginal"
	TierInsufficient SufficiencyTier = "insufficient"
)

// Forecastable reports whether entities in this tier are modeled at all
func (t SufficiencyTier) Forecastable() bool {
	return t == TierFull || t == TierMarginal
}

// Confidence is the deterministic confidence label of an entity's forecast
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// DQTier is the row-level data quality bucket
type DQTier string

const (
	DQPoor      DQTier = "poor"
	DQFair      DQTier = "fair"
	DQGood      DQTier = "good"
	DQExcellent DQTier = "excellent"
)
