package contracts

import "fmt"

// Level is the aggregation level of an entity series
type Level string

const (
	LevelSKU      Level = "sku"
	LevelCategory Level = "category"
	LevelCustomer Level = "customer"
)

// AllLevels returns every aggregation level in report order
func AllLevels() []Level {
	return []Level{LevelSKU, LevelCategory, LevelCustomer}
}

// ParseLevel converts a CLI/config string into a Level
func ParseLevel(s string) (Level, error) {
	for _, l := range AllLevels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q (sku|category|customer)", s)
}

// EntityKey selects the grouping key of a transaction for this level.
// Customer keys must already be resolved to master IDs.
func (l Level) EntityKey(t RawTransaction) string {
	switch l {
	case LevelCategory:
		return t.Category
	case LevelCustomer:
		return t.OriginalCustomerID
	default:
		return t.EntityKey
	}
}

// WeeklyAggregate is one entity's activity in one ISO week
// ⭐ SSOT: S2 → S3 → S4 데이터 계약 (weekly_features 테이블 1 row)
//
// 모든 lag/rolling 값은 현재 주를 포함하지 않음 (leakage 방지)
type WeeklyAggregate struct {
	Level         Level    `json:"level"`
	EntityID      string   `json:"entity_id"`
	YearWeek      YearWeek `json:"year_week"`
	Quantity      float64  `json:"quantity"`
	Revenue       float64  `json:"revenue"`
	InvoiceCount  int      `json:"invoice_count"`
	CustomerCount int      `json:"customer_count"`
	AvgPrice      float64  `json:"avg_price"`
	AvgDQScore    float64  `json:"avg_dq_score"`

	// Lag / rolling (nil = unavailable)
	Lag1         *float64 `json:"lag1"`
	Lag2         *float64 `json:"lag2"`
	Lag4         *float64 `json:"lag4"`
	RollingAvg4w *float64 `json:"rolling_avg_4w"`
	RollingStd4w *float64 `json:"rolling_std_4w"`
	RollingMin4w *float64 `json:"rolling_min_4w"`
	RollingMax4w *float64 `json:"rolling_max_4w"`
	RollingAvg8w *float64 `json:"rolling_avg_8w"`

	// Calendar
	WeekOfYear      int  `json:"week_of_year"`
	IsMonthEnd      bool `json:"is_month_end"`
	IsQuarterEnd    bool `json:"is_quarter_end"`
	IsW47           bool `json:"is_w47"`
	IsHolidaySeason bool `json:"is_holiday_season"`

	// Price change vs prior week
	PriceChange    *float64 `json:"price_change"`
	PriceChangePct *float64 `json:"price_change_pct"`

	Pattern         Pattern         `json:"pattern"`
	SufficiencyTier SufficiencyTier `json:"sufficiency_tier"`
}

// Key returns "entity|year_week", unique within one level
func (w WeeklyAggregate) Key() string {
	return w.EntityID + "|" + w.YearWeek.String()
}

// Float returns a pointer to v (nullable feature helper)
func Float(v float64) *float64 {
	return &v
}
