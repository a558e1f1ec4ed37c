package contracts

import (
	"math"
	"time"
)

// RawTransaction is one invoice line as delivered by the transaction feed
// ⭐ SSOT: S0 입력 레코드
type RawTransaction struct {
	OriginalCustomerID string    `json:"original_customer_id"`           // 숫자 또는 영숫자, 변환하지 않음
	CustomerName       string    `json:"customer_name"`
	EntityKey          string    `json:"entity_key" validate:"required"` // sku
	Category           string    `json:"category"`
	InvoiceID          string    `json:"invoice_id"`
	OrderDate          time.Time `json:"order_date" validate:"required"`
	Quantity           float64   `json:"quantity" validate:"gte=0"`
	UnitPrice          float64   `json:"unit_price"`
	Region             string    `json:"region"`
}

// Revenue returns quantity × unit price
func (t RawTransaction) Revenue() float64 {
	return t.Quantity * t.UnitPrice
}

// YearWeek returns the ISO week the order falls in
func (t RawTransaction) YearWeek() YearWeek {
	return YearWeekOf(t.OrderDate)
}

// Finite reports whether the numeric fields are usable (no NaN/Inf)
func (t RawTransaction) Finite() bool {
	return !math.IsNaN(t.Quantity) && !math.IsInf(t.Quantity, 0) &&
		!math.IsNaN(t.UnitPrice) && !math.IsInf(t.UnitPrice, 0)
}

// Known distributor regions. Anything else is reported as RegionUnknown.
const (
	RegionCapeTown  = "ACWCP"
	RegionGauteng   = "ACWGT"
	RegionGeorge    = "ACWGE"
	RegionPolokwane = "ACWPK"
	RegionHardware  = "ACWHW"
	RegionUnknown   = "Unknown"
)

// KnownRegions returns the region codes in report order
func KnownRegions() []string {
	return []string{RegionCapeTown, RegionGauteng, RegionGeorge, RegionPolokwane, RegionHardware}
}

// IsKnownRegion checks a region code against KnownRegions
func IsKnownRegion(region string) bool {
	for _, r := range KnownRegions() {
		if r == region {
			return true
		}
	}
	return false
}
