package features

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
)

const (
	rollingWindow     = 4
	longWindow        = 8
	maxPriceChangePct = 100.0
)

// Config controls feature derivation
type Config struct {
	// FillMissingWeeks zero-fills weeks between an entity's first and last activity
	FillMissingWeeks bool

	// Parallelism bounds the per-entity workers (0 = 8)
	Parallelism int

	// PromoWeek is the one known demand-spike week (IsW47)
	PromoWeek int
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		FillMissingWeeks: false,
		Parallelism:      8,
		PromoWeek:        47,
	}
}

// Engine builds weekly feature rows from resolved transactions
// ⭐ SSOT: S2 weekly_features 생성은 여기서만
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a feature engine
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if cfg.PromoWeek == 0 {
		cfg.PromoWeek = 47
	}
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "features.engine").Logger(),
	}
}

// Build returns one row per (entity, week), sorted by entity then week.
// Customer-level input must already carry master keys.
func (e *Engine) Build(ctx context.Context, level contracts.Level, txns []contracts.RawTransaction) ([]contracts.WeeklyAggregate, error) {
	if _, err := contracts.ParseLevel(string(level)); err != nil {
		return nil, err
	}

	groups := make(map[string][]contracts.RawTransaction)
	skipped := 0
	for _, t := range txns {
		id := level.EntityKey(t)
		if id == "" {
			skipped++
			continue
		}
		groups[id] = append(groups[id], t)
	}

	entities := make([]string, 0, len(groups))
	for id := range groups {
		entities = append(entities, id)
	}
	sort.Strings(entities)

	// 엔티티별 독립 계산 (교차 의존 없음)
	series := make([][]contracts.WeeklyAggregate, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for i, id := range entities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series[i] = e.deriveEntity(level, id, groups[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build %s features: %w", level, err)
	}

	total := 0
	for _, s := range series {
		total += len(s)
	}
	rows := make([]contracts.WeeklyAggregate, 0, total)
	for _, s := range series {
		rows = append(rows, s...)
	}

	e.log.Info().
		Str("level", string(level)).
		Int("transactions", len(txns)).
		Int("skipped_no_key", skipped).
		Int("entities", len(entities)).
		Int("rows", len(rows)).
		Msg("weekly features built")

	return rows, nil
}

// bucket accumulates one (entity, week)
type bucket struct {
	quantity  float64
	revenue   float64
	priceSum  float64
	dqSum     float64
	lines     int
	invoices  map[string]struct{}
	customers map[string]struct{}
}

func newBucket() *bucket {
	return &bucket{
		invoices:  make(map[string]struct{}),
		customers: make(map[string]struct{}),
	}
}

func (b *bucket) add(t contracts.RawTransaction) {
	b.quantity += t.Quantity
	b.revenue += t.Revenue()
	b.priceSum += t.UnitPrice
	b.dqSum += float64(ingest.Score(t))
	b.lines++
	if t.InvoiceID != "" {
		b.invoices[t.InvoiceID] = struct{}{}
	}
	if t.OriginalCustomerID != "" {
		b.customers[t.OriginalCustomerID] = struct{}{}
	}
}

// avgPrice is revenue/quantity, or the mean unit price when nothing shipped
func (b *bucket) avgPrice() float64 {
	if b.quantity > 0 {
		return b.revenue / b.quantity
	}
	if b.lines > 0 {
		return b.priceSum / float64(b.lines)
	}
	return 0
}

func (e *Engine) deriveEntity(level contracts.Level, id string, txns []contracts.RawTransaction) []contracts.WeeklyAggregate {
	buckets := make(map[contracts.YearWeek]*bucket)
	for _, t := range txns {
		yw := t.YearWeek()
		b, ok := buckets[yw]
		if !ok {
			b = newBucket()
			buckets[yw] = b
		}
		b.add(t)
	}

	weeks := make([]contracts.YearWeek, 0, len(buckets))
	for yw := range buckets {
		weeks = append(weeks, yw)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Less(weeks[j]) })

	if e.cfg.FillMissingWeeks && len(weeks) > 1 {
		filled := make([]contracts.YearWeek, 0, weeks[0].WeeksBetween(weeks[len(weeks)-1])+1)
		for yw := weeks[0]; !yw.After(weeks[len(weeks)-1]); yw = yw.Add(1) {
			if _, ok := buckets[yw]; !ok {
				buckets[yw] = newBucket()
			}
			filled = append(filled, yw)
		}
		weeks = filled
	}

	rows := make([]contracts.WeeklyAggregate, 0, len(weeks))
	for _, yw := range weeks {
		b := buckets[yw]
		cal := Calendar(yw, e.cfg.PromoWeek)

		row := contracts.WeeklyAggregate{
			Level:           level,
			EntityID:        id,
			YearWeek:        yw,
			Quantity:        b.quantity,
			Revenue:         b.revenue,
			InvoiceCount:    len(b.invoices),
			CustomerCount:   len(b.customers),
			AvgPrice:        b.avgPrice(),
			WeekOfYear:      cal.WeekOfYear,
			IsMonthEnd:      cal.IsMonthEnd,
			IsQuarterEnd:    cal.IsQuarterEnd,
			IsW47:           cal.IsPromoWeek,
			IsHolidaySeason: cal.IsHolidaySeason,
		}
		if b.lines > 0 {
			row.AvgDQScore = b.dqSum / float64(b.lines)
		}

		row.Lag1 = lag(buckets, yw, 1)
		row.Lag2 = lag(buckets, yw, 2)
		row.Lag4 = lag(buckets, yw, 4)

		row.RollingAvg4w, row.RollingStd4w, row.RollingMin4w, row.RollingMax4w = rollingStats(trailing(buckets, yw, rollingWindow))
		row.RollingAvg8w, _, _, _ = rollingStats(trailing(buckets, yw, longWindow))

		row.PriceChange, row.PriceChangePct = priceChange(buckets, yw)

		rows = append(rows, row)
	}

	return rows
}

// lag returns the quantity exactly k calendar weeks before yw, or nil
func lag(buckets map[contracts.YearWeek]*bucket, yw contracts.YearWeek, k int) *float64 {
	b, ok := buckets[yw.Prev(k)]
	if !ok {
		return nil
	}
	return contracts.Float(b.quantity)
}

// trailing collects the present quantities of weeks yw-1..yw-n (never yw itself)
func trailing(buckets map[contracts.YearWeek]*bucket, yw contracts.YearWeek, n int) []float64 {
	window := make([]float64, 0, n)
	for k := 1; k <= n; k++ {
		if b, ok := buckets[yw.Prev(k)]; ok {
			window = append(window, b.quantity)
		}
	}
	return window
}

// rollingStats returns mean, sample std (needs ≥2 points), min, max
func rollingStats(window []float64) (avg, std, lo, hi *float64) {
	if len(window) == 0 {
		return nil, nil, nil, nil
	}

	sum := 0.0
	minV, maxV := window[0], window[0]
	for _, v := range window {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	mean := sum / float64(len(window))

	if len(window) >= 2 {
		ss := 0.0
		for _, v := range window {
			ss += (v - mean) * (v - mean)
		}
		std = contracts.Float(math.Sqrt(ss / float64(len(window)-1)))
	}

	return contracts.Float(mean), std, contracts.Float(minV), contracts.Float(maxV)
}

// priceChange compares avg price with the prior calendar week.
// Weeks without sales lines carry no price.
func priceChange(buckets map[contracts.YearWeek]*bucket, yw contracts.YearWeek) (change, pct *float64) {
	cur := buckets[yw]
	prev, ok := buckets[yw.Prev(1)]
	if !ok || prev.lines == 0 || cur.lines == 0 {
		return nil, nil
	}

	prior := prev.avgPrice()
	delta := cur.avgPrice() - prior
	change = contracts.Float(delta)

	if prior == 0 {
		return change, nil
	}
	p := 100 * delta / prior
	p = math.Max(-maxPriceChangePct, math.Min(maxPriceChangePct, p))
	return change, contracts.Float(p)
}
