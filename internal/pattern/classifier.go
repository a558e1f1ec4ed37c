package pattern

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// EntityClass is the classification of one entity series
type EntityClass struct {
	Level    contracts.Level           `json:"level"`
	EntityID string                    `json:"entity_id"`
	Stats    Stats                     `json:"stats"`
	Pattern  contracts.Pattern         `json:"pattern"`
	Tier     contracts.SufficiencyTier `json:"sufficiency_tier"`
}

// NoForecast reports whether the entity is excluded from evaluation
func (c EntityClass) NoForecast() bool {
	return !c.Tier.Forecastable()
}

// Classifier stamps pattern and tier onto feature rows
// ⭐ SSOT: S3 패턴/티어 분류
type Classifier struct {
	cfg         Thresholds
	parallelism int
	log         zerolog.Logger
}

// NewClassifier creates a classifier. parallelism ≤ 0 means 8.
func NewClassifier(cfg Thresholds, parallelism int, log zerolog.Logger) *Classifier {
	if parallelism <= 0 {
		parallelism = 8
	}
	return &Classifier{
		cfg:         cfg,
		parallelism: parallelism,
		log:         log.With().Str("component", "pattern.classifier").Logger(),
	}
}

type entityKey struct {
	level contracts.Level
	id    string
}

// Classify groups rows by entity and classifies each series in week order
func (c *Classifier) Classify(ctx context.Context, rows []contracts.WeeklyAggregate) ([]EntityClass, error) {
	groups := make(map[entityKey][]contracts.WeeklyAggregate)
	for _, r := range rows {
		k := entityKey{r.Level, r.EntityID}
		groups[k] = append(groups[k], r)
	}

	keys := make([]entityKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].level != keys[j].level {
			return keys[i].level < keys[j].level
		}
		return keys[i].id < keys[j].id
	})

	out := make([]EntityClass, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, k := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series := groups[k]
			sort.Slice(series, func(a, b int) bool { return series[a].YearWeek.Less(series[b].YearWeek) })

			qty := make([]float64, len(series))
			for j, r := range series {
				qty[j] = r.Quantity
			}

			stats := Profile(qty)
			out[i] = EntityClass{
				Level:    k.level,
				EntityID: k.id,
				Stats:    stats,
				Pattern:  classifyStats(stats, c.cfg),
				Tier:     Tier(stats.N, c.cfg),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify entities: %w", err)
	}

	return out, nil
}

// Annotate returns a copy of rows with pattern and tier set, in input order
func (c *Classifier) Annotate(ctx context.Context, rows []contracts.WeeklyAggregate) ([]contracts.WeeklyAggregate, error) {
	classes, err := c.Classify(ctx, rows)
	if err != nil {
		return nil, err
	}
	return c.Stamp(rows, classes), nil
}

// Stamp copies pattern and tier from classes onto rows, in input order
func (c *Classifier) Stamp(rows []contracts.WeeklyAggregate, classes []EntityClass) []contracts.WeeklyAggregate {
	byKey := make(map[entityKey]EntityClass, len(classes))
	counts := make(map[contracts.Pattern]int)
	noForecast := 0
	for _, ec := range classes {
		byKey[entityKey{ec.Level, ec.EntityID}] = ec
		counts[ec.Pattern]++
		if ec.NoForecast() {
			noForecast++
		}
	}

	out := make([]contracts.WeeklyAggregate, len(rows))
	for i, r := range rows {
		ec := byKey[entityKey{r.Level, r.EntityID}]
		r.Pattern = ec.Pattern
		r.SufficiencyTier = ec.Tier
		out[i] = r
	}

	ev := c.log.Info().
		Int("entities", len(classes)).
		Int("no_forecast", noForecast)
	for _, p := range contracts.AllPatterns() {
		ev = ev.Int(string(p), counts[p])
	}
	ev.Msg("pattern classification completed")

	return out
}

// Distribution counts entities per pattern
func Distribution(classes []EntityClass) map[contracts.Pattern]int {
	out := make(map[contracts.Pattern]int)
	for _, ec := range classes {
		out[ec.Pattern]++
	}
	return out
}
