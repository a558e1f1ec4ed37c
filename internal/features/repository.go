package features

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/database"
)

var weeklyFeatureColumns = []string{
	"level", "entity_id", "year_week", "quantity", "revenue",
	"invoice_count", "customer_count", "avg_price", "avg_dq_score",
	"lag1", "lag2", "lag4",
	"rolling_avg_4w", "rolling_std_4w", "rolling_min_4w", "rolling_max_4w", "rolling_avg_8w",
	"week_of_year", "is_month_end", "is_quarter_end", "is_w47", "is_holiday_season",
	"price_change", "price_change_pct",
	"pattern", "sufficiency_tier",
}

// Repository stores demand.weekly_features
type Repository struct {
	db *database.DB
}

// NewRepository 새 저장소 생성
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceWeeklyFeatures swaps the whole level partition in one transaction
func (r *Repository) ReplaceWeeklyFeatures(ctx context.Context, level contracts.Level, rows []contracts.WeeklyAggregate) error {
	data := make([][]any, len(rows))
	for i, w := range rows {
		data[i] = []any{
			string(level), w.EntityID, w.YearWeek.String(), w.Quantity, w.Revenue,
			w.InvoiceCount, w.CustomerCount, w.AvgPrice, w.AvgDQScore,
			w.Lag1, w.Lag2, w.Lag4,
			w.RollingAvg4w, w.RollingStd4w, w.RollingMin4w, w.RollingMax4w, w.RollingAvg8w,
			w.WeekOfYear, w.IsMonthEnd, w.IsQuarterEnd, w.IsW47, w.IsHolidaySeason,
			w.PriceChange, w.PriceChangePct,
			string(w.Pattern), string(w.SufficiencyTier),
		}
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := database.ReplaceRows(ctx, tx,
			pgx.Identifier{"demand", "weekly_features"},
			database.Partition{Where: "level = $1", Args: []any{string(level)}},
			weeklyFeatureColumns, data,
		)
		if err != nil {
			return fmt.Errorf("replace weekly_features(%s): %w", level, err)
		}
		return nil
	})
}

// LoadWeeklyFeatures returns a level's rows ordered by entity, week
func (r *Repository) LoadWeeklyFeatures(ctx context.Context, level contracts.Level) ([]contracts.WeeklyAggregate, error) {
	query := `
		SELECT entity_id, year_week, quantity, revenue,
		       invoice_count, customer_count, avg_price, avg_dq_score,
		       lag1, lag2, lag4,
		       rolling_avg_4w, rolling_std_4w, rolling_min_4w, rolling_max_4w, rolling_avg_8w,
		       week_of_year, is_month_end, is_quarter_end, is_w47, is_holiday_season,
		       price_change, price_change_pct,
		       pattern, sufficiency_tier
		FROM demand.weekly_features
		WHERE level = $1
		ORDER BY entity_id, year_week`

	rows, err := r.db.Pool.Query(ctx, query, string(level))
	if err != nil {
		return nil, fmt.Errorf("query weekly_features: %w", err)
	}
	defer rows.Close()

	var out []contracts.WeeklyAggregate
	for rows.Next() {
		w := contracts.WeeklyAggregate{Level: level}
		var yw, pattern, tier string
		if err := rows.Scan(
			&w.EntityID, &yw, &w.Quantity, &w.Revenue,
			&w.InvoiceCount, &w.CustomerCount, &w.AvgPrice, &w.AvgDQScore,
			&w.Lag1, &w.Lag2, &w.Lag4,
			&w.RollingAvg4w, &w.RollingStd4w, &w.RollingMin4w, &w.RollingMax4w, &w.RollingAvg8w,
			&w.WeekOfYear, &w.IsMonthEnd, &w.IsQuarterEnd, &w.IsW47, &w.IsHolidaySeason,
			&w.PriceChange, &w.PriceChangePct,
			&pattern, &tier,
		); err != nil {
			return nil, fmt.Errorf("scan weekly_features: %w", err)
		}

		if w.YearWeek, err = contracts.ParseYearWeek(yw); err != nil {
			return nil, err
		}
		w.Pattern = contracts.Pattern(pattern)
		w.SufficiencyTier = contracts.SufficiencyTier(tier)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly_features: %w", err)
	}

	return out, nil
}
