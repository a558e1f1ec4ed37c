package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/database"
)

// Repository stores forecast_evaluation, accuracy_reports, model_selection and evaluation_runs
type Repository struct {
	db *database.DB
}

// NewRepository 새 저장소 생성
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceEvaluation swaps a level's evaluation outputs in one transaction
// ⭐ SSOT: 평가 결과는 레벨 단위 전체 교체 (row 단위 upsert 없음)
func (r *Repository) ReplaceEvaluation(ctx context.Context, level contracts.Level, records []contracts.ForecastRecord, reports []contracts.AccuracyReport, selections []contracts.ModelSelection) error {
	part := database.Partition{Where: "level = $1", Args: []any{string(level)}}

	recordRows := make([][]any, len(records))
	for i, rec := range records {
		recordRows[i] = []any{
			string(level), rec.EntityID, rec.YearWeek.String(), rec.ModelTag,
			rec.Actual, rec.Predicted, rec.AbsError, rec.PctError,
			string(rec.ConfidenceLevel),
		}
	}

	reportRows := make([][]any, len(reports))
	for i, rep := range reports {
		reportRows[i] = []any{
			string(level), rep.Scope, rep.Key, rep.ModelTag,
			rep.SampleCount, rep.MissingCount, rep.EntityCount,
			rep.MAE, rep.RMSE, rep.MedianMAPE, rep.WMAPE,
			string(rep.Pattern), string(rep.Tier), string(rep.Confidence), rep.Disclaimer,
		}
	}

	selectionRows := make([][]any, len(selections))
	for i, sel := range selections {
		selectionRows[i] = []any{string(level), sel.EntityID, sel.ModelTag, sel.WMAPE, sel.Runners}
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := database.ReplaceRows(ctx, tx,
			pgx.Identifier{"demand", "forecast_evaluation"}, part,
			[]string{"level", "entity_id", "year_week", "model_tag", "actual", "predicted", "abs_error", "pct_error", "confidence_level"},
			recordRows,
		); err != nil {
			return fmt.Errorf("replace forecast_evaluation(%s): %w", level, err)
		}

		if _, err := database.ReplaceRows(ctx, tx,
			pgx.Identifier{"demand", "accuracy_reports"}, part,
			[]string{"level", "scope", "report_key", "model_tag", "sample_count", "missing_count", "entity_count",
				"mae", "rmse", "median_mape", "wmape", "pattern", "sufficiency_tier", "confidence_level", "disclaimer"},
			reportRows,
		); err != nil {
			return fmt.Errorf("replace accuracy_reports(%s): %w", level, err)
		}

		if _, err := database.ReplaceRows(ctx, tx,
			pgx.Identifier{"demand", "model_selection"}, part,
			[]string{"level", "entity_id", "model_tag", "wmape", "candidates"},
			selectionRows,
		); err != nil {
			return fmt.Errorf("replace model_selection(%s): %w", level, err)
		}

		return nil
	})
}

// SaveRun records the audit row of a pipeline run
func (r *Repository) SaveRun(ctx context.Context, run contracts.EvaluationRun) error {
	query := `
		INSERT INTO demand.evaluation_runs (
			run_id, config_hash, train_end, model_tags, entity_count, record_count,
			success, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			entity_count = EXCLUDED.entity_count,
			record_count = EXCLUDED.record_count,
			success      = EXCLUDED.success,
			error        = EXCLUDED.error,
			finished_at  = EXCLUDED.finished_at`

	_, err := r.db.Pool.Exec(ctx, query,
		run.RunID, run.ConfigHash, run.TrainEnd.String(), run.ModelTags,
		run.EntityCount, run.RecordCount, run.Success, run.Error,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save evaluation run %s: %w", run.RunID, err)
	}
	return nil
}

// LoadReports reads accuracy reports of a level (and scope, if set)
func (r *Repository) LoadReports(ctx context.Context, level contracts.Level, scope string) ([]contracts.AccuracyReport, error) {
	query := `
		SELECT scope, report_key, model_tag, sample_count, missing_count, entity_count,
		       mae, rmse, median_mape, wmape, pattern, sufficiency_tier, confidence_level, disclaimer
		FROM demand.accuracy_reports
		WHERE level = $1 AND ($2 = '' OR scope = $2)
		ORDER BY scope, report_key, model_tag`

	rows, err := r.db.Pool.Query(ctx, query, string(level), scope)
	if err != nil {
		return nil, fmt.Errorf("query accuracy_reports: %w", err)
	}
	defer rows.Close()

	var out []contracts.AccuracyReport
	for rows.Next() {
		rep := contracts.AccuracyReport{Level: level}
		var pattern, tier, confidence string
		if err := rows.Scan(
			&rep.Scope, &rep.Key, &rep.ModelTag, &rep.SampleCount, &rep.MissingCount, &rep.EntityCount,
			&rep.MAE, &rep.RMSE, &rep.MedianMAPE, &rep.WMAPE, &pattern, &tier, &confidence, &rep.Disclaimer,
		); err != nil {
			return nil, fmt.Errorf("scan accuracy_reports: %w", err)
		}
		rep.Pattern = contracts.Pattern(pattern)
		rep.Tier = contracts.SufficiencyTier(tier)
		rep.Confidence = contracts.Confidence(confidence)
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accuracy_reports: %w", err)
	}
	return out, nil
}

// LoadRecords reads the forecast rows of one entity
func (r *Repository) LoadRecords(ctx context.Context, level contracts.Level, entityID string) ([]contracts.ForecastRecord, error) {
	query := `
		SELECT year_week, model_tag, actual, predicted, abs_error, pct_error, confidence_level
		FROM demand.forecast_evaluation
		WHERE level = $1 AND entity_id = $2
		ORDER BY model_tag, year_week`

	rows, err := r.db.Pool.Query(ctx, query, string(level), entityID)
	if err != nil {
		return nil, fmt.Errorf("query forecast_evaluation: %w", err)
	}
	defer rows.Close()

	var out []contracts.ForecastRecord
	for rows.Next() {
		rec := contracts.ForecastRecord{Level: level, EntityID: entityID}
		var yw, confidence string
		if err := rows.Scan(&yw, &rec.ModelTag, &rec.Actual, &rec.Predicted, &rec.AbsError, &rec.PctError, &confidence); err != nil {
			return nil, fmt.Errorf("scan forecast_evaluation: %w", err)
		}
		if rec.YearWeek, err = contracts.ParseYearWeek(yw); err != nil {
			return nil, err
		}
		rec.ConfidenceLevel = contracts.Confidence(confidence)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast_evaluation: %w", err)
	}
	return out, nil
}

// LoadSelections reads model_selection of a level
func (r *Repository) LoadSelections(ctx context.Context, level contracts.Level) ([]contracts.ModelSelection, error) {
	query := `
		SELECT entity_id, model_tag, wmape, candidates
		FROM demand.model_selection
		WHERE level = $1
		ORDER BY entity_id`

	rows, err := r.db.Pool.Query(ctx, query, string(level))
	if err != nil {
		return nil, fmt.Errorf("query model_selection: %w", err)
	}
	defer rows.Close()

	var out []contracts.ModelSelection
	for rows.Next() {
		sel := contracts.ModelSelection{Level: level}
		if err := rows.Scan(&sel.EntityID, &sel.ModelTag, &sel.WMAPE, &sel.Runners); err != nil {
			return nil, fmt.Errorf("scan model_selection: %w", err)
		}
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model_selection: %w", err)
	}
	return out, nil
}

// LatestRun returns the newest evaluation run, or nil
func (r *Repository) LatestRun(ctx context.Context) (*contracts.EvaluationRun, error) {
	query := `
		SELECT run_id::text, config_hash, train_end, model_tags, entity_count, record_count,
		       success, error, started_at, finished_at
		FROM demand.evaluation_runs
		ORDER BY started_at DESC
		LIMIT 1`

	var run contracts.EvaluationRun
	var trainEnd string
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&run.RunID, &run.ConfigHash, &trainEnd, &run.ModelTags, &run.EntityCount, &run.RecordCount,
		&run.Success, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query evaluation_runs: %w", err)
	}
	if run.TrainEnd, err = contracts.ParseYearWeek(trainEnd); err != nil {
		return nil, err
	}
	return &run, nil
}
