package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the demand schema. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS demand`,

	`CREATE TABLE IF NOT EXISTS demand.transactions (
		id                   BIGSERIAL PRIMARY KEY,
		original_customer_id TEXT NOT NULL DEFAULT '',
		customer_name        TEXT NOT NULL DEFAULT '',
		entity_key           TEXT NOT NULL,
		category             TEXT NOT NULL DEFAULT '',
		invoice_id           TEXT NOT NULL DEFAULT '',
		order_date           DATE NOT NULL,
		quantity             DOUBLE PRECISION NOT NULL,
		unit_price           DOUBLE PRECISION NOT NULL,
		region               TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_order_date ON demand.transactions (order_date)`,

	`CREATE TABLE IF NOT EXISTS demand.customer_identity (
		original_customer_id TEXT PRIMARY KEY,
		master_customer_id   BIGINT NOT NULL,
		customer_name        TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customer_identity_master ON demand.customer_identity (master_customer_id)`,

	`CREATE TABLE IF NOT EXISTS demand.weekly_features (
		level             TEXT NOT NULL,
		entity_id         TEXT NOT NULL,
		year_week         TEXT NOT NULL,
		quantity          DOUBLE PRECISION NOT NULL,
		revenue           DOUBLE PRECISION NOT NULL,
		invoice_count     INTEGER NOT NULL,
		customer_count    INTEGER NOT NULL,
		avg_price         DOUBLE PRECISION NOT NULL,
		avg_dq_score      DOUBLE PRECISION NOT NULL,
		lag1              DOUBLE PRECISION,
		lag2              DOUBLE PRECISION,
		lag4              DOUBLE PRECISION,
		rolling_avg_4w    DOUBLE PRECISION,
		rolling_std_4w    DOUBLE PRECISION,
		rolling_min_4w    DOUBLE PRECISION,
		rolling_max_4w    DOUBLE PRECISION,
		rolling_avg_8w    DOUBLE PRECISION,
		week_of_year      INTEGER NOT NULL,
		is_month_end      BOOLEAN NOT NULL,
		is_quarter_end    BOOLEAN NOT NULL,
		is_w47            BOOLEAN NOT NULL,
		is_holiday_season BOOLEAN NOT NULL,
		price_change      DOUBLE PRECISION,
		price_change_pct  DOUBLE PRECISION,
		pattern           TEXT NOT NULL,
		sufficiency_tier  TEXT NOT NULL,
		PRIMARY KEY (level, entity_id, year_week)
	)`,

	`ALTER TABLE demand.weekly_features ADD COLUMN IF NOT EXISTS rolling_avg_8w DOUBLE PRECISION`,

	`CREATE TABLE IF NOT EXISTS demand.forecast_evaluation (
		level            TEXT NOT NULL,
		entity_id        TEXT NOT NULL,
		year_week        TEXT NOT NULL,
		model_tag        TEXT NOT NULL,
		actual           DOUBLE PRECISION NOT NULL,
		predicted        DOUBLE PRECISION,
		abs_error        DOUBLE PRECISION,
		pct_error        DOUBLE PRECISION,
		confidence_level TEXT NOT NULL,
		PRIMARY KEY (level, entity_id, year_week, model_tag)
	)`,

	`CREATE TABLE IF NOT EXISTS demand.accuracy_reports (
		level            TEXT NOT NULL,
		scope            TEXT NOT NULL,
		report_key       TEXT NOT NULL,
		model_tag        TEXT NOT NULL,
		sample_count     INTEGER NOT NULL,
		missing_count    INTEGER NOT NULL,
		entity_count     INTEGER NOT NULL,
		mae              DOUBLE PRECISION,
		rmse             DOUBLE PRECISION,
		median_mape      DOUBLE PRECISION,
		wmape            DOUBLE PRECISION,
		pattern          TEXT NOT NULL DEFAULT '',
		sufficiency_tier TEXT NOT NULL DEFAULT '',
		confidence_level TEXT NOT NULL,
		disclaimer       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (level, scope, report_key, model_tag)
	)`,

	`CREATE TABLE IF NOT EXISTS demand.model_selection (
		level      TEXT NOT NULL,
		entity_id  TEXT NOT NULL,
		model_tag  TEXT NOT NULL,
		wmape      DOUBLE PRECISION,
		candidates INTEGER NOT NULL,
		PRIMARY KEY (level, entity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS demand.evaluation_runs (
		run_id       UUID PRIMARY KEY,
		config_hash  TEXT NOT NULL,
		train_end    TEXT NOT NULL,
		model_tags   TEXT[] NOT NULL,
		entity_count INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		success      BOOLEAN NOT NULL,
		error        TEXT NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the demand schema if missing
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
