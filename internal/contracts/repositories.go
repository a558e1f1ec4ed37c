package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// TransactionSource loads raw invoice lines from the upstream feed
type TransactionSource interface {
	LoadTransactions(ctx context.Context, from, to time.Time) ([]RawTransaction, error)
}

// IdentityStore persists customer identities. Writes never alter existing mappings.
type IdentityStore interface {
	LoadIdentities(ctx context.Context) ([]CustomerIdentity, error)
	AppendIdentities(ctx context.Context, identities []CustomerIdentity) error
}

// WeeklyFeatureStore holds the weekly_features table (full replace per level)
type WeeklyFeatureStore interface {
	ReplaceWeeklyFeatures(ctx context.Context, level Level, rows []WeeklyAggregate) error
	LoadWeeklyFeatures(ctx context.Context, level Level) ([]WeeklyAggregate, error)
}

// EvaluationStore holds forecast_evaluation plus its summaries (full replace per level)
type EvaluationStore interface {
	ReplaceEvaluation(ctx context.Context, level Level, records []ForecastRecord, reports []AccuracyReport, selections []ModelSelection) error
	SaveRun(ctx context.Context, run EvaluationRun) error
}
