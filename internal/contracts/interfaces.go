package contracts

import "context"

// TransactionGate rejects malformed rows before they reach the core (S0)
// ⭐ SSOT: S0 품질 게이트 인터페이스
type TransactionGate interface {
	Filter(ctx context.Context, txns []RawTransaction) ([]RawTransaction, []error)
}

// FeatureBuilder turns resolved transactions into weekly feature rows (S2)
// ⭐ SSOT: S2 피처 생성 인터페이스
type FeatureBuilder interface {
	Build(ctx context.Context, level Level, txns []RawTransaction) ([]WeeklyAggregate, error)
}

// SeriesClassifier stamps pattern and sufficiency tier onto feature rows (S3)
// ⭐ SSOT: S3 분류 인터페이스
type SeriesClassifier interface {
	Annotate(ctx context.Context, rows []WeeklyAggregate) ([]WeeklyAggregate, error)
}
