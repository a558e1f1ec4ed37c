package pipeline

import (
	"context"
	"fmt"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/identity"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
	"github.com/jorge-redcloud/demand-planning/pkg/metrics"
)

// runIngest executes S0: load + quality gate
func (o *Orchestrator) runIngest(ctx context.Context, rc RunConfig, result *RunResult) ([]contracts.RawTransaction, error) {
	txns := rc.Transactions
	if txns == nil {
		if o.stores.Transactions == nil {
			return nil, fmt.Errorf("no transaction source configured")
		}
		loaded, err := o.stores.Transactions.LoadTransactions(ctx, rc.From, rc.To)
		if err != nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		txns = loaded
	}

	accepted, rejected := o.gate.Filter(ctx, txns)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Quality = ingest.Summarize(accepted, rejected)
	metrics.RecordIngest(len(accepted), len(rejected))

	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: %d rows rejected", ErrNoTransactions, len(rejected))
	}
	return accepted, nil
}

// runIdentity executes S1: seed from the store, resolve, append new mappings
func (o *Orchestrator) runIdentity(ctx context.Context, rc RunConfig, txns []contracts.RawTransaction, result *RunResult) ([]contracts.RawTransaction, error) {
	resolver := identity.NewResolver(o.base)

	if o.stores.Identities != nil {
		existing, err := o.stores.Identities.LoadIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("load identities: %w", err)
		}
		if err := resolver.Seed(existing); err != nil {
			return nil, err
		}
	}

	resolver.Build(identity.PairsFromTransactions(txns))
	resolved := resolver.Apply(txns)

	appended := resolver.Appended()
	if !rc.DryRun && o.stores.Identities != nil && len(appended) > 0 {
		if err := o.stores.Identities.AppendIdentities(ctx, appended); err != nil {
			return nil, fmt.Errorf("append identities: %w", err)
		}
	}

	result.MasterCount = resolver.MasterCount()
	result.Fallbacks = resolver.Fallbacks()
	result.Appended = len(appended)
	metrics.IdentityFallbacksTotal.Add(float64(result.Fallbacks))

	return resolved, nil
}

// runFeatures executes S2 for one level
func (o *Orchestrator) runFeatures(ctx context.Context, level contracts.Level, txns []contracts.RawTransaction) ([]contracts.WeeklyAggregate, error) {
	rows, err := o.engine.Build(ctx, level, txns)
	if err != nil {
		return nil, err
	}
	metrics.FeatureRows.WithLabelValues(string(level)).Set(float64(len(rows)))
	return rows, nil
}

// runClassify executes S3 for one level and persists the classified feature rows
func (o *Orchestrator) runClassify(ctx context.Context, rc RunConfig, lr *LevelResult) error {
	classes, err := o.classifier.Classify(ctx, lr.Features)
	if err != nil {
		return err
	}
	lr.Classes = classes
	lr.Features = o.classifier.Stamp(lr.Features, classes)

	counts := make(map[contracts.Pattern]int)
	for _, ec := range classes {
		counts[ec.Pattern]++
	}
	for _, p := range contracts.AllPatterns() {
		metrics.PatternEntities.WithLabelValues(string(lr.Level), string(p)).Set(float64(counts[p]))
	}

	// 피처는 분류 결과(pattern/tier)까지 포함해 저장
	if !rc.DryRun && o.stores.Features != nil {
		if err := o.stores.Features.ReplaceWeeklyFeatures(ctx, lr.Level, lr.Features); err != nil {
			return fmt.Errorf("replace weekly_features(%s): %w", lr.Level, err)
		}
	}
	return nil
}

// runEvaluate executes S4 for one level: every model, selection, then one replace
func (o *Orchestrator) runEvaluate(ctx context.Context, rc RunConfig, lr *LevelResult) error {
	ecfg, err := o.cfg.EvaluationConfig()
	if err != nil {
		return err
	}

	results, err := evaluation.RunAll(ctx, o.predictors, ecfg, lr.Features, o.base)
	lr.Results = results
	if err != nil {
		return err
	}
	lr.Selections = evaluation.SelectBest(results)

	for _, res := range results {
		if rep := res.Report(lr.Level, contracts.ScopeLevel, string(lr.Level)); rep != nil && rep.WMAPE != nil {
			metrics.LevelWMAPE.WithLabelValues(string(lr.Level), res.ModelTag).Set(*rep.WMAPE)
		}
	}

	if rc.DryRun {
		return nil
	}

	if o.stores.Evaluation != nil {
		if err := o.stores.Evaluation.ReplaceEvaluation(ctx, lr.Level, lr.Records(), lr.Reports(), lr.Selections); err != nil {
			return err
		}
	}
	return nil
}
