package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/features"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
	"github.com/jorge-redcloud/demand-planning/internal/pattern"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
	"github.com/jorge-redcloud/demand-planning/pkg/metrics"
)

// ErrNoTransactions is returned when the quality gate leaves nothing to aggregate
var ErrNoTransactions = errors.New("no valid transactions")

// Stores are the persistence collaborators. Nil stores are skipped (dry-run).
type Stores struct {
	Transactions contracts.TransactionSource
	Identities   contracts.IdentityStore
	Features     contracts.WeeklyFeatureStore
	Evaluation   contracts.EvaluationStore
}

// Orchestrator coordinates the S0 → S4 pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	cfg        *pipelineconfig.Config
	configHash string
	stores     Stores
	predictors []evaluation.Predictor
	persisted  []func(ctx context.Context) error

	gate       *ingest.Gate
	engine     *features.Engine
	classifier *pattern.Classifier

	base zerolog.Logger
	log  zerolog.Logger
	now  func() time.Time
}

// RunConfig holds the inputs of one pipeline run
type RunConfig struct {
	RunID string // empty = new uuid

	// Transactions, if set, are used instead of Stores.Transactions
	Transactions []contracts.RawTransaction
	From, To     time.Time

	// Levels overrides features.levels
	Levels []contracts.Level

	// DryRun computes every stage but writes nothing
	DryRun bool
}

// LevelResult holds the outputs of one aggregation level
type LevelResult struct {
	Level      contracts.Level
	Features   []contracts.WeeklyAggregate // classified
	Classes    []pattern.EntityClass
	Results    []*evaluation.Result // one per model, in config order
	Selections []contracts.ModelSelection
}

// Records returns every model's forecast records
func (l *LevelResult) Records() []contracts.ForecastRecord {
	var out []contracts.ForecastRecord
	for _, r := range l.Results {
		out = append(out, r.Records...)
	}
	return out
}

// Reports returns every model's accuracy reports
func (l *LevelResult) Reports() []contracts.AccuracyReport {
	var out []contracts.AccuracyReport
	for _, r := range l.Results {
		out = append(out, r.Reports...)
	}
	return out
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID      string
	ConfigHash string
	TrainEnd   contracts.YearWeek
	DryRun     bool
	Success    bool
	Error      error

	Stages  []contracts.StageResult
	Quality ingest.QualityReport

	MasterCount int
	Fallbacks   int64
	Appended    int

	Levels []*LevelResult

	StartedAt time.Time
	Duration  time.Duration
}

// Level returns the result of one level, or nil
func (r *RunResult) Level(level contracts.Level) *LevelResult {
	for _, l := range r.Levels {
		if l.Level == level {
			return l
		}
	}
	return nil
}

// NewOrchestrator wires the stage components from cfg
func NewOrchestrator(cfg *pipelineconfig.Config, stores Stores, predictors []evaluation.Predictor, log zerolog.Logger) (*Orchestrator, error) {
	if len(predictors) == 0 {
		return nil, fmt.Errorf("at least one predictor is required")
	}
	hash, err := pipelineconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash pipeline config: %w", err)
	}

	return &Orchestrator{
		cfg:        cfg,
		configHash: hash,
		stores:     stores,
		predictors: predictors,
		gate:       ingest.NewGate(log),
		engine:     features.NewEngine(cfg.FeatureConfig(), log),
		classifier: pattern.NewClassifier(cfg.Thresholds(), cfg.Features.Parallelism, log),
		base:       log,
		log:        log.With().Str("component", "pipeline.orchestrator").Logger(),
		now:        time.Now,
	}, nil
}

// OnPersisted registers a hook run after every successful non-dry run,
// once the evaluation tables hold the new output. Hook errors are logged only.
func (o *Orchestrator) OnPersisted(hook func(ctx context.Context) error) {
	o.persisted = append(o.persisted, hook)
}

// Run executes the complete pipeline
// S0 → S1 → S2 → S3 → S4
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}

	result := &RunResult{
		RunID:      rc.RunID,
		ConfigHash: o.configHash,
		DryRun:     rc.DryRun,
		StartedAt:  o.now(),
	}
	log := o.log.With().Str("run_id", rc.RunID).Logger()

	err := o.run(ctx, rc, result, log)
	result.Duration = o.now().Sub(result.StartedAt)
	result.Success = err == nil
	result.Error = err

	if saveErr := o.saveRun(ctx, rc, result); saveErr != nil {
		log.Error().Err(saveErr).Msg("failed to save run record")
		if err == nil {
			err = saveErr
			result.Success = false
			result.Error = err
		}
	}

	if err != nil {
		metrics.RecordRun("failure")
		log.Error().Err(err).Int("stages", len(result.Stages)).Msg("pipeline run failed")
		return result, err
	}

	metrics.RecordRun("success")
	if !rc.DryRun {
		for _, hook := range o.persisted {
			if hookErr := hook(ctx); hookErr != nil {
				// 후처리 실패는 run 결과를 바꾸지 않음
				log.Warn().Err(hookErr).Msg("post-run hook failed")
			}
		}
	}
	log.Info().
		Dur("duration", result.Duration).
		Int("stages", len(result.Stages)).
		Int("levels", len(result.Levels)).
		Bool("dry_run", rc.DryRun).
		Msg("pipeline run completed")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, rc RunConfig, result *RunResult, log zerolog.Logger) error {
	trainEnd, err := o.cfg.TrainEnd()
	if err != nil {
		return err
	}
	result.TrainEnd = trainEnd

	levels := rc.Levels
	if len(levels) == 0 {
		if levels, err = o.cfg.Levels(); err != nil {
			return err
		}
	}

	log.Info().
		Str("train_end", trainEnd.String()).
		Str("config_hash", o.configHash).
		Int("levels", len(levels)).
		Int("models", len(o.predictors)).
		Bool("dry_run", rc.DryRun).
		Msg("starting pipeline run")

	// S0: Ingest
	var accepted []contracts.RawTransaction
	err = o.stage(result, contracts.StageIngest, func(sr *contracts.StageResult) error {
		var serr error
		accepted, serr = o.runIngest(ctx, rc, result)
		sr.InputCount = result.Quality.Total
		sr.OutputCount = len(accepted)
		return serr
	})
	if err != nil {
		return err
	}

	// S1: Identity
	var resolved []contracts.RawTransaction
	err = o.stage(result, contracts.StageIdentity, func(sr *contracts.StageResult) error {
		var serr error
		resolved, serr = o.runIdentity(ctx, rc, accepted, result)
		sr.InputCount = len(accepted)
		sr.OutputCount = result.MasterCount
		return serr
	})
	if err != nil {
		return err
	}

	for _, level := range levels {
		lr := &LevelResult{Level: level}
		result.Levels = append(result.Levels, lr)

		// S2: Features
		err = o.stage(result, contracts.StageFeatures, func(sr *contracts.StageResult) error {
			sr.Metadata = map[string]interface{}{"level": string(level)}
			sr.InputCount = len(resolved)
			rows, err := o.runFeatures(ctx, level, resolved)
			sr.OutputCount = len(rows)
			lr.Features = rows
			return err
		})
		if err != nil {
			return err
		}

		// S3: Classify
		err = o.stage(result, contracts.StageClassify, func(sr *contracts.StageResult) error {
			sr.Metadata = map[string]interface{}{"level": string(level)}
			sr.InputCount = len(lr.Features)
			err := o.runClassify(ctx, rc, lr)
			sr.OutputCount = len(lr.Classes)
			return err
		})
		if err != nil {
			return err
		}

		// S4: Evaluate
		err = o.stage(result, contracts.StageEvaluate, func(sr *contracts.StageResult) error {
			sr.Metadata = map[string]interface{}{"level": string(level)}
			sr.InputCount = len(lr.Classes)
			err := o.runEvaluate(ctx, rc, lr)
			sr.OutputCount = len(lr.Records())
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// stage times fn, records metrics and appends the StageResult
func (o *Orchestrator) stage(result *RunResult, stage contracts.Stage, fn func(sr *contracts.StageResult) error) error {
	start := time.Now()
	sr := contracts.StageResult{Stage: stage}

	err := fn(&sr)
	elapsed := time.Since(start)
	sr.Duration = elapsed.Milliseconds()
	sr.Success = err == nil

	status := "success"
	if err != nil {
		status = "failure"
		sr.Error = err.Error()
	}
	metrics.RecordStage(stage.String(), status, elapsed.Seconds())
	result.Stages = append(result.Stages, sr)

	if err != nil {
		return fmt.Errorf("%s failed: %w", stage.ShortName(), err)
	}
	return nil
}

// saveRun writes the evaluation_runs audit row (skipped in dry-run)
func (o *Orchestrator) saveRun(ctx context.Context, rc RunConfig, result *RunResult) error {
	if rc.DryRun || o.stores.Evaluation == nil {
		return nil
	}

	run := contracts.EvaluationRun{
		RunID:      result.RunID,
		ConfigHash: result.ConfigHash,
		TrainEnd:   result.TrainEnd,
		ModelTags:  o.modelTags(),
		Success:    result.Success,
		StartedAt:  result.StartedAt,
		FinishedAt: result.StartedAt.Add(result.Duration),
	}
	if result.Error != nil {
		run.Error = result.Error.Error()
	}
	for _, lr := range result.Levels {
		run.RecordCount += len(lr.Records())
		if len(lr.Results) > 0 {
			run.EntityCount += lr.Results[0].Entities
		}
	}

	// 실패한 run도 기록해야 하므로 취소된 ctx와 분리
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return o.stores.Evaluation.SaveRun(saveCtx, run)
}

func (o *Orchestrator) modelTags() []string {
	tags := make([]string, len(o.predictors))
	for i, p := range o.predictors {
		tags[i] = p.Name()
	}
	return tags
}
