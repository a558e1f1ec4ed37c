package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// DisclaimerNoTrainHistory marks entities first seen after train_end_week
const DisclaimerNoTrainHistory = "no forecast available: no history before the train boundary"

// ErrNotClassified is returned for rows without a sufficiency tier
var ErrNotClassified = errors.New("feature rows are not classified")

// Config controls one walk-forward evaluation
type Config struct {
	// TrainEnd is the last train week, identical for every entity
	TrainEnd contracts.YearWeek

	// StrictHorizon nulls lag/rolling inputs that fall after TrainEnd
	StrictHorizon bool

	// Parallelism bounds the per-entity workers (0 = 8)
	Parallelism int

	Confidence ConfidenceThresholds
}

// DefaultConfig returns strict walk-forward settings for trainEnd
func DefaultConfig(trainEnd contracts.YearWeek) Config {
	return Config{
		TrainEnd:      trainEnd,
		StrictHorizon: true,
		Parallelism:   8,
		Confidence:    DefaultConfidenceThresholds(),
	}
}

// Result is the output of one model's evaluation
type Result struct {
	ModelTag      string
	TrainEnd      contracts.YearWeek
	Records       []contracts.ForecastRecord // test window, sorted level/entity/week
	Reports       []contracts.AccuracyReport // ENTITY rows, then LEVEL rows, then ALL
	Entities      int                        // entities with at least one prediction request
	NoForecast    int                        // excluded entities (insufficient tier or no train history)
	Requested     int
	Unavailable   int
	LeakageNulled int
	State         State
}

// Report returns the report with the given scope and key, or nil
func (r *Result) Report(level contracts.Level, scope, key string) *contracts.AccuracyReport {
	for i := range r.Reports {
		rep := &r.Reports[i]
		if rep.Scope == scope && rep.Key == key && (scope == contracts.ScopeAll || rep.Level == level) {
			return rep
		}
	}
	return nil
}

// ConfidenceDistribution counts entity reports per confidence label
func (r *Result) ConfidenceDistribution(level contracts.Level) map[contracts.Confidence]int {
	out := make(map[contracts.Confidence]int)
	for _, rep := range r.Reports {
		if rep.Scope == contracts.ScopeEntity && rep.Level == level {
			out[rep.Confidence]++
		}
	}
	return out
}

// Evaluator runs the walk-forward backtest of one predictor
// ⭐ SSOT: S4 train/test 분할 + 예측 + 지표 계산
type Evaluator struct {
	predictor Predictor
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	machine *Machine
}

// NewEvaluator creates an evaluator for predictor
func NewEvaluator(predictor Predictor, cfg Config, log zerolog.Logger) *Evaluator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if cfg.Confidence == (ConfidenceThresholds{}) {
		cfg.Confidence = DefaultConfidenceThresholds()
	}
	return &Evaluator{
		predictor: predictor,
		cfg:       cfg,
		log:       log.With().Str("component", "evaluation.evaluator").Str("model", predictor.Name()).Logger(),
		now:       time.Now,
		machine:   NewMachine(),
	}
}

// State returns the state of the current (or last) run
func (e *Evaluator) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.machine.State()
}

// entitySeries is one entity's rows sorted by week
type entitySeries struct {
	level   contracts.Level
	id      string
	pattern contracts.Pattern
	tier    contracts.SufficiencyTier
	rows    []contracts.WeeklyAggregate
}

// entityOutcome is the evaluated part of one entity
type entityOutcome struct {
	records    []contracts.ForecastRecord
	report     contracts.AccuracyReport
	requested  bool
	noForecast bool
}

// Run evaluates every entity in rows. Each call starts a fresh lifecycle.
func (e *Evaluator) Run(ctx context.Context, rows []contracts.WeeklyAggregate) (*Result, error) {
	m := NewMachine()
	e.mu.Lock()
	e.machine = m
	e.mu.Unlock()

	fail := func(err error) (*Result, error) {
		m.Fail()
		e.log.Error().Err(err).Str("state", string(m.State())).Msg("evaluation failed")
		return nil, err
	}

	if e.cfg.TrainEnd.IsZero() {
		return fail(fmt.Errorf("train_end_week is not set"))
	}

	series, err := groupSeries(rows)
	if err != nil {
		return fail(err)
	}
	if err := m.Transition(StateTrainReady); err != nil {
		return fail(err)
	}

	if err := m.Transition(StatePredicting); err != nil {
		return fail(err)
	}

	var requested, unavailable, nulled atomic.Int64
	outcomes := make([]entityOutcome, len(series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i, s := range series {
		g.Go(func() error {
			out, err := e.evaluateEntity(gctx, s, &requested, &unavailable, &nulled)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(fmt.Errorf("evaluate %s: %w", e.predictor.Name(), err))
	}

	// 전체 행 예측 불가는 해당 모델의 "예측 없음"일 뿐, 장애는 predictor가 ErrPredictorDown으로 알린다
	if requested.Load() > 0 && unavailable.Load() == requested.Load() {
		e.log.Warn().
			Int64("rows", requested.Load()).
			Msg("no row could be predicted")
	}

	if err := m.Transition(StateEvaluated); err != nil {
		return fail(err)
	}

	result := e.assemble(outcomes)
	result.Requested = int(requested.Load())
	result.Unavailable = int(unavailable.Load())
	result.LeakageNulled = int(nulled.Load())

	if err := m.Transition(StateDone); err != nil {
		return fail(err)
	}
	result.State = m.State()

	e.log.Info().
		Str("train_end", e.cfg.TrainEnd.String()).
		Int("entities", result.Entities).
		Int("no_forecast", result.NoForecast).
		Int("records", len(result.Records)).
		Int("unavailable", result.Unavailable).
		Int("leakage_nulled", result.LeakageNulled).
		Msg("walk-forward evaluation completed")

	return result, nil
}

func groupSeries(rows []contracts.WeeklyAggregate) ([]entitySeries, error) {
	type key struct {
		level contracts.Level
		id    string
	}
	groups := make(map[key]*entitySeries)
	var order []key

	for _, r := range rows {
		if r.SufficiencyTier == "" {
			return nil, fmt.Errorf("%s %s: %w", r.EntityID, r.YearWeek, ErrNotClassified)
		}
		k := key{r.Level, r.EntityID}
		s, ok := groups[k]
		if !ok {
			s = &entitySeries{level: r.Level, id: r.EntityID, pattern: r.Pattern, tier: r.SufficiencyTier}
			groups[k] = s
			order = append(order, k)
		}
		s.rows = append(s.rows, r)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].level != order[j].level {
			return order[i].level < order[j].level
		}
		return order[i].id < order[j].id
	})

	out := make([]entitySeries, len(order))
	for i, k := range order {
		s := groups[k]
		sort.Slice(s.rows, func(a, b int) bool { return s.rows[a].YearWeek.Less(s.rows[b].YearWeek) })
		out[i] = *s
	}
	return out, nil
}

func (e *Evaluator) evaluateEntity(ctx context.Context, s entitySeries, requested, unavailable, nulled *atomic.Int64) (entityOutcome, error) {
	var history []Observation
	var test []contracts.WeeklyAggregate
	for _, r := range s.rows {
		if r.YearWeek.After(e.cfg.TrainEnd) {
			test = append(test, r)
			continue
		}
		history = append(history, Observation{YearWeek: r.YearWeek, Quantity: r.Quantity})
	}

	out := entityOutcome{
		report: contracts.AccuracyReport{
			ModelTag:    e.predictor.Name(),
			Level:       s.level,
			Scope:       contracts.ScopeEntity,
			Key:         s.id,
			EntityCount: 1,
			Pattern:     s.pattern,
			Tier:        s.tier,
			UpdatedAt:   e.now(),
		},
	}

	if !s.tier.Forecastable() {
		out.noForecast = true
		out.report.Confidence, out.report.Disclaimer = Confidence(s.tier, s.pattern, nil, e.cfg.Confidence)
		return out, nil
	}
	if len(history) == 0 {
		e.log.Debug().Str("entity_id", s.id).Err(contracts.ErrInsufficientHistory).Msg("entity skipped")
		out.noForecast = true
		out.report.Confidence = contracts.ConfidenceNone
		out.report.Disclaimer = DisclaimerNoTrainHistory
		return out, nil
	}

	out.records = make([]contracts.ForecastRecord, 0, len(test))
	for _, row := range test {
		features, n := CheckLeakage(FeaturesOf(row), e.cfg.TrainEnd, e.cfg.StrictHorizon)
		nulled.Add(int64(n))

		req := PredictRequest{
			Level:    s.level,
			EntityID: s.id,
			Target:   row.YearWeek,
			Features: features,
			History:  history,
			Pattern:  s.pattern,
			Tier:     s.tier,
		}

		rec := contracts.ForecastRecord{
			Level:    s.level,
			EntityID: s.id,
			YearWeek: row.YearWeek,
			Actual:   row.Quantity,
			ModelTag: e.predictor.Name(),
		}

		requested.Add(1)
		out.requested = true
		pred, err := e.predictor.Predict(ctx, req)
		switch {
		case err == nil && finite(pred):
			rec.Predicted = contracts.Float(pred)
		case err == nil, errors.Is(err, contracts.ErrPredictionUnavailable):
			unavailable.Add(1)
		default:
			return out, err
		}

		ScoreRecord(&rec)
		out.records = append(out.records, rec)
	}

	acc := Measure(out.records)
	applyAccuracy(&out.report, acc)
	out.report.Confidence, out.report.Disclaimer = Confidence(s.tier, s.pattern, acc.Error(), e.cfg.Confidence)

	for i := range out.records {
		out.records[i].ConfidenceLevel = out.report.Confidence
	}

	return out, nil
}

func (e *Evaluator) assemble(outcomes []entityOutcome) *Result {
	result := &Result{
		ModelTag: e.predictor.Name(),
		TrainEnd: e.cfg.TrainEnd,
	}

	byLevel := make(map[contracts.Level][]contracts.ForecastRecord)
	entitiesByLevel := make(map[contracts.Level]int)
	var levels []contracts.Level

	for _, out := range outcomes {
		result.Reports = append(result.Reports, out.report)
		lvl := out.report.Level
		if _, seen := entitiesByLevel[lvl]; !seen {
			levels = append(levels, lvl)
			entitiesByLevel[lvl] = 0
		}
		if out.noForecast {
			result.NoForecast++
			continue
		}
		if out.requested {
			result.Entities++
			entitiesByLevel[lvl]++
		}
		result.Records = append(result.Records, out.records...)
		byLevel[lvl] = append(byLevel[lvl], out.records...)
	}

	for _, lvl := range levels {
		result.Reports = append(result.Reports, e.aggregateReport(lvl, contracts.ScopeLevel, string(lvl), byLevel[lvl], entitiesByLevel[lvl]))
	}
	if len(levels) > 1 {
		result.Reports = append(result.Reports, e.aggregateReport("", contracts.ScopeAll, contracts.ScopeAll, result.Records, result.Entities))
	}

	return result
}

func (e *Evaluator) aggregateReport(level contracts.Level, scope, key string, records []contracts.ForecastRecord, entities int) contracts.AccuracyReport {
	rep := contracts.AccuracyReport{
		ModelTag:    e.predictor.Name(),
		Level:       level,
		Scope:       scope,
		Key:         key,
		EntityCount: entities,
		UpdatedAt:   e.now(),
	}
	acc := Measure(records)
	applyAccuracy(&rep, acc)
	rep.Confidence, rep.Disclaimer = Confidence(contracts.TierFull, "", acc.Error(), e.cfg.Confidence)
	return rep
}

func applyAccuracy(rep *contracts.AccuracyReport, acc Accuracy) {
	rep.SampleCount = acc.SampleCount
	rep.MissingCount = acc.MissingCount
	rep.MAE = acc.MAE
	rep.RMSE = acc.RMSE
	rep.MedianMAPE = acc.MedianMAPE
	rep.WMAPE = acc.WMAPE
}

// RunAll evaluates each predictor in turn with the same config.
// A failing model does not discard the others; its error is joined into the returned error.
func RunAll(ctx context.Context, predictors []Predictor, cfg Config, rows []contracts.WeeklyAggregate, log zerolog.Logger) ([]*Result, error) {
	results := make([]*Result, 0, len(predictors))
	var errs []error
	for _, p := range predictors {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := NewEvaluator(p, cfg, log).Run(ctx, rows)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
