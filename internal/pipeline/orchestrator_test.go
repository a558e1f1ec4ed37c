package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
)

// memStore implements every store contract in memory
type memStore struct {
	mu         sync.Mutex
	txns       []contracts.RawTransaction
	identities []contracts.CustomerIdentity
	features   map[contracts.Level][]contracts.WeeklyAggregate
	records    map[contracts.Level][]contracts.ForecastRecord
	reports    map[contracts.Level][]contracts.AccuracyReport
	selections map[contracts.Level][]contracts.ModelSelection
	runs       []contracts.EvaluationRun
}

func newMemStore(txns []contracts.RawTransaction) *memStore {
	return &memStore{
		txns:       txns,
		features:   make(map[contracts.Level][]contracts.WeeklyAggregate),
		records:    make(map[contracts.Level][]contracts.ForecastRecord),
		reports:    make(map[contracts.Level][]contracts.AccuracyReport),
		selections: make(map[contracts.Level][]contracts.ModelSelection),
	}
}

func (m *memStore) stores() Stores {
	return Stores{Transactions: m, Identities: m, Features: m, Evaluation: m}
}

func (m *memStore) LoadTransactions(_ context.Context, _, _ time.Time) ([]contracts.RawTransaction, error) {
	return m.txns, nil
}

func (m *memStore) LoadIdentities(context.Context) ([]contracts.CustomerIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contracts.CustomerIdentity(nil), m.identities...), nil
}

func (m *memStore) AppendIdentities(_ context.Context, ids []contracts.CustomerIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = append(m.identities, ids...)
	return nil
}

func (m *memStore) ReplaceWeeklyFeatures(_ context.Context, level contracts.Level, rows []contracts.WeeklyAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[level] = rows
	return nil
}

func (m *memStore) LoadWeeklyFeatures(_ context.Context, level contracts.Level) ([]contracts.WeeklyAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.features[level], nil
}

func (m *memStore) ReplaceEvaluation(_ context.Context, level contracts.Level, records []contracts.ForecastRecord, reports []contracts.AccuracyReport, selections []contracts.ModelSelection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[level] = records
	m.reports[level] = reports
	m.selections[level] = selections
	return nil
}

func (m *memStore) SaveRun(_ context.Context, run contracts.EvaluationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func line(sku, custID, custName string, w int, qty float64) contracts.RawTransaction {
	yw := contracts.YearWeek{Year: 2025, Week: w}
	return contracts.RawTransaction{
		OriginalCustomerID: custID,
		CustomerName:       custName,
		EntityKey:          sku,
		Category:           "Cement",
		InvoiceID:          sku + "-" + yw.String(),
		OrderDate:          yw.Monday().Add(30 * time.Hour),
		Quantity:           qty,
		UnitPrice:          25,
		Region:             contracts.RegionGauteng,
	}
}

// fixture: SKU A sells 10/week for 30 weeks (customer 592), SKU B only 5 weeks
// (customer HB_CUT001, same name) and one negative-quantity line
func fixture() []contracts.RawTransaction {
	var txns []contracts.RawTransaction
	for w := 1; w <= 30; w++ {
		txns = append(txns, line("A", "592", "ACME LTD", w, 10))
	}
	for w := 18; w <= 22; w++ {
		txns = append(txns, line("B", "HB_CUT001", " acme  ltd", w, 3))
	}
	txns = append(txns, line("C", "593", "OTHER", 5, -4))
	return txns
}

func testConfig() *pipelineconfig.Config {
	cfg := pipelineconfig.Default()
	cfg.Features.Levels = []string{"sku", "customer"}
	cfg.Evaluation.TrainEndWeek = "2025-W20"
	cfg.Evaluation.Models = []string{evaluation.ModelNaiveLast, evaluation.ModelMovingAvg4}
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *pipelineconfig.Config, stores Stores) *Orchestrator {
	t.Helper()
	preds, err := Predictors(cfg.Evaluation.Models, nil, "", zerolog.Nop())
	require.NoError(t, err)
	o, err := NewOrchestrator(cfg, stores, preds, zerolog.Nop())
	require.NoError(t, err)
	return o
}

func TestRun_EndToEnd(t *testing.T) {
	store := newMemStore(fixture())
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, store.stores())

	res, err := o.Run(context.Background(), RunConfig{RunID: "run-1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, contracts.YearWeek{Year: 2025, Week: 20}, res.TrainEnd)

	// S0, S1 + (S2, S3, S4) × 2 levels
	require.Len(t, res.Stages, 8)
	for _, s := range res.Stages {
		assert.True(t, s.Success, s.Stage)
	}
	assert.Equal(t, 36, res.Quality.Total)
	assert.Equal(t, 1, res.Quality.Rejected)

	// 592 + HB_CUT001 → master 1 (이름 정규화 후 동일)
	assert.Equal(t, 1, res.MasterCount)
	require.Len(t, store.identities, 1)
	assert.Equal(t, []string{"592", "HB_CUT001"}, store.identities[0].OriginalIDs)

	sku := res.Level(contracts.LevelSKU)
	require.NotNil(t, sku)
	assert.Len(t, sku.Features, 35)
	require.Len(t, store.features[contracts.LevelSKU], 35)
	for _, r := range store.features[contracts.LevelSKU] {
		assert.NotEmpty(t, r.SufficiencyTier, "stored rows carry the tier")
	}

	// B(5주)는 insufficient → 예측 없음
	records := store.records[contracts.LevelSKU]
	assert.Len(t, records, 20, "10 test weeks × 2 models for A only")
	for _, r := range records {
		assert.Equal(t, "A", r.EntityID)
	}
	require.Len(t, store.selections[contracts.LevelSKU], 1)
	assert.Equal(t, 2, store.selections[contracts.LevelSKU][0].Runners)

	customer := res.Level(contracts.LevelCustomer)
	require.NotNil(t, customer)
	require.Len(t, customer.Classes, 1)
	assert.Equal(t, "1", customer.Classes[0].EntityID)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, "run-1", run.RunID)
	assert.True(t, run.Success)
	assert.Equal(t, res.ConfigHash, run.ConfigHash)
	assert.Equal(t, []string{evaluation.ModelNaiveLast, evaluation.ModelMovingAvg4}, run.ModelTags)
	assert.Equal(t, 40, run.RecordCount)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	store := newMemStore(nil)
	o := newTestOrchestrator(t, testConfig(), store.stores())

	res, err := o.Run(context.Background(), RunConfig{Transactions: fixture(), DryRun: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID, "uuid assigned")
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Appended)
	assert.NotEmpty(t, res.Level(contracts.LevelSKU).Records())

	assert.Empty(t, store.identities)
	assert.Empty(t, store.features)
	assert.Empty(t, store.records)
	assert.Empty(t, store.runs)
}

func TestRun_WithoutStores(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), Stores{})

	_, err := o.Run(context.Background(), RunConfig{})
	assert.Error(t, err, "no transactions and no source")

	res, err := o.Run(context.Background(), RunConfig{Transactions: fixture()})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRun_Idempotent(t *testing.T) {
	store := newMemStore(fixture())
	o := newTestOrchestrator(t, testConfig(), store.stores())

	first, err := o.Run(context.Background(), RunConfig{RunID: "a"})
	require.NoError(t, err)
	firstRecords := store.records[contracts.LevelSKU]
	firstFeatures := store.features[contracts.LevelCustomer]

	second, err := o.Run(context.Background(), RunConfig{RunID: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Appended)
	assert.Equal(t, 0, second.Appended, "existing mappings are reused")
	assert.Len(t, store.identities, 1)

	assert.Equal(t, firstRecords, store.records[contracts.LevelSKU])
	assert.Equal(t, firstFeatures, store.features[contracts.LevelCustomer])
	assert.Len(t, store.runs, 2)
}

func TestRun_NoValidTransactions(t *testing.T) {
	store := newMemStore([]contracts.RawTransaction{line("C", "593", "OTHER", 5, -4)})
	o := newTestOrchestrator(t, testConfig(), store.stores())

	res, err := o.Run(context.Background(), RunConfig{})
	require.ErrorIs(t, err, ErrNoTransactions)
	assert.False(t, res.Success)
	require.Len(t, res.Stages, 1)
	assert.False(t, res.Stages[0].Success)
	assert.Equal(t, contracts.StageIngest, res.Stages[0].Stage)

	require.Len(t, store.runs, 1)
	assert.False(t, store.runs[0].Success)
	assert.Contains(t, store.runs[0].Error, "no valid transactions")
}

func TestRun_PredictorDownFailsEvaluation(t *testing.T) {
	store := newMemStore(fixture())
	cfg := testConfig()
	down := evaluation.PredictorFunc{Tag: "remote", Fn: func(context.Context, evaluation.PredictRequest) (float64, error) {
		return 0, contracts.ErrPredictorDown
	}}
	o, err := NewOrchestrator(cfg, store.stores(), []evaluation.Predictor{down}, zerolog.Nop())
	require.NoError(t, err)

	res, err := o.Run(context.Background(), RunConfig{})
	require.ErrorIs(t, err, contracts.ErrPredictorDown)

	last := res.Stages[len(res.Stages)-1]
	assert.Equal(t, contracts.StageEvaluate, last.Stage)
	assert.False(t, last.Success)

	// S2/S3 결과는 이미 저장됨
	assert.Len(t, store.features[contracts.LevelSKU], 35)
	assert.Empty(t, store.records)
	require.Len(t, store.runs, 1)
	assert.False(t, store.runs[0].Success)
}

// cachePurger counts post-run purges
type cachePurger struct {
	calls int
	err   error
}

func (p *cachePurger) Purge(context.Context) error {
	p.calls++
	return p.err
}

func TestRun_OnPersistedPurgesAfterSuccess(t *testing.T) {
	store := newMemStore(fixture())
	o := newTestOrchestrator(t, testConfig(), store.stores())
	purger := &cachePurger{err: errors.New("redis down")}
	o.OnPersisted(purger.Purge)

	_, err := o.Run(context.Background(), RunConfig{})
	require.NoError(t, err, "hook errors do not fail the run")
	assert.Equal(t, 1, purger.calls)
	assert.NotEmpty(t, store.records)

	_, err = o.Run(context.Background(), RunConfig{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, purger.calls, "dry-run writes nothing, so nothing to purge")
}

func TestRun_OnPersistedSkippedOnFailure(t *testing.T) {
	store := newMemStore(fixture())
	down := evaluation.PredictorFunc{Tag: "remote", Fn: func(context.Context, evaluation.PredictRequest) (float64, error) {
		return 0, contracts.ErrPredictorDown
	}}
	o, err := NewOrchestrator(testConfig(), store.stores(), []evaluation.Predictor{down}, zerolog.Nop())
	require.NoError(t, err)
	purger := &cachePurger{}
	o.OnPersisted(purger.Purge)

	_, err = o.Run(context.Background(), RunConfig{})
	require.Error(t, err)
	assert.Zero(t, purger.calls)
}

func TestRun_LevelOverride(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), Stores{})

	res, err := o.Run(context.Background(), RunConfig{
		Transactions: fixture(),
		Levels:       []contracts.Level{contracts.LevelCategory},
		DryRun:       true,
	})
	require.NoError(t, err)
	require.Len(t, res.Levels, 1)
	assert.Equal(t, contracts.LevelCategory, res.Levels[0].Level)
	assert.Len(t, res.Stages, 5)
}

func TestPredictors(t *testing.T) {
	preds, err := Predictors([]string{evaluation.ModelLinearTrend, evaluation.ModelNaiveLast}, nil, "", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, evaluation.ModelLinearTrend, preds[0].Name())

	_, err = Predictors([]string{pipelineconfig.ModelRemote}, nil, "", zerolog.Nop())
	assert.Error(t, err)

	_, err = Predictors([]string{"prophet"}, nil, "", zerolog.Nop())
	assert.Error(t, err)
}

func TestNewOrchestrator_RequiresPredictor(t *testing.T) {
	_, err := NewOrchestrator(testConfig(), Stores{}, nil, zerolog.Nop())
	assert.Error(t, err)
}
