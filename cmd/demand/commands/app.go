package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/features"
	"github.com/jorge-redcloud/demand-planning/internal/identity"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
	"github.com/jorge-redcloud/demand-planning/internal/pipeline"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
	"github.com/jorge-redcloud/demand-planning/internal/scheduler/jobs"
	"github.com/jorge-redcloud/demand-planning/pkg/config"
	"github.com/jorge-redcloud/demand-planning/pkg/database"
	"github.com/jorge-redcloud/demand-planning/pkg/httputil"
	"github.com/jorge-redcloud/demand-planning/pkg/logger"
	"github.com/jorge-redcloud/demand-planning/pkg/redis"
)

// app bundles the shared dependencies of every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	pipeline *pipelineconfig.Config
	yaml     []byte

	db    *database.DB // nil in dry-run
	redis *redis.Client
	cache *redis.Cache
}

// newApp loads env + pipeline config and opens connections.
// withDB=false never touches Postgres (offline commands).
func newApp(withDB bool) (*app, error) {
	// offline 명령은 항상 dry-run (DATABASE_URL 불필요)
	if dryRun || !withDB {
		os.Setenv("DRY_RUN", "true")
	}
	if rootCmd.PersistentFlags().Changed("env") {
		os.Setenv("ENV", env)
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Pipeline YAML
	path := configFile
	if path == "" {
		path = cfg.PipelineConfigPath
	}
	pcfg, raw, err := pipelineconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}
	for _, w := range pipelineconfig.Warn(pcfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{cfg: cfg, log: log, pipeline: pcfg, yaml: raw}

	// 4. Redis (disabled → pass-through cache)
	a.redis, err = redis.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.cache = redis.NewCache(a.redis, "demand")

	// 5. Database
	if withDB && !cfg.DryRun {
		a.db, err = database.New(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		log.Info("Connected to database")
	}

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// stores returns the persistence collaborators; all nil without a database
func (a *app) stores() pipeline.Stores {
	if a.db == nil {
		return pipeline.Stores{}
	}
	return pipeline.Stores{
		Transactions: ingest.NewRepository(a.db.Pool),
		Identities:   a.identityStore(),
		Features:     features.NewRepository(a.db),
		Evaluation:   evaluation.NewRepository(a.db),
	}
}

func (a *app) identityStore() contracts.IdentityStore {
	repo := identity.NewRepository(a.db.Pool)
	if !a.pipeline.Identity.CacheEnabled {
		return repo
	}
	return identity.NewCachedStore(repo, a.cache, a.log.Zerolog())
}

// predictors builds the configured models; models overrides evaluation.models
func (a *app) predictors(models []string) ([]evaluation.Predictor, error) {
	if len(models) == 0 {
		models = a.pipeline.Evaluation.Models
	}
	var client *httputil.Client
	if a.cfg.Model.EndpointURL != "" {
		client = httputil.New(a.cfg.Model, a.log)
	}
	return pipeline.Predictors(models, client, a.cfg.Model.EndpointURL, a.log.Zerolog())
}

// orchestrator wires the S0 → S4 pipeline
func (a *app) orchestrator(models []string) (*pipeline.Orchestrator, error) {
	preds, err := a.predictors(models)
	if err != nil {
		return nil, err
	}
	orch, err := pipeline.NewOrchestrator(a.pipeline, a.stores(), preds, a.log.Zerolog())
	if err != nil {
		return nil, err
	}
	// 수동 run/evaluate와 스케줄 run 모두 새 결과 저장 후 API 캐시를 비움
	orch.OnPersisted(a.cacheCleanup().Run)
	return orch, nil
}

// cacheCleanupSchedule is the nightly safety purge; runs also purge on success
const cacheCleanupSchedule = "0 0 0 * * *"

// cacheCleanup purges the API read cache (report/records/selection/run keys)
func (a *app) cacheCleanup() *jobs.CacheCleanupJob {
	return jobs.NewCacheCleanupJob(a.cache, cacheCleanupSchedule, a.log)
}

// readTransactions reads an .xlsx or .csv export
func readTransactions(path, sheet string) ([]contracts.RawTransaction, []error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ingest.ReadXLSX(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ingest.ReadCSV(f)
	default:
		return nil, nil, fmt.Errorf("unsupported input %q (want .xlsx or .csv)", path)
	}
}

// parseLevels parses --level values; empty means the configured levels
func parseLevels(values []string) ([]contracts.Level, error) {
	levels := make([]contracts.Level, 0, len(values))
	for _, v := range values {
		l, err := contracts.ParseLevel(v)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}
