package jobs

import (
	"context"

	"github.com/jorge-redcloud/demand-planning/pkg/logger"
	"github.com/jorge-redcloud/demand-planning/pkg/redis"
)

// evaluationCachePatterns are the API cache keys derived from evaluation tables
var evaluationCachePatterns = []string{"report:*", "records:*", "selection:*", "run:*"}

// CachePurger deletes cached keys by pattern
type CachePurger interface {
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

var _ CachePurger = (*redis.Cache)(nil)

// CacheCleanupJob drops cached API responses once new evaluation output exists
type CacheCleanupJob struct {
	cache    CachePurger
	schedule string
	logger   *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(cache CachePurger, schedule string, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule
func (j *CacheCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting cache cleanup")

	removed := 0
	for _, pattern := range evaluationCachePatterns {
		n, err := j.cache.DeletePattern(ctx, pattern)
		if err != nil {
			return err
		}
		removed += n
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Cache cleanup completed")
	}

	return nil
}
