package jobs

import (
	"context"
	"fmt"

	"github.com/jorge-redcloud/demand-planning/internal/pipeline"
	"github.com/jorge-redcloud/demand-planning/pkg/logger"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, rc pipeline.RunConfig) (*pipeline.RunResult, error)
}

// PipelineJob runs the full S0 → S4 pipeline over every stored transaction
// ⭐ SSOT: 주간 재계산 스케줄은 이 Job에서만
type PipelineJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner Runner, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "demand_pipeline"
}

// Schedule returns the cron schedule (pipeline.yaml schedule.cron)
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline
func (j *PipelineJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled demand pipeline")

	res, err := j.runner.Run(ctx, pipeline.RunConfig{})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	records := 0
	for _, lr := range res.Levels {
		records += len(lr.Records())
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   res.RunID,
		"levels":   len(res.Levels),
		"records":  records,
		"rejected": res.Quality.Rejected,
		"duration": res.Duration,
	}).Info("Demand pipeline completed successfully")

	return nil
}
