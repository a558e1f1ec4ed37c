package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression
	// Six fields with seconds, e.g. "0 0 6 * * MON" (Monday 06:00)
	//           "@weekly", "@daily"
	Schedule() string
}

// historyLimit is the number of results kept per job
const historyLimit = 100

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"` // 이전 실행이 아직 진행 중
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores job execution history (skipped triggers are not recorded)
type JobHistory struct {
	Results []JobResult
}

// AddResult adds a job result to history
func (h *JobHistory) AddResult(result JobResult) {
	if result.Skipped {
		return
	}
	h.Results = append(h.Results, result)

	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n == 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results))
}

// lastWhere returns the start time of the newest result matching ok
func (h *JobHistory) lastWhere(ok func(JobResult) bool) *time.Time {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if ok(h.Results[i]) {
			t := h.Results[i].StartTime
			return &t
		}
	}
	return nil
}

// Stats summarizes the history of one job
func (h *JobHistory) Stats(jobName, schedule string) JobStats {
	failures := len(h.GetFailedResults())
	return JobStats{
		JobName:      jobName,
		Schedule:     schedule,
		TotalRuns:    len(h.Results),
		SuccessCount: len(h.Results) - failures,
		FailureCount: failures,
		SuccessRate:  h.GetSuccessRate(),
		LastRun:      h.lastWhere(func(JobResult) bool { return true }),
		LastSuccess:  h.lastWhere(func(r JobResult) bool { return r.Success }),
		LastFailure:  h.lastWhere(func(r JobResult) bool { return !r.Success }),
	}
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}
