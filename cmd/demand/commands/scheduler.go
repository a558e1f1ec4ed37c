package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/scheduler"
	"github.com/jorge-redcloud/demand-planning/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `주간 파이프라인 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start    - 스케줄러 시작
  list     - 등록된 작업 목록
  run-now  - 특정 작업 즉시 실행

Example:
  go run ./cmd/demand scheduler start
  go run ./cmd/demand scheduler list
  go run ./cmd/demand scheduler run-now demand_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- demand_pipeline: schedule.cron (기본 매주 월요일 06:00), 성공 시 평가 캐시 정리
- cache_cleanup: 매일 00:00 (평가 캐시 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run-now [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler registers the pipeline and cache jobs
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	orch, err := a.orchestrator(nil)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewPipelineJob(orch, a.pipeline.Schedule.Cron, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(a.cacheCleanup()); err != nil {
		return nil, err
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demand Planning Scheduler ===")

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.pipeline.Schedule.Enabled {
		return fmt.Errorf("schedule is disabled in the pipeline config (schedule.enabled)")
	}
	if a.db == nil {
		return fmt.Errorf("scheduler needs a database (remove --dry-run)")
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	PrintSuccess("Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-cmd.Context().Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// 다음 실행 시각은 cron 시작 후에만 계산됨
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05 MST")
		}
		fmt.Printf("  - %-16s %-18s next: %s\n", name, st.Schedule, next)
	}
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	res, err := sched.RunJob(cmd.Context(), jobName)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s (%d attempt(s))", jobName, res.Duration.Round(time.Millisecond), res.Attempts))
	return nil
}
