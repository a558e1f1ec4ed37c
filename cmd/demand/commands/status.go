package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "DB 상태 + 최근 실행 조회",
	Long: `데이터베이스 연결 상태와 가장 최근 파이프라인 실행을 표시합니다.
최근 실행의 config hash가 현재 pipeline YAML과 다르면 경고합니다.

Example:
  go run ./cmd/demand status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return fmt.Errorf("status needs a database (remove --dry-run)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	PrintHeader("Database")
	PrintKeyValue("Healthy", fmt.Sprintf("%v (%s)", health.Healthy, health.ResponseTime.Round(time.Millisecond)), 12)
	PrintKeyValue("Connections", fmt.Sprintf("%d total / %d idle", health.Stats.TotalConns, health.Stats.IdleConns), 12)

	PrintHeader("Redis")
	if !a.redis.Enabled() {
		PrintKeyValue("Cache", "disabled (pass-through)", 12)
	} else if err := a.redis.Ping(ctx); err != nil {
		PrintWarning(err.Error())
	} else {
		PrintKeyValue("Cache", a.redis.Addr(), 12)
	}

	run, err := evaluation.NewRepository(a.db).LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}

	PrintHeader("Latest pipeline run")
	if run == nil {
		PrintWarning("no pipeline run recorded")
		return nil
	}

	state := "success"
	if !run.Success {
		state = "failed: " + run.Error
	}
	PrintKeyValue("Run ID", run.RunID, 12)
	PrintKeyValue("State", state, 12)
	PrintKeyValue("Train end", run.TrainEnd.String(), 12)
	PrintKeyValue("Models", fmt.Sprintf("%v", run.ModelTags), 12)
	PrintKeyValue("Entities", fmt.Sprintf("%d", run.EntityCount), 12)
	PrintKeyValue("Records", fmt.Sprintf("%d", run.RecordCount), 12)
	PrintKeyValue("Finished", run.FinishedAt.Format("2006-01-02 15:04:05"), 12)

	hash, err := pipelineconfig.Hash(a.pipeline)
	if err != nil {
		return err
	}
	if hash != run.ConfigHash {
		fmt.Println()
		PrintWarning("pipeline config changed since the latest run")
	}
	return nil
}
