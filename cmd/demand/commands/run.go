package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
	"github.com/jorge-redcloud/demand-planning/internal/pipeline"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "S0 → S4 전체 파이프라인 실행",
	Long: `전체 파이프라인을 실행합니다.

S0 Ingest → S1 Identity → S2 Features → S3 Classify → S4 Evaluate

입력은 --file (xlsx/csv) 또는 ` + ingest.TransactionsTable + ` 테이블입니다.
--dry-run 이면 DB에 아무것도 쓰지 않습니다.

Example:
  go run ./cmd/demand run
  go run ./cmd/demand run --file data/invoices.xlsx --dry-run
  go run ./cmd/demand run --level sku --level customer`,
	RunE: runPipeline,
}

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "S4 walk-forward 모델 비교",
	Long: `지정한 모델로 walk-forward 평가를 실행하고 결과를 비교합니다.

Example:
  go run ./cmd/demand evaluate --model naive_last --model moving_average_4w
  go run ./cmd/demand evaluate --compare --file data/invoices.xlsx --dry-run`,
	RunE: runEvaluate,
}

var (
	runFile     string
	runLevels   []string
	runFrom     string
	runTo       string
	runID       string
	runSnapshot string

	evalModels  []string
	evalCompare bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evaluateCmd)

	for _, c := range []*cobra.Command{runCmd, evaluateCmd} {
		c.Flags().StringVar(&runFile, "file", "", "xlsx/csv input instead of "+ingest.TransactionsTable)
		c.Flags().StringSliceVar(&runLevels, "level", nil, "levels (sku,category,customer)")
		c.Flags().StringVar(&runFrom, "from", "", "first order date (YYYY-MM-DD)")
		c.Flags().StringVar(&runTo, "to", "", "last order date (YYYY-MM-DD)")
	}
	runCmd.Flags().StringVar(&runID, "run-id", "", "run ID (default: new uuid)")
	runCmd.Flags().StringVar(&runSnapshot, "snapshot", "", "write config snapshot JSON to this path")

	evaluateCmd.Flags().StringSliceVar(&evalModels, "model", nil, "models (default: evaluation.models)")
	evaluateCmd.Flags().BoolVar(&evalCompare, "compare", false, "evaluate every baseline model")
}

// buildRunConfig maps flags to a RunConfig
func buildRunConfig(a *app) (pipeline.RunConfig, error) {
	rc := pipeline.RunConfig{RunID: runID, DryRun: a.cfg.DryRun}

	levels, err := parseLevels(runLevels)
	if err != nil {
		return rc, err
	}
	rc.Levels = levels

	if runFrom != "" {
		if rc.From, err = time.Parse("2006-01-02", runFrom); err != nil {
			return rc, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if runTo != "" {
		if rc.To, err = time.Parse("2006-01-02", runTo); err != nil {
			return rc, fmt.Errorf("invalid --to: %w", err)
		}
	}

	if runFile != "" {
		sheet := a.pipeline.Ingest.Sheet
		txns, parseErrs, err := readTransactions(runFile, sheet)
		if err != nil {
			return rc, err
		}
		if len(parseErrs) > 0 {
			a.log.WithField("rows", len(parseErrs)).Warn("Unparseable rows skipped")
		}
		rc.Transactions = txns
	}

	return rc, nil
}

func execute(cmd *cobra.Command, models []string) (*pipeline.RunResult, error) {
	a, err := newApp(true)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	rc, err := buildRunConfig(a)
	if err != nil {
		return nil, err
	}
	if runFile == "" && a.db == nil {
		return nil, fmt.Errorf("--file is required without a database")
	}

	orch, err := a.orchestrator(models)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	if runSnapshot != "" {
		if err := writeSnapshot(a, runSnapshot); err != nil {
			return nil, err
		}
	}

	res, err := orch.Run(cmd.Context(), rc)
	if res != nil {
		printRun(res)
	}
	return res, err
}

func runPipeline(cmd *cobra.Command, args []string) error {
	res, err := execute(cmd, nil)
	if err != nil {
		return err
	}

	for _, lr := range res.Levels {
		if len(lr.Results) > 0 {
			printLevelReport(lr.Level, lr.Results[0])
		}
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	models := evalModels
	if evalCompare {
		models = evaluation.BaselineTags()
	}

	res, err := execute(cmd, models)
	if err != nil {
		return err
	}

	for _, lr := range res.Levels {
		printComparison(lr)
	}
	return nil
}

func printRun(res *pipeline.RunResult) {
	PrintHeader(fmt.Sprintf("Pipeline run %s", res.RunID))
	PrintKeyValue("Train end", res.TrainEnd.String(), 12)
	PrintKeyValue("Config", res.ConfigHash[:12], 12)
	PrintKeyValue("Duration", res.Duration.Round(time.Millisecond).String(), 12)
	PrintKeyValue("Dry run", fmt.Sprintf("%v", res.DryRun), 12)
	PrintSeparator()

	widths := []int{4, 10, 8, 8, 10}
	PrintTableHeader([]string{"", "Stage", "In", "Out", "Duration"}, widths)
	for _, sr := range res.Stages {
		mark := "✅"
		if !sr.Success {
			mark = "❌"
		}
		name := sr.Stage.ShortName()
		if level, ok := sr.Metadata["level"].(string); ok {
			name += " " + level
		}
		PrintTableRow([]string{
			mark,
			name,
			fmt.Sprintf("%d", sr.InputCount),
			fmt.Sprintf("%d", sr.OutputCount),
			fmt.Sprintf("%dms", sr.Duration),
		}, widths)
	}

	if res.Error != nil {
		fmt.Println()
		PrintError(res.Error.Error())
	}
}

func printLevelReport(level contracts.Level, r *evaluation.Result) {
	PrintHeader(fmt.Sprintf("%s · %s", level, r.ModelTag))
	if rep := r.Report(level, contracts.ScopeLevel, string(level)); rep != nil {
		PrintKeyValue("Entities", fmt.Sprintf("%d (no forecast %d)", r.Entities, r.NoForecast), 12)
		PrintKeyValue("Samples", fmt.Sprintf("%d (missing %d)", rep.SampleCount, rep.MissingCount), 12)
		PrintKeyValue("MAE", num(rep.MAE), 12)
		PrintKeyValue("RMSE", num(rep.RMSE), 12)
		PrintKeyValue("Median MAPE", pct(rep.MedianMAPE), 12)
		PrintKeyValue("WMAPE", pct(rep.WMAPE), 12)
		PrintKeyValue("Confidence", string(rep.Confidence), 12)
	}

	dist := make(map[contracts.Confidence]int)
	for _, rep := range r.Reports {
		if rep.Scope == contracts.ScopeEntity {
			dist[rep.Confidence]++
		}
	}
	fmt.Println()
	PrintCounts("Entity confidence", dist)
}

func printComparison(lr *pipeline.LevelResult) {
	PrintHeader(fmt.Sprintf("Model comparison · %s", lr.Level))

	widths := []int{20, 10, 10, 12, 10, 6}
	PrintTableHeader([]string{"Model", "MAE", "RMSE", "Median MAPE", "WMAPE", "Wins"}, widths)

	wins := evaluation.Wins(lr.Selections)
	for _, r := range lr.Results {
		rep := r.Report(lr.Level, contracts.ScopeLevel, string(lr.Level))
		if rep == nil {
			continue
		}
		PrintTableRow([]string{
			r.ModelTag,
			num(rep.MAE),
			num(rep.RMSE),
			pct(rep.MedianMAPE),
			pct(rep.WMAPE),
			fmt.Sprintf("%d", wins[r.ModelTag]),
		}, widths)
	}
}

func writeSnapshot(a *app, path string) error {
	snap, err := pipelineconfig.NewRunSnapshot(a.pipeline, a.yaml)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	a.log.WithField("path", path).Info("Config snapshot written")
	return nil
}
