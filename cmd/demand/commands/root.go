package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
	dryRun     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "demand",
	Short: "Demand planning - 주간 수요 예측 평가 파이프라인",
	Long: `Demand Planning Unified CLI

송장 라인 → 고객 identity 통합 → 주간 피처 → 패턴/티어 분류 → walk-forward 평가.

Usage:
  go run ./cmd/demand [command]

Examples:
  go run ./cmd/demand ingest check data/invoices.xlsx
  go run ./cmd/demand run --file data/invoices.xlsx --dry-run
  go run ./cmd/demand evaluate --compare
  go run ./cmd/demand scheduler start
  go run ./cmd/demand api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "pipeline YAML (default: PIPELINE_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "compute everything, write nothing (DATABASE_URL optional)")
}
