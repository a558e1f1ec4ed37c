package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/ingest"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "S0 송장 라인 적재/검증",
	Long: `엑셀/CSV 송장 export를 읽어 품질 게이트를 적용합니다.

Subcommands:
  check  - 파일 검증 + DQ 리포트 (DB 미사용)
  load   - 검증 통과 라인을 ` + ingest.TransactionsTable + ` 테이블에 적재

Example:
  go run ./cmd/demand ingest check data/invoices.xlsx
  go run ./cmd/demand ingest load data/invoices.csv`,
}

var (
	ingestCheckCmd = &cobra.Command{
		Use:   "check [file]",
		Short: "파일 검증 + DQ 리포트",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngestCheck,
	}

	ingestLoadCmd = &cobra.Command{
		Use:   "load [file]",
		Short: ingest.TransactionsTable + " 적재",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngestLoad,
	}

	ingestSheet string
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestCheckCmd)
	ingestCmd.AddCommand(ingestLoadCmd)

	ingestCmd.PersistentFlags().StringVar(&ingestSheet, "sheet", "", "xlsx sheet (default: ingest.sheet)")
}

// gateFile reads path and applies the quality gate
func gateFile(ctx context.Context, a *app, path string) ([]contracts.RawTransaction, ingest.QualityReport, error) {
	sheet := ingestSheet
	if sheet == "" {
		sheet = a.pipeline.Ingest.Sheet
	}

	txns, parseErrs, err := readTransactions(path, sheet)
	if err != nil {
		return nil, ingest.QualityReport{}, err
	}

	accepted, rejected := ingest.NewGate(a.log.Zerolog()).Filter(ctx, txns)
	rejected = append(parseErrs, rejected...)
	return accepted, ingest.Summarize(accepted, rejected), nil
}

func printQuality(q ingest.QualityReport) {
	PrintHeader("S0 Data Quality")
	PrintKeyValue("Total", fmt.Sprintf("%d", q.Total), 16)
	PrintKeyValue("Accepted", fmt.Sprintf("%d", q.Accepted), 16)
	PrintKeyValue("Rejected", fmt.Sprintf("%d", q.Rejected), 16)
	PrintKeyValue("Avg DQ score", fmt.Sprintf("%.1f", q.AvgScore), 16)
	PrintKeyValue("No customer ID", fmt.Sprintf("%d", q.MissingCustomer), 16)
	fmt.Println()
	PrintCounts("By tier", q.ByTier)
	if len(q.RejectReasons) > 0 {
		PrintCounts("Reject reasons", q.RejectReasons)
	}
	PrintSeparator()
}

func runIngestCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	_, q, err := gateFile(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	printQuality(q)

	if q.Accepted == 0 {
		PrintError("no valid transactions")
		return fmt.Errorf("no valid transactions in %s", args[0])
	}
	return nil
}

func runIngestLoad(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	accepted, q, err := gateFile(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	printQuality(q)

	if a.db == nil {
		PrintWarning("dry-run: nothing written")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	n, err := ingest.NewRepository(a.db.Pool).AppendTransactions(ctx, accepted)
	if err != nil {
		return fmt.Errorf("append transactions: %w", err)
	}
	PrintSuccess(fmt.Sprintf("%d invoice lines loaded", n))
	return nil
}
