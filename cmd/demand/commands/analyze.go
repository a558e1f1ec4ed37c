package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/internal/features"
	"github.com/jorge-redcloud/demand-planning/internal/identity"
	"github.com/jorge-redcloud/demand-planning/internal/pattern"
)

// Offline stage commands: S1/S2/S3 on an export file, nothing is written.

var (
	resolveCmd = &cobra.Command{
		Use:   "resolve [file]",
		Short: "S1 고객 identity 통합 미리보기",
		Long: `파일의 고객 ID/이름 쌍으로 master customer ID를 생성합니다.
DB가 설정되어 있으면 기존 identity map을 seed로 사용합니다 (append-only).

Example:
  go run ./cmd/demand resolve data/invoices.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}

	featuresCmd = &cobra.Command{
		Use:   "features [file]",
		Short: "S2 주간 피처 미리보기",
		Args:  cobra.ExactArgs(1),
		RunE:  runFeatures,
	}

	classifyCmd = &cobra.Command{
		Use:   "classify [file]",
		Short: "S3 패턴/티어 분포",
		Args:  cobra.ExactArgs(1),
		RunE:  runClassify,
	}

	analyzeLevels []string
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(classifyCmd)

	featuresCmd.Flags().StringSliceVar(&analyzeLevels, "level", nil, "levels (sku,category,customer)")
	classifyCmd.Flags().StringSliceVar(&analyzeLevels, "level", nil, "levels (sku,category,customer)")
}

// resolved runs S0 + S1 on a file
func resolved(cmd *cobra.Command, a *app, path string) ([]contracts.RawTransaction, *identity.Resolver, error) {
	accepted, q, err := gateFile(cmd.Context(), a, path)
	if err != nil {
		return nil, nil, err
	}
	if q.Accepted == 0 {
		return nil, nil, fmt.Errorf("no valid transactions in %s", path)
	}

	resolver := identity.NewResolver(a.log.Zerolog())
	if a.db != nil {
		existing, err := a.identityStore().LoadIdentities(cmd.Context())
		if err != nil {
			return nil, nil, fmt.Errorf("load identities: %w", err)
		}
		if err := resolver.Seed(existing); err != nil {
			return nil, nil, fmt.Errorf("seed identities: %w", err)
		}
	}
	resolver.Build(identity.PairsFromTransactions(accepted))
	return resolver.Apply(accepted), resolver, nil
}

func analysisLevels(a *app) ([]contracts.Level, error) {
	if len(analyzeLevels) > 0 {
		return parseLevels(analyzeLevels)
	}
	return a.pipeline.Levels()
}

// weekly runs S2 for every requested level
func weekly(cmd *cobra.Command, a *app, txns []contracts.RawTransaction) ([]contracts.WeeklyAggregate, error) {
	levels, err := analysisLevels(a)
	if err != nil {
		return nil, err
	}

	engine := features.NewEngine(a.pipeline.FeatureConfig(), a.log.Zerolog())
	var rows []contracts.WeeklyAggregate
	for _, level := range levels {
		out, err := engine.Build(cmd.Context(), level, txns)
		if err != nil {
			return nil, fmt.Errorf("build %s features: %w", level, err)
		}
		rows = append(rows, out...)
	}
	return rows, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	_, resolver, err := resolved(cmd, a, args[0])
	if err != nil {
		return err
	}

	PrintHeader("S1 Customer Identity")
	PrintKeyValue("Raw IDs", fmt.Sprintf("%d", resolver.RawCount()), 14)
	PrintKeyValue("Master IDs", fmt.Sprintf("%d", resolver.MasterCount()), 14)
	PrintKeyValue("New masters", fmt.Sprintf("%d", len(resolver.Appended())), 14)
	PrintKeyValue("Fallbacks", fmt.Sprintf("%d", resolver.Fallbacks()), 14)
	PrintSeparator()

	// 여러 raw ID가 합쳐진 master만 표시
	widths := []int{8, 32, 30}
	PrintTableHeader([]string{"Master", "Customer", "Raw IDs"}, widths)
	for _, ci := range resolver.Identities() {
		if len(ci.OriginalIDs) < 2 {
			continue
		}
		PrintTableRow([]string{
			fmt.Sprintf("%d", ci.MasterCustomerID),
			ci.CustomerName,
			fmt.Sprintf("%v", ci.OriginalIDs),
		}, widths)
	}
	return nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	txns, _, err := resolved(cmd, a, args[0])
	if err != nil {
		return err
	}
	rows, err := weekly(cmd, a, txns)
	if err != nil {
		return err
	}

	PrintHeader("S2 Weekly Features")
	perLevel := make(map[contracts.Level]int)
	entities := make(map[contracts.Level]map[string]bool)
	first, last := contracts.YearWeek{}, contracts.YearWeek{}
	for _, r := range rows {
		perLevel[r.Level]++
		if entities[r.Level] == nil {
			entities[r.Level] = make(map[string]bool)
		}
		entities[r.Level][r.EntityID] = true
		if first.IsZero() || r.YearWeek.Less(first) {
			first = r.YearWeek
		}
		if r.YearWeek.After(last) {
			last = r.YearWeek
		}
	}

	widths := []int{10, 10, 10}
	PrintTableHeader([]string{"Level", "Entities", "Rows"}, widths)
	for _, level := range contracts.AllLevels() {
		if perLevel[level] == 0 {
			continue
		}
		PrintTableRow([]string{string(level), fmt.Sprintf("%d", len(entities[level])), fmt.Sprintf("%d", perLevel[level])}, widths)
	}
	fmt.Println()
	PrintKeyValue("Weeks", fmt.Sprintf("%s ~ %s", first, last), 6)
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	txns, _, err := resolved(cmd, a, args[0])
	if err != nil {
		return err
	}
	rows, err := weekly(cmd, a, txns)
	if err != nil {
		return err
	}

	classes, err := pattern.NewClassifier(a.pipeline.Thresholds(), a.pipeline.Features.Parallelism, a.log.Zerolog()).
		Classify(cmd.Context(), rows)
	if err != nil {
		return err
	}

	PrintHeader("S3 Pattern / Sufficiency")
	tiers := make(map[contracts.SufficiencyTier]int)
	noForecast := 0
	for _, ec := range classes {
		tiers[ec.Tier]++
		if ec.NoForecast() {
			noForecast++
		}
	}
	PrintCounts("Patterns", pattern.Distribution(classes))
	PrintCounts("Tiers", tiers)
	fmt.Println()
	PrintKeyValue("No forecast", fmt.Sprintf("%d / %d", noForecast, len(classes)), 12)
	return nil
}
