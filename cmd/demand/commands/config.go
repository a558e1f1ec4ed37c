package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "pipeline YAML 검증",
	Long: `pipeline YAML을 검증하고 경고, config hash, 스냅샷을 출력합니다.

Example:
  go run ./cmd/demand config --config configs/pipeline.yaml`,
	RunE: runConfigCheck,
}

var configJSON bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configJSON, "json", false, "print the run snapshot as JSON")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := pipelineconfig.NewRunSnapshot(a.pipeline, a.yaml)
	if err != nil {
		return err
	}

	if configJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	PrintHeader("Pipeline config")
	PrintKeyValue("Pipeline", snap.PipelineID, 12)
	PrintKeyValue("Version", a.pipeline.Meta.Version, 12)
	PrintKeyValue("Train end", snap.TrainEnd, 12)
	PrintKeyValue("Models", fmt.Sprintf("%v", a.pipeline.Evaluation.Models), 12)
	PrintKeyValue("Hash", snap.ConfigHash, 12)
	PrintSeparator()

	warnings := pipelineconfig.Warn(a.pipeline)
	if len(warnings) == 0 {
		PrintSuccess("config valid, no warnings")
		return nil
	}
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}
