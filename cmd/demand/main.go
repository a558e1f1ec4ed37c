package main

import (
	"os"

	"github.com/jorge-redcloud/demand-planning/cmd/demand/commands"
)

// main is the entry point for the demand planning CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/demand [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
