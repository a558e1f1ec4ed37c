package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorge-redcloud/demand-planning/internal/api"
	"github.com/jorge-redcloud/demand-planning/internal/api/handlers"
	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "읽기 전용 API 서버 시작",
	Long: `평가 결과 조회용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                                       - Health check
  GET  /metrics                                      - Prometheus metrics
  GET  /api/levels/{level}/reports?scope=ENTITY|LEVEL - 정확도 리포트
  GET  /api/levels/{level}/entities/{entity}/records - 엔티티별 예측 기록
  GET  /api/levels/{level}/selections                - 엔티티별 최적 모델
  GET  /api/runs/latest                              - 최근 파이프라인 실행

Example:
  go run ./cmd/demand api
  go run ./cmd/demand api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demand Planning API Server ===")

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.db == nil {
		return fmt.Errorf("api server needs a database (remove --dry-run)")
	}

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	evalHandler := handlers.NewEvaluationHandler(evaluation.NewRepository(a.db), a.cache, a.log)
	router := api.NewRouter(evalHandler, a.log, a.cfg.MetricsEnabled)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(cmd.Context()); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
