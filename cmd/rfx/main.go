// RFX workflow runner
//
// Executes the Issue RFX document pipeline over a filesystem data root and
// writes a consolidated execution report.
//
// Usage:
//
//	go run ./cmd/rfx                              # Default data root
//	go run ./cmd/rfx -data /srv/rfx -otlp :4317   # Custom root + tracing
//	go build -o rfx ./cmd/rfx && ./rfx
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s2p-automation/rfxcore/engine/config"
	"github.com/s2p-automation/rfxcore/engine/controller"
	"github.com/s2p-automation/rfxcore/engine/handoff"
	"github.com/s2p-automation/rfxcore/engine/observability"
	"github.com/s2p-automation/rfxcore/notify"
)

// frameworkName identifies this runner in the execution report.
const frameworkName = "rfxcore"

// stdLogger implements stage.Logger using standard library log.
type stdLogger struct {
	debug bool
}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	if l.debug {
		log.Printf("[DEBUG] %s %v", msg, keysAndValues)
	}
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

// executionReport is the persisted wrapper around the workflow report.
type executionReport struct {
	ExecutionTimestamp string                     `json:"execution_timestamp"`
	Framework          string                     `json:"framework"`
	WorkflowResult     *controller.WorkflowReport `json:"workflow_result"`
}

func main() {
	configPath := flag.String("config", "", "workflow config file (YAML)")
	dataRoot := flag.String("data", "", "data root directory (overrides config)")
	reportPath := flag.String("report", "", "execution report path (overrides config)")
	otlpEndpoint := flag.String("otlp", "", "OTLP gRPC endpoint for traces (empty disables)")
	metricsAddr := flag.String("metrics", "", "address for Prometheus /metrics (empty disables)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := &stdLogger{debug: *debug || strings.EqualFold(cfg.LogLevel, "DEBUG")}
	if *dataRoot != "" {
		cfg.DataRoot = *dataRoot
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.Info("rfx_runner_starting",
		"workflow", cfg.Name,
		"data_root", cfg.DataRoot,
	)

	ctx := context.Background()

	if *otlpEndpoint != "" {
		shutdown, err := observability.InitTracer(frameworkName, *otlpEndpoint)
		if err != nil {
			logger.Warn("tracing_init_failed", "error", err.Error())
		} else {
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.Warn("tracer_shutdown_failed", "error", err.Error())
				}
			}()
		}
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	bus := notify.NewInMemoryBus()
	bus.Subscribe("StakeholderRequested", func(ctx context.Context, msg notify.Message) error {
		req := msg.(*notify.StakeholderRequested)
		fmt.Printf("  ! stakeholder clarification needed (%s): %s\n", req.RequestID, req.StageName)
		return nil
	})

	store := handoff.NewFileStore(cfg.DataRoot)
	stages := controller.DefaultStages(store, logger)
	ctrl := controller.New(cfg, store, stages, logger, controller.WithBus(bus))

	report := ctrl.Run(ctx)

	printSummary(report)

	if err := writeExecutionReport(cfg.ReportPath, report); err != nil {
		logger.Error("report_write_failed", "path", cfg.ReportPath, "error", err.Error())
		os.Exit(1)
	}
	logger.Info("execution_report_written", "path", cfg.ReportPath)

	// Warning runs still completed via the all-success path.
	if report.Status != controller.StatusSuccess && report.Status != controller.StatusSuccessWithWarnings {
		os.Exit(1)
	}
}

// loadConfig returns defaults when no config file was given.
func loadConfig(path string) (*config.WorkflowConfig, error) {
	if path == "" {
		return config.DefaultWorkflowConfig(), nil
	}
	return config.LoadFile(path)
}

func serveMetrics(addr string, logger *stdLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics_listening", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics_server_stopped", "error", err.Error())
	}
}

func printSummary(report *controller.WorkflowReport) {
	fmt.Printf("\nWorkflow: %s\n", report.Workflow)
	fmt.Printf("Status:   %s\n", report.Status)
	if report.CorrelationID != "" {
		fmt.Printf("RFX ID:   %s\n", report.CorrelationID)
	}
	fmt.Printf("Message:  %s\n", report.Message)

	for _, rec := range report.StageResults {
		marker := "ok"
		if rec.Result.Status != "success" {
			marker = "FAILED"
		}
		fmt.Printf("  [%s] %s: %s\n", marker, rec.StageName, rec.Result.Message)
	}

	if len(report.MissingInputs) > 0 {
		fmt.Printf("Missing inputs: %v\n", report.MissingInputs)
	}
	if len(report.Exceptions) > 0 {
		fmt.Printf("Exceptions: %d (stakeholder requests: %d)\n",
			len(report.Exceptions), len(report.StakeholderRequests))
	}
}

// writeExecutionReport persists the report, overwriting any previous run's
// report at the same path.
func writeExecutionReport(path string, report *controller.WorkflowReport) error {
	wrapper := executionReport{
		ExecutionTimestamp: time.Now().UTC().Format(time.RFC3339),
		Framework:          frameworkName,
		WorkflowResult:     report,
	}

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal execution report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
