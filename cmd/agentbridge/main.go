package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TheKoma-X/AgentBridge/config"
	"github.com/TheKoma-X/AgentBridge/internal/metrics"
	"github.com/TheKoma-X/AgentBridge/internal/telemetry"
	"github.com/TheKoma-X/AgentBridge/workflow"
)

// Set at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runWorkflow(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// inputFlags collects repeated --input key=value pairs.
type inputFlags map[string]any

func (f inputFlags) String() string { return fmt.Sprintf("%v", map[string]any(f)) }

func (f inputFlags) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	// Try to keep JSON-typed values; fall back to the raw string.
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		f[key] = parsed
	} else {
		f[key] = value
	}
	return nil
}

func runWorkflow(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall execution timeout")
	inputs := inputFlags{}
	fs.Var(inputs, "input", "Workflow input variable as key=value (repeatable)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentbridge run [flags] <definition file>")
		os.Exit(1)
	}
	definitionPath := fs.Arg(0)

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting agentbridge",
		zap.String("version", Version),
		zap.String("definition", definitionPath),
	)

	providers, err := telemetry.Init(telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRate:   cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		logger.Warn("telemetry initialization failed", zap.Error(err))
	}
	defer func() {
		if providers != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = providers.Shutdown(shutdownCtx)
		}
	}()

	def, err := workflow.LoadDefinitionFromFile(definitionPath)
	if err != nil {
		logger.Fatal("failed to load workflow definition", zap.Error(err))
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		collector = metrics.NewCollector(cfg.Metrics.Namespace, registry, logger)
		startMetricsServer(cfg.Metrics.Addr, registry, logger)
	}

	registry := workflow.NewExecutorRegistry(logger)
	registry.SetFallback(dryRunExecutor{})

	engine := workflow.NewEngine(registry,
		workflow.WithLogger(logger),
		workflow.WithConfig(cfg.Engine),
		workflow.WithMetrics(collector),
	)
	defer engine.Close()

	if err := engine.RegisterWorkflow(def); err != nil {
		logger.Fatal("failed to register workflow", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	execID, err := engine.ExecuteWorkflow(ctx, def.ID, inputs)
	if err != nil {
		logger.Fatal("failed to start execution", zap.Error(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	status, err := engine.Wait(waitCtx, execID)
	if err != nil {
		logger.Warn("interrupted, cancelling execution", zap.Error(err))
		_ = engine.Cancel(execID)
		status, _ = engine.Wait(context.Background(), execID)
	}

	snapshot, err := engine.GetStatus(execID)
	if err != nil {
		logger.Fatal("failed to read execution status", zap.Error(err))
	}
	result, _ := engine.GetResult(execID)
	printOutcome(snapshot, result)

	if status != workflow.WorkflowCompleted {
		os.Exit(1)
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: agentbridge validate <definition file>")
		os.Exit(1)
	}

	def, err := workflow.LoadDefinitionFromFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid workflow definition: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: OK (%d tasks)\n", def.ID, len(def.Tasks))
	for _, t := range def.Tasks {
		if len(t.Dependencies) > 0 {
			fmt.Printf("  %s <- %s\n", t.ID, strings.Join(t.Dependencies, ", "))
		} else {
			fmt.Printf("  %s\n", t.ID)
		}
	}
}

// dryRunExecutor stands in for real framework adapters: it echoes resolved
// inputs back as outputs, so definitions can be smoke-tested end to end.
type dryRunExecutor struct{}

func (dryRunExecutor) Execute(ctx context.Context, framework, operation string, inputs map[string]any) (map[string]any, error) {
	outputs := make(map[string]any, len(inputs)+1)
	for k, v := range inputs {
		outputs[k] = v
	}
	outputs["result"] = fmt.Sprintf("%s:%s", framework, operation)
	return outputs, nil
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	_ = level.Set(cfg.Level)

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func startMetricsServer(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

func printOutcome(snapshot workflow.ExecutionSnapshot, result map[string]any) {
	fmt.Printf("Execution %s: %s\n", snapshot.ExecutionID, snapshot.Status)
	for _, t := range snapshot.Tasks {
		line := fmt.Sprintf("  %-20s %s", t.TaskID, t.Status)
		if t.Attempts > 1 {
			line += fmt.Sprintf(" (%d attempts)", t.Attempts)
		}
		if t.SkippedBy != "" {
			line += fmt.Sprintf(" (upstream %s failed)", t.SkippedBy)
		}
		fmt.Println(line)
	}
	if snapshot.Error != "" {
		fmt.Printf("Error: %s\n", snapshot.Error)
	}
	if len(result) > 0 {
		out, err := json.MarshalIndent(result, "", "  ")
		if err == nil {
			fmt.Printf("Results:\n%s\n", out)
		}
	}
}

func printVersion() {
	fmt.Printf("AgentBridge %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`AgentBridge - cross-framework workflow orchestration

Usage:
  agentbridge run [flags] <definition file>   Execute a workflow definition
  agentbridge validate <definition file>      Validate a workflow definition
  agentbridge version                         Show version information
  agentbridge help                            Show this help

Run flags:
  --config path        Config file (YAML)
  --input key=value    Workflow input variable (repeatable)
  --timeout duration   Overall execution timeout (default 10m)`)
}
