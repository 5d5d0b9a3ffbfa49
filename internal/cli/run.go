package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/profiler/internal/artifact"
	"github.com/justapithecus/profiler/internal/config"
	"github.com/justapithecus/profiler/internal/core"
	"github.com/justapithecus/profiler/internal/dataset"
	"github.com/justapithecus/profiler/internal/history"
	"github.com/justapithecus/profiler/internal/log"
	"github.com/justapithecus/profiler/internal/metrics"
	"github.com/justapithecus/profiler/internal/notify"
	"github.com/justapithecus/profiler/internal/profile"
	"github.com/justapithecus/profiler/internal/report"
	"github.com/justapithecus/profiler/internal/rules"
	"github.com/justapithecus/profiler/internal/rules/tui"
	"github.com/justapithecus/profiler/internal/runner"
	"github.com/justapithecus/profiler/internal/scheduler"
	"github.com/justapithecus/profiler/internal/types"
)

// Exit codes, grounded on cmd/quarry/main.go's cli.Exit contract: 0 on
// a completed control loop (individual task failures included), non-zero
// only for unrecoverable setup errors.
const (
	exitSuccess     = 0
	exitScriptError = 1
	exitSetupError  = 2
)

// RunCommand returns the "run" command: load a profile against a
// dataset and drive it to completion through the Core Manager.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "run a profile against a dataset",
		Flags:  runFlags(),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}

	profileResult, err := profile.Load(c.String("profile"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}

	var rowCap, colCap int
	if v := profileResult.Profile.GlobalSettings.Rows; v != nil {
		rowCap = *v
	}
	if v := profileResult.Profile.GlobalSettings.Columns; v != nil {
		colCap = *v
	}

	delimiter, err := dataset.ParseDelimiter(c.String("delimiter"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}
	table, err := dataset.Load(c.String("data"), dataset.Options{
		HasHeader: c.Bool("has_header"),
		Delimiter: delimiter,
		RowCap:    rowCap,
		ColumnCap: colCap,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}

	strategy, err := strategyFromFlag(resolveString(c, "strategy", cfg.Strategy.Default))
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}

	globalTimeout := time.Duration(0)
	if v := profileResult.Profile.GlobalSettings.GlobalTimeout; v != nil {
		globalTimeout = time.Duration(*v) * time.Second
	}
	tasks := BindTasks(profileResult.Profile.Tasks, table, strategy, globalTimeout)

	runID := time.Now().UTC().Format("20060102T150405Z")
	runDir := filepath.Join(
		resolveString(c, "storage-path", cfg.Storage.Path),
		fmt.Sprintf("%s_%s_%s", baseName(c.String("data")), profileResult.Profile.Name, runID),
	)
	if err := os.MkdirAll(filepath.Join(runDir, "serialized_data"), 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("run: create run dir: %v", err), exitSetupError)
	}

	logger := log.NewLogger(log.RunContext{RunID: runID, ProfileName: profileResult.Profile.Name, Level: resolveString(c, "log_level", cfg.LogLevel)})
	logFile, err := os.OpenFile(filepath.Join(runDir, "profiling.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: open profiling.log: %v", err), exitSetupError)
	}
	defer logFile.Close()
	logger = logger.WithOutput(logFile)

	for _, w := range profileResult.Warnings {
		logger.Warn("dropped task", map[string]any{"index": w.Index, "message": w.Message})
	}

	artifacts, err := buildArtifactStore(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitSetupError)
	}

	histPath := filepath.Join(resolveString(c, "storage-path", cfg.Storage.Path), "history.json")
	histStore, err := history.Open(histPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: open history store: %v", err), exitSetupError)
	}

	results := report.NewResultWriter(filepath.Join(runDir, "result.txt"))
	collector := metrics.NewCollector(runID, profileResult.Profile.Name)

	var prompter rules.Prompter
	if strategy == types.StrategyAsk {
		prompter = tui.Prompter{}
	}

	workerPath := c.String("worker-path")
	if workerPath == "" {
		workerPath = "profiler-worker"
	}
	run := runner.New(runner.Config{WorkerPath: workerPath, Logger: logger})
	sched := scheduler.New(scheduler.NewRunnerAdapter(run), logger)

	manager := core.New(sched, histStore, artifacts, results, logger, collector, prompter)

	workers := resolveInt(c, "workers", cfg.Workers)
	memLimitMB := resolveInt(c, "mem_limit", cfg.MemLimit)

	opts := core.Options{
		RunID:         runID,
		RunDir:        runDir,
		TryParallel:   !c.Bool("no_parallel"),
		Workers:       scheduler.ResolveWorkers(workers),
		MemLimitBytes: resolveMemLimitBytes(memLimitMB),
		GlobalTimeout: globalTimeout,
		Tuning: rules.Tuning{
			TimeoutStep: float64(resolveInt(c, "timeout_step", cfg.Tuning.TimeoutStep)),
			TimeoutMax:  float64(resolveInt(c, "timeout_max", cfg.Tuning.TimeoutMax)),
			PruneFactor: resolveFloat(c, "prune_factor", cfg.Tuning.PruneFactor),
			MinRows:     resolveInt(c, "min_rows", cfg.Tuning.MinRows),
		},
		SkipDedup: c.Bool("skip_results_check"),
	}
	if memLimitMB == 0 && opts.MemLimitBytes == 0 {
		logger.Warn("no --mem_limit given and available memory could not be queried on this platform; running uncapped", nil)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	start := time.Now()
	records, err := manager.Execute(ctx, tasks, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitScriptError)
	}

	snap := collector.Snapshot()
	rpt := report.BuildRunReport(runID, profileResult.Profile.Name, records, snap, time.Since(start))
	if err := report.WriteJSON(rpt, filepath.Join(runDir, "report.json")); err != nil {
		logger.Warn("write report.json failed", map[string]any{"error": err.Error()})
	}
	if err := report.WriteDigest(runDir, records); err != nil {
		logger.Warn("write digest.md failed", map[string]any{"error": err.Error()})
	}

	publishCompletion(ctx, c, cfg, runID, rpt, logger)

	return cli.Exit("", exitSuccess)
}

func buildArtifactStore(c *cli.Context, cfg config.Config) (artifact.Store, error) {
	backend := resolveString(c, "storage-backend", cfg.Storage.Backend)
	switch backend {
	case "", "fs":
		return artifact.NewFSStore(resolveString(c, "storage-path", cfg.Storage.Path)), nil
	case "s3":
		return artifact.NewS3Store(context.Background(), artifact.S3Config{
			Bucket: resolveString(c, "storage-bucket", cfg.Storage.Bucket),
			Region: resolveString(c, "storage-region", cfg.Storage.Region),
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func publishCompletion(ctx context.Context, c *cli.Context, cfg config.Config, runID string, rpt *report.RunReport, logger *log.Logger) {
	adapter, err := buildNotifyAdapter(c, cfg)
	if err != nil {
		logger.Warn("notify adapter setup failed", map[string]any{"error": err.Error()})
		return
	}
	if adapter == nil {
		return
	}
	n := notify.New(adapter)
	defer n.Close()

	event := notify.Event{
		RunID:           runID,
		ProfileName:     rpt.ProfileName,
		Outcome:         rpt.Outcome,
		TasksSucceeded:  rpt.TasksSucceeded,
		TasksFailed:     rpt.TasksFailed,
		DurationSeconds: rpt.DurationSeconds,
		Timestamp:       time.Now().UTC(),
	}
	if err := n.Publish(ctx, event); err != nil {
		logger.Warn("notify publish failed", map[string]any{"error": err.Error()})
	}
}

func buildNotifyAdapter(c *cli.Context, cfg config.Config) (notify.Adapter, error) {
	webhookURL := resolveString(c, "webhook_url", cfg.Notify.WebhookURL)
	if webhookURL != "" {
		return notify.NewWebhookAdapter(notify.WebhookConfig{URL: webhookURL, Timeout: cfg.Notify.Timeout.Duration})
	}
	redisAddr := resolveString(c, "redis_addr", cfg.Notify.RedisAddr)
	if redisAddr != "" {
		return notify.NewRedisAdapter(notify.RedisConfig{
			URL:     redisAddr,
			Channel: resolveString(c, "redis_channel", cfg.Notify.RedisChannel),
			Timeout: cfg.Notify.Timeout.Duration,
		})
	}
	return nil, nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
