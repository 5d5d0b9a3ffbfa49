package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/profiler/internal/artifact"
	"github.com/justapithecus/profiler/internal/config"
	"github.com/justapithecus/profiler/internal/core"
	"github.com/justapithecus/profiler/internal/dataset"
	"github.com/justapithecus/profiler/internal/history"
	"github.com/justapithecus/profiler/internal/log"
	"github.com/justapithecus/profiler/internal/metrics"
	"github.com/justapithecus/profiler/internal/profile"
	"github.com/justapithecus/profiler/internal/report"
	"github.com/justapithecus/profiler/internal/runner"
	"github.com/justapithecus/profiler/internal/scheduler"
	"github.com/justapithecus/profiler/internal/types"
)

// CompareCommand returns the "compare" command group: run a profile
// against a baseline and a target dataset under strategy=single_run,
// then diff the mined primitive sets, grounded on
// core/comparer.py's get_runs_comparison_analyze.
func CompareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "run a profile on two datasets and diff their results",
		Subcommands: []*cli.Command{
			compareSubcommand("subset", "diff a profile's results between a dataset and a row subset of it"),
			compareSubcommand("version", "diff a profile's results between two versions of a dataset"),
		},
	}
}

func compareSubcommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Required: true, Usage: "path to the profile YAML document"},
			&cli.StringFlag{Name: "baseline", Required: true, Usage: "path to the baseline CSV dataset"},
			&cli.StringFlag{Name: "target", Required: true, Usage: "path to the target CSV dataset"},
			&cli.StringFlag{Name: "delimiter", Value: ",", Usage: "CSV field delimiter"},
			&cli.BoolFlag{Name: "has_header", Value: true, Usage: "treat the first row as a header"},
			&cli.StringFlag{Name: "config", Usage: "path to profiler.yaml"},
			&cli.StringFlag{Name: "storage-path", Usage: "artifact storage root (overrides config)"},
		},
		Action: compareAction,
	}
}

func compareAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("compare: %v", err), exitSetupError)
	}
	profileResult, err := profile.Load(c.String("profile"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("compare: %v", err), exitSetupError)
	}

	baselineRecords, baselinePayloads, err := runSingleDataset(c, cfg, profileResult.Profile, c.String("baseline"), "baseline")
	if err != nil {
		return cli.Exit(fmt.Sprintf("compare: %v", err), exitSetupError)
	}
	targetRecords, targetPayloads, err := runSingleDataset(c, cfg, profileResult.Profile, c.String("target"), "target")
	if err != nil {
		return cli.Exit(fmt.Sprintf("compare: %v", err), exitSetupError)
	}

	digest := diffRuns(baselineRecords, baselinePayloads, targetRecords, targetPayloads)
	fmt.Fprint(os.Stdout, digest)
	return cli.Exit("", exitSuccess)
}

// runSingleDataset binds the profile's tasks against one dataset under
// strategy=single_run and drives it through the Core Manager with
// dedup disabled, returning the per-task records and their payloads.
func runSingleDataset(c *cli.Context, cfg config.Config, prof types.Profile, dataPath, label string) ([]types.RunRecord, map[string]types.Payload, error) {
	delimiter, err := dataset.ParseDelimiter(c.String("delimiter"))
	if err != nil {
		return nil, nil, err
	}
	table, err := dataset.Load(dataPath, dataset.Options{HasHeader: c.Bool("has_header"), Delimiter: delimiter})
	if err != nil {
		return nil, nil, err
	}

	var globalTimeout time.Duration
	if v := prof.GlobalSettings.GlobalTimeout; v != nil {
		globalTimeout = time.Duration(*v) * time.Second
	}
	tasks := BindTasks(prof.Tasks, table, types.StrategySingleRun, globalTimeout)

	storagePath := resolveString(c, "storage-path", cfg.Storage.Path)
	runID := fmt.Sprintf("compare_%s_%s", label, time.Now().UTC().Format("20060102T150405Z"))
	runDir := filepath.Join(storagePath, runID)
	if err := os.MkdirAll(filepath.Join(runDir, "serialized_data"), 0o755); err != nil {
		return nil, nil, err
	}

	logger := log.NewLogger(log.RunContext{RunID: runID, ProfileName: prof.Name, Level: cfg.LogLevel})
	histStore, err := history.Open(filepath.Join(storagePath, "history.json"))
	if err != nil {
		return nil, nil, err
	}
	artifacts := artifact.NewFSStore(storagePath)
	results := report.NewResultWriter(filepath.Join(runDir, "result.txt"))
	collector := metrics.NewCollector(runID, prof.Name)

	payloads := make(map[string]types.Payload, len(tasks))
	capture := &payloadCapturingScheduler{inner: buildCompareScheduler(c, logger)}

	manager := core.New(capture, histStore, artifacts, results, logger, collector, nil)
	records, err := manager.Execute(context.Background(), tasks, core.Options{
		RunID:     runID,
		RunDir:    runDir,
		SkipDedup: true,
	})
	if err != nil {
		return nil, nil, err
	}

	for _, outcome := range capture.captured {
		payloads[outcomeAlgorithm(tasks, outcome.TaskID)] = outcome.Payload
	}
	return records, payloads, nil
}

func buildCompareScheduler(c *cli.Context, logger *log.Logger) core.Scheduler {
	workerPath := c.String("worker-path")
	if workerPath == "" {
		workerPath = "profiler-worker"
	}
	run := runner.New(runner.Config{WorkerPath: workerPath, Logger: logger})
	return scheduler.New(scheduler.NewRunnerAdapter(run), logger)
}

func outcomeAlgorithm(tasks []*types.Task, taskID string) string {
	for _, t := range tasks {
		if t.ID == taskID {
			return t.Algorithm
		}
	}
	return taskID
}

// payloadCapturingScheduler wraps a core.Scheduler to retain every
// Success outcome's Payload, since the Core Manager itself only
// returns RunRecords (payloads go to artifact storage, not history).
type payloadCapturingScheduler struct {
	inner    core.Scheduler
	captured []types.TaskOutcome
}

func (p *payloadCapturingScheduler) Run(ctx context.Context, tasks []*types.Task, tryParallel bool, workers int, memLimitBytes int64, globalTimeout time.Duration) ([]types.TaskOutcome, []time.Duration, error) {
	outcomes, durations, err := p.inner.Run(ctx, tasks, tryParallel, workers, memLimitBytes, globalTimeout)
	for _, o := range outcomes {
		if o.Status == types.StatusSuccess {
			p.captured = append(p.captured, o)
		}
	}
	return outcomes, durations, err
}

// diffRuns renders a Markdown comparison digest between a baseline and
// target run, per comparer.py's per-algorithm broken/new instance
// reporting (string-based equality, since a mined primitive's Go
// struct need not implement ==).
func diffRuns(baseline []types.RunRecord, baselinePayloads map[string]types.Payload, target []types.RunRecord, targetPayloads map[string]types.Payload) string {
	var b strings.Builder
	b.WriteString("# Comparison Digest\n\n")
	b.WriteString("| Algorithm | Baseline Instances | Target Instances | Result |\n")
	b.WriteString("|---|---|---|---|\n")

	targetByAlgo := recordsByAlgorithm(target)
	for _, algo := range sortedAlgorithms(baseline) {
		baseRec := recordsByAlgorithm(baseline)[algo]
		targetRec, ok := targetByAlgo[algo]

		if baseRec.Status != types.StatusSuccess {
			b.WriteString(fmt.Sprintf("| %s | - | - | Failed on baseline dataset |\n", algo))
			continue
		}
		if !ok || targetRec.Status != types.StatusSuccess {
			b.WriteString(fmt.Sprintf("| %s | %d | N/A | Failed on target dataset |\n", algo, baseRec.InstanceCount))
			continue
		}

		basePayload := baselinePayloads[algo]
		targetPayload := targetPayloads[algo]
		result := "All instances hold"
		for kind, instances := range basePayload {
			broken, fresh := diffInstanceLists(instances, targetPayload[kind])
			if len(broken) != 0 || len(fresh) != 0 {
				result = fmt.Sprintf("Broken: %d; New: %d", len(broken), len(fresh))
			}
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", algo, baseRec.InstanceCount, targetRec.InstanceCount, result))
	}
	return b.String()
}

func diffInstanceLists(baseline, target types.PrimitiveList) (broken, fresh types.PrimitiveList) {
	targetStrings := make(map[string]bool, len(target))
	for _, instance := range target {
		targetStrings[fmt.Sprintf("%v", instance)] = true
	}
	for _, instance := range baseline {
		if !targetStrings[fmt.Sprintf("%v", instance)] {
			broken = append(broken, instance)
		}
	}
	baseStrings := make(map[string]bool, len(baseline))
	for _, instance := range baseline {
		baseStrings[fmt.Sprintf("%v", instance)] = true
	}
	for _, instance := range target {
		if !baseStrings[fmt.Sprintf("%v", instance)] {
			fresh = append(fresh, instance)
		}
	}
	return broken, fresh
}

func recordsByAlgorithm(records []types.RunRecord) map[string]types.RunRecord {
	out := make(map[string]types.RunRecord, len(records))
	for _, r := range records {
		out[r.Algorithm] = r
	}
	return out
}

func sortedAlgorithms(records []types.RunRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Algorithm)
	}
	sort.Strings(names)
	return names
}
