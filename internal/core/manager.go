// Package core implements the Core Manager (component F): the outer
// control loop that drives the Scheduler to completion across
// iterations, generalizing quarry/runtime/run.go's single-run
// lifecycle (start -> ingest -> wait -> flush -> classify) into
// spec.md §4.4's dedup -> dispatch -> classify -> rules loop.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/justapithecus/profiler/internal/artifact"
	"github.com/justapithecus/profiler/internal/history"
	"github.com/justapithecus/profiler/internal/ipc"
	"github.com/justapithecus/profiler/internal/log"
	"github.com/justapithecus/profiler/internal/metrics"
	"github.com/justapithecus/profiler/internal/report"
	"github.com/justapithecus/profiler/internal/rules"
	"github.com/justapithecus/profiler/internal/scheduler"
	"github.com/justapithecus/profiler/internal/types"
)

// Scheduler is the subset of scheduler.Scheduler the Manager drives; an
// interface so tests can inject a fake without real processes.
type Scheduler interface {
	Run(ctx context.Context, tasks []*types.Task, tryParallel bool, workers int, memLimitBytes int64, globalTimeout time.Duration) ([]types.TaskOutcome, []time.Duration, error)
}

var _ Scheduler = (*scheduler.Scheduler)(nil)

// Options parameterizes one Execute call.
type Options struct {
	RunID         string
	RunDir        string
	TryParallel   bool
	Workers       int
	MemLimitBytes int64
	GlobalTimeout time.Duration
	Tuning        rules.Tuning
	// SkipDedup disables the dedup pass, matching --skip_results_check.
	SkipDedup bool
}

// Manager drives the iterate-until-drained outer loop.
type Manager struct {
	scheduler Scheduler
	history   *history.Store
	artifacts artifact.Store
	results   *report.ResultWriter
	log       *log.Logger
	collector *metrics.Collector
	prompter  rules.Prompter
}

// New constructs a Manager from its collaborators. collector and
// prompter may be nil (nil-safe no-ops / NonInteractivePrompter).
func New(sched Scheduler, hist *history.Store, artifacts artifact.Store, results *report.ResultWriter, logger *log.Logger, collector *metrics.Collector, prompter rules.Prompter) *Manager {
	return &Manager{
		scheduler: sched,
		history:   hist,
		artifacts: artifacts,
		results:   results,
		log:       logger,
		collector: collector,
		prompter:  prompter,
	}
}

// Execute runs tasks to completion, per spec.md §4.4: an optional dedup
// pass, then iterations that honor try_parallel only on the first
// iteration, persisting every outcome and feeding Rules Engine retries
// back into the next iteration. It returns every RunRecord written
// under opts.RunID, in insertion order.
func (m *Manager) Execute(ctx context.Context, tasks []*types.Task, opts Options) ([]types.RunRecord, error) {
	pending := tasks
	if !opts.SkipDedup {
		var err error
		pending, err = m.dedupPass(opts.RunID, tasks)
		if err != nil {
			return nil, fmt.Errorf("core: dedup pass: %w", err)
		}
	}

	iteration := 1
	for len(pending) > 0 {
		m.recordStarts(opts.RunID, pending)

		tryParallel := opts.TryParallel && iteration == 1
		outcomes, _, err := m.scheduler.Run(ctx, pending, tryParallel, opts.Workers, opts.MemLimitBytes, opts.GlobalTimeout)
		if err != nil {
			return nil, fmt.Errorf("core: scheduler run: %w", err)
		}

		var retries []*types.Task
		for i, outcome := range outcomes {
			task := pending[i]
			if outcome.Status == types.StatusSuccess {
				if err := m.persistSuccess(ctx, opts, task, outcome); err != nil {
					m.logWarn("persist success failed", task.ID, err)
				}
				m.collector.IncTaskSucceeded()
				continue
			}

			m.collector.IncTaskFailed()
			decision := rules.Decide(task, outcome.ErrorKind, opts.Tuning, m.prompter)
			if err := m.persistFailure(task, outcome, decision); err != nil {
				m.logWarn("persist failure failed", task.ID, err)
			}
			if decision.Action == rules.ActionRetry {
				m.collector.IncRetry(string(task.Strategy))
				retries = append(retries, decision.RetryTask)
			}
		}

		pending = retries
		iteration++
	}

	return m.history.GetTasksByRunID(opts.RunID)
}

// dedupPass looks up each task's (algorithm, params, fingerprint, rows,
// cols) against the History Store. A hit copies the prior Success
// record under the current run id and removes the task from the
// returned queue; a miss, a missing fingerprint, or a lookup error
// leaves the task pending.
func (m *Manager) dedupPass(runID string, tasks []*types.Task) ([]*types.Task, error) {
	remaining := make([]*types.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Fingerprint == "" {
			remaining = append(remaining, task)
			continue
		}
		prior, err := m.history.GetLastRunForAlgoAndData(task.Algorithm, task.Params, task.Fingerprint, task.Rows, task.Cols)
		if err != nil {
			m.logWarn("dedup lookup failed", task.ID, err)
			remaining = append(remaining, task)
			continue
		}
		if prior == nil {
			remaining = append(remaining, task)
			continue
		}

		now := time.Now()
		record := *prior
		record.RunID = runID
		record.TaskID = task.ID
		record.TimestampStart = now
		record.TimestampEnd = now
		if err := m.history.AddRun(record); err != nil {
			return nil, err
		}
		m.collector.IncDedupHit()
		if m.results != nil {
			if err := m.results.AppendDedup(task.Algorithm, task.Params, record.ArtifactPath); err != nil {
				m.logWarn("result dedup append failed", task.ID, err)
			}
		}
	}
	return remaining, nil
}

func (m *Manager) recordStarts(runID string, tasks []*types.Task) {
	for _, task := range tasks {
		m.collector.IncTaskStarted()
		err := m.history.AddRun(types.RunRecord{
			RunID:          runID,
			TaskID:         task.ID,
			Algorithm:      task.Algorithm,
			Family:         task.Family,
			Params:         task.Params,
			Fingerprint:    task.Fingerprint,
			Rows:           task.Rows,
			Cols:           task.Cols,
			TimestampStart: time.Now(),
			Status:         types.StatusNotStarted,
		})
		if err != nil {
			m.logWarn("record start failed", task.ID, err)
		}
	}
}

func (m *Manager) persistSuccess(ctx context.Context, opts Options, task *types.Task, outcome types.TaskOutcome) error {
	// The artifact store is rooted at the storage directory that already
	// contains opts.RunDir, so the blob path is built from the run
	// directory's own name.
	path := artifact.BlobPath(filepath.Base(opts.RunDir), task.Algorithm, task.ID)
	if m.artifacts != nil {
		data, err := ipc.EncodePayload(outcome.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		if err := m.artifacts.Put(ctx, path, data); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}

	instances := make(map[string]int, len(outcome.Payload))
	for kind, list := range outcome.Payload {
		instances[kind] = len(list)
	}
	if m.results != nil {
		if err := m.results.AppendSuccess(task.Algorithm, task.Params, instances); err != nil {
			return fmt.Errorf("append result: %w", err)
		}
	}

	return m.history.MarkSuccess(task.ID, path, outcome.InstanceCount(), outcome.ExecutionSeconds)
}

func (m *Manager) persistFailure(task *types.Task, outcome types.TaskOutcome, decision rules.Decision) error {
	if m.results != nil {
		if err := m.results.AppendFailure(task.Algorithm, task.Params, outcome.ErrorKind, string(decision.Action)); err != nil {
			return err
		}
	}
	return m.history.MarkFailure(task.ID, outcome.Status, outcome.ErrorKind, string(decision.Action))
}

func (m *Manager) logWarn(message, taskID string, err error) {
	if m.log == nil {
		return
	}
	m.log.Warn(message, map[string]any{"task_id": taskID, "error": err.Error()})
}
