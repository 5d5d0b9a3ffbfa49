// Package scheduler implements the Scheduler (component D): it
// dispatches a batch of tasks across a bounded worker pool, interleaves
// submission with result collection, and enforces both per-task and
// global deadlines, per spec.md §4.2.
package scheduler

import (
	"context"
	"runtime"
	"time"

	"github.com/justapithecus/profiler/internal/ipc"
	"github.com/justapithecus/profiler/internal/log"
	"github.com/justapithecus/profiler/internal/runner"
	"github.com/justapithecus/profiler/internal/types"
)

// PollCap is the maximum duration the main loop blocks on the result
// channel before re-checking deadlines, per spec.md §4.2 step 3
// ("a short polling cap (≤100 ms)").
const PollCap = 100 * time.Millisecond

// Runner is the subset of internal/runner.Runner the Scheduler drives;
// an interface so tests can inject a fake without spawning real
// processes.
type Runner interface {
	Start(ctx context.Context, task *types.Task, memCapBytes int64, threads int) (Handle, error)
}

// Handle is the subset of internal/runner.Handle the Scheduler uses.
type Handle interface {
	Result() <-chan ipc.TaskResultFrame
	Done() <-chan struct{}
	Stop()
}

// runnerAdapter lets a *runner.Runner satisfy Runner, since
// runner.Handle's methods return the concrete *Handle rather than the
// interface type.
type runnerAdapter struct {
	r *runner.Runner
}

// NewRunnerAdapter wraps a concrete *runner.Runner for use as a
// scheduler.Runner.
func NewRunnerAdapter(r *runner.Runner) Runner {
	return &runnerAdapter{r: r}
}

func (a *runnerAdapter) Start(ctx context.Context, task *types.Task, memCapBytes int64, threads int) (Handle, error) {
	return a.r.Start(ctx, task, memCapBytes, threads)
}

// Scheduler runs batches of tasks against a Runner.
type Scheduler struct {
	runner Runner
	log    *log.Logger
}

// New constructs a Scheduler.
func New(r Runner, logger *log.Logger) *Scheduler {
	return &Scheduler{runner: r, log: logger}
}

// ResolveWorkers turns the CLI's workers=0 ("all cores") convention into
// a concrete worker count, per spec.md §8 boundary behaviors.
func ResolveWorkers(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}

type activeEntry struct {
	handle Handle
	index  int
	start  time.Time
}

// Run executes tasks across at most workers concurrent isolated
// processes, honoring per-task timeouts and an optional global
// deadline. It implements spec.md §4.2's main loop, shutdown phase, and
// final sweep verbatim. Outcomes are returned in input order; durations
// parallel them 1:1.
func (s *Scheduler) Run(ctx context.Context, tasks []*types.Task, tryParallel bool, workers int, memLimitBytes int64, globalTimeout time.Duration) ([]types.TaskOutcome, []time.Duration, error) {
	n := len(tasks)
	if n == 0 {
		return []types.TaskOutcome{}, []time.Duration{}, nil
	}

	w := workers
	threads := 1
	if !tryParallel {
		w = 1
		threads = workers
	}
	if w < 1 {
		w = 1
	}
	memPerProc := memLimitBytes / int64(w)

	outcomes := make([]types.TaskOutcome, n)
	durations := make([]time.Duration, n)
	for i, t := range tasks {
		outcomes[i] = types.TaskOutcome{TaskID: t.ID, Status: types.StatusNotStarted}
	}

	active := make(map[string]*activeEntry, w)
	results := make(chan resultMsg, w)

	overallStart := time.Now()
	var globalDeadline time.Time
	hasGlobalDeadline := globalTimeout > 0
	if hasGlobalDeadline {
		globalDeadline = overallStart.Add(globalTimeout)
	}

	nextToLaunch := 0
	processedCount := 0
	globalTimeoutReached := false

	for processedCount < n {
		now := time.Now()
		if hasGlobalDeadline && now.After(globalDeadline) {
			globalTimeoutReached = true
			break
		}

		// Launch while there is capacity and unlaunched tasks remain.
		for len(active) < w && nextToLaunch < n {
			idx := nextToLaunch
			task := tasks[idx]
			nextToLaunch++

			h, err := s.runner.Start(ctx, task, memPerProc, threads)
			if err != nil {
				outcomes[idx] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusStartingFailure, ErrorKind: err.Error()}
				processedCount++
				continue
			}
			active[task.ID] = &activeEntry{handle: h, index: idx, start: time.Now()}
			outcomes[idx].Status = types.StatusRunning
			go forward(h, task.ID, results)
		}

		if len(active) == 0 {
			if nextToLaunch >= n {
				break
			}
			continue
		}

		wait := nearestDeadline(active, tasks, now, PollCap)
		if hasGlobalDeadline {
			if left := globalDeadline.Sub(now); left < wait {
				wait = left
			}
		}
		if wait < 0 {
			wait = 0
		}

		select {
		case msg := <-results:
			entry, ok := active[msg.taskID]
			if !ok {
				if s.log != nil {
					s.log.Sugar().Warnw("result for unknown task", "task_id", msg.taskID)
				}
				break
			}
			outcomes[entry.index] = outcomeFromFrame(msg.frame)
			durations[entry.index] = time.Since(entry.start)
			delete(active, msg.taskID)
			processedCount++
		case <-time.After(wait):
		case <-ctx.Done():
			globalTimeoutReached = true
		}

		// Per-task deadline sweep.
		now = time.Now()
		for taskID, entry := range active {
			task := tasks[entry.index]
			if now.Before(entry.start.Add(task.EffectiveTimeout())) {
				continue
			}
			entry.handle.Stop()
			if outcomes[entry.index].Status == types.StatusRunning || outcomes[entry.index].Status == types.StatusNotStarted {
				outcomes[entry.index] = types.TaskOutcome{TaskID: task.ID, Status: types.StatusTimeout}
			}
			delete(active, taskID)
			processedCount++
		}

		if globalTimeoutReached {
			break
		}
	}

	if globalTimeoutReached {
		for taskID, entry := range active {
			entry.handle.Stop()
			idx := entry.index
			if outcomes[idx].Status == types.StatusRunning {
				outcomes[idx] = types.TaskOutcome{TaskID: tasks[idx].ID, Status: types.StatusGlobalTimeout}
			} else if outcomes[idx].Status == types.StatusNotStarted {
				outcomes[idx] = types.TaskOutcome{TaskID: tasks[idx].ID, Status: types.StatusGlobalTimeout}
			}
			delete(active, taskID)
		}
		for i := nextToLaunch; i < n; i++ {
			if outcomes[i].Status == types.StatusNotStarted {
				outcomes[i] = types.TaskOutcome{TaskID: tasks[i].ID, Status: types.StatusGlobalTimeout}
			}
		}
	}

	// Final cleanup: any process still active here is unexpected (worker
	// crash without a result) -- per spec.md §4.2 edge cases, Killed.
	for _, entry := range active {
		entry.handle.Stop()
		if outcomes[entry.index].Status == types.StatusRunning {
			outcomes[entry.index] = types.TaskOutcome{TaskID: tasks[entry.index].ID, Status: types.StatusKilled}
		}
	}

	// Final sweep: NotStarted -> Cancelled (queued but never reached).
	for i := range outcomes {
		if outcomes[i].Status == types.StatusNotStarted {
			outcomes[i] = types.TaskOutcome{TaskID: tasks[i].ID, Status: types.StatusCancelled}
		}
	}

	return outcomes, durations, nil
}

type resultMsg struct {
	taskID string
	frame  ipc.TaskResultFrame
}

func forward(h Handle, taskID string, out chan<- resultMsg) {
	select {
	case frame := <-h.Result():
		out <- resultMsg{taskID: taskID, frame: frame}
	case <-h.Done():
		// A frame sent before exit is already buffered in Result(). If
		// there is none, the process exited without a result (crash, or a
		// Stop by Run): report it as Killed. Run drops the report if it has
		// already stopped and removed that task.
		select {
		case frame := <-h.Result():
			out <- resultMsg{taskID: taskID, frame: frame}
		default:
			out <- resultMsg{taskID: taskID, frame: ipc.TaskResultFrame{TaskID: taskID, Status: types.StatusKilled, ErrorKind: string(types.StatusKilled)}}
		}
	}
}

func nearestDeadline(active map[string]*activeEntry, tasks []*types.Task, now time.Time, cap time.Duration) time.Duration {
	wait := cap
	for _, entry := range active {
		task := tasks[entry.index]
		deadline := entry.start.Add(task.EffectiveTimeout())
		if left := deadline.Sub(now); left < wait {
			wait = left
		}
	}
	return wait
}

func outcomeFromFrame(frame ipc.TaskResultFrame) types.TaskOutcome {
	return types.TaskOutcome{
		TaskID:           frame.TaskID,
		Status:           frame.Status,
		Payload:          frame.Payload,
		ErrorKind:        frame.ErrorKind,
		ExecutionSeconds: frame.ExecutionSeconds,
	}
}
