// Package runner implements the Isolated Task Runner (component C):
// spawning one task in a fresh OS process under a memory cap and a
// wall-clock deadline, with forced termination on request.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/justapithecus/profiler/internal/ipc"
	"github.com/justapithecus/profiler/internal/log"
	"github.com/justapithecus/profiler/internal/types"
)

// GracePeriod is how long Stop waits between SIGTERM and SIGKILL,
// mirroring the original's terminate_process "short grace period."
const GracePeriod = 3 * time.Second

// Handle is a running (or just-finished) isolated task process.
type Handle struct {
	Task     *types.Task
	StartedAt time.Time

	cmd    *exec.Cmd
	stdout io.ReadCloser

	result chan ipc.TaskResultFrame
	done   chan struct{}
	log    *log.Logger
}

// Config parameterizes a Runner.
type Config struct {
	// WorkerPath is the path to the cmd/profiler-worker binary.
	WorkerPath string
	Logger     *log.Logger
}

// Runner spawns isolated task processes.
type Runner struct {
	cfg Config
}

// New constructs a Runner.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Start launches task in a fresh process with the given per-task memory
// cap (bytes) and thread hint (vertical parallelism inside the task, per
// spec.md §4.2). The returned Handle's result channel receives exactly
// one frame when the worker completes normally.
func (r *Runner) Start(ctx context.Context, task *types.Task, memCapBytes int64, threads int) (*Handle, error) {
	cmd := exec.CommandContext(ctx, r.cfg.WorkerPath,
		"--family", string(task.Family),
		"--algorithm", task.Algorithm,
		"--mem-limit-bytes", strconv.FormatInt(memCapBytes, 10),
	)
	// New process group so Stop can signal every descendant, not just the
	// direct child (spec.md Design Notes: "native algorithms may spawn
	// helper threads/processes").
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("runner: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runner: stdout pipe: %w", err)
	}

	params := task.Params
	if params == nil {
		params = map[string]any{}
	}
	params["threads"] = threads

	input := ipc.WorkerInput{
		TaskID:    task.ID,
		Family:    task.Family,
		Algorithm: task.Algorithm,
		Params:    params,
	}
	if task.Table != nil {
		input.Header = task.Table.Header
		input.Rows = task.Table.Rows
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("runner: start: %w", err)
	}

	if err := json.NewEncoder(stdin).Encode(input); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("runner: write worker input: %w", err)
	}
	_ = stdin.Close()

	h := &Handle{
		Task:      task,
		StartedAt: time.Now(),
		cmd:       cmd,
		stdout:    stdout,
		result:    make(chan ipc.TaskResultFrame, 1),
		done:      make(chan struct{}),
		log:       r.cfg.Logger,
	}
	go h.readAndWait()
	return h, nil
}

// readAndWait decodes the one result frame (if any) off stdout, then
// waits for process exit, and closes done. Runs in its own goroutine so
// the Scheduler can select on Handle.Result()/Done() without blocking.
func (h *Handle) readAndWait() {
	defer close(h.done)

	decoder := ipc.NewFrameDecoder(h.stdout)
	frame, err := decoder.ReadResult()
	if err == nil {
		h.result <- *frame
	} else if h.log != nil && err != io.EOF {
		h.log.Sugar().Warnw("worker produced no result frame", "task_id", h.Task.ID, "error", err)
	}

	_ = h.cmd.Wait()
}

// Result returns the channel that receives the worker's one result
// frame, if it produced one before exiting.
func (h *Handle) Result() <-chan ipc.TaskResultFrame {
	return h.result
}

// Done returns a channel closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop forcibly terminates the task's process group: SIGTERM, a grace
// period, then SIGKILL, matching the original's terminate_process and
// spec.md §4.1's "enumerate descendant processes ... terminate ...
// forcibly kill any still alive."
func (h *Handle) Stop() {
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	pgid := h.cmd.Process.Pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-h.done:
		return
	case <-time.After(GracePeriod):
	}

	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	<-h.done
}

// PID returns the worker process's PID, or 0 if not started.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}
