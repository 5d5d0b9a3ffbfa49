// Command profiler-worker is the isolated task runner's child process.
// It reads one WorkerInput JSON document from stdin, instantiates the
// named algorithm from the registry, runs it against the supplied
// table, and emits exactly one length-prefixed msgpack TaskResultFrame
// on stdout before exiting. Per spec.md §4.1, algorithm failures are
// classified here and never cross the process boundary as a panic or a
// non-zero exit that the parent must interpret; only an unreadable task
// input or an unwritable result frame makes the worker exit with status 1.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/justapithecus/profiler/internal/ipc"
	"github.com/justapithecus/profiler/internal/registry"
	"github.com/justapithecus/profiler/internal/runner"
	"github.com/justapithecus/profiler/internal/types"
)

func main() {
	family := flag.String("family", "", "primitive family")
	algorithm := flag.String("algorithm", "", "algorithm name")
	memLimitBytes := flag.Int64("mem-limit-bytes", 0, "process-local virtual memory cap in bytes; 0 disables the cap")
	flag.Parse()

	if *memLimitBytes > 0 {
		if err := runner.SetMemoryLimit(*memLimitBytes); err != nil {
			fmt.Fprintf(os.Stderr, "profiler-worker: memory cap unsupported, proceeding uncapped: %v\n", err)
		}
	} else if !runner.MemoryLimitSupported {
		fmt.Fprintln(os.Stderr, "profiler-worker: platform does not support a memory cap, proceeding uncapped")
	}

	var input ipc.WorkerInput
	if err := json.NewDecoder(os.Stdin).Decode(&input); err != nil {
		fmt.Fprintf(os.Stderr, "profiler-worker: failed to read task input: %v\n", err)
		os.Exit(1)
	}
	if input.Family == "" {
		input.Family = types.Family(*family)
	}
	if input.Algorithm == "" {
		input.Algorithm = *algorithm
	}

	result := run(input)

	frame, err := ipc.EncodeResult(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profiler-worker: failed to encode result: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stdout.Write(frame); err != nil {
		fmt.Fprintf(os.Stderr, "profiler-worker: failed to write result: %v\n", err)
		os.Exit(1)
	}
}

// run executes one task's algorithm end to end, recovering from any
// panic and classifying it the way spec.md §4.1 requires: an allocation
// failure becomes MemoryError, anything else becomes Error carrying the
// Go type name of what was recovered.
func run(input ipc.WorkerInput) (result *ipc.TaskResultFrame) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = &ipc.TaskResultFrame{
				TaskID:           input.TaskID,
				ExecutionSeconds: time.Since(start).Seconds(),
			}
			if isOutOfMemory(r) {
				result.Status = types.StatusMemoryError
				result.ErrorKind = "MemoryError"
			} else {
				result.Status = types.StatusError
				result.ErrorKind = fmt.Sprintf("%T", r)
			}
		}
	}()

	alg, err := registry.New(input.Family, input.Algorithm)
	if err != nil {
		return &ipc.TaskResultFrame{
			TaskID:           input.TaskID,
			Status:           types.StatusStartingFailure,
			ErrorKind:        err.Error(),
			ExecutionSeconds: time.Since(start).Seconds(),
		}
	}

	table := &types.Table{Header: input.Header, Rows: input.Rows}
	if err := alg.Load(table); err != nil {
		return &ipc.TaskResultFrame{
			TaskID:           input.TaskID,
			Status:           types.StatusError,
			ErrorKind:        err.Error(),
			ExecutionSeconds: time.Since(start).Seconds(),
		}
	}

	if err := alg.Execute(input.Params); err != nil {
		return &ipc.TaskResultFrame{
			TaskID:           input.TaskID,
			Status:           classifyError(err),
			ErrorKind:        err.Error(),
			ExecutionSeconds: time.Since(start).Seconds(),
		}
	}

	payload, err := alg.Results()
	if err != nil {
		return &ipc.TaskResultFrame{
			TaskID:           input.TaskID,
			Status:           types.StatusError,
			ErrorKind:        err.Error(),
			ExecutionSeconds: time.Since(start).Seconds(),
		}
	}

	return &ipc.TaskResultFrame{
		TaskID:           input.TaskID,
		Status:           types.StatusSuccess,
		Payload:          payload,
		ExecutionSeconds: time.Since(start).Seconds(),
	}
}

// classifyError inspects a returned (not panicked) error for an
// out-of-memory signal, matching the panic path's classification.
func classifyError(err error) types.Status {
	if isOutOfMemory(err) {
		return types.StatusMemoryError
	}
	return types.StatusError
}

// isOutOfMemory reports whether v (a recovered panic value or a
// returned error) looks like an allocation failure. Go has no portable
// OOM exception type, so this matches on message content: both the
// runtime's own "out of memory" panic text and the stand-in algorithms'
// explicit sentinel ("memory limit exceeded") land here.
func isOutOfMemory(v any) bool {
	var msg string
	switch e := v.(type) {
	case error:
		msg = e.Error()
	case string:
		msg = e
	default:
		msg = fmt.Sprintf("%v", e)
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "out of memory") || strings.Contains(lower, "memory limit") || strings.Contains(lower, "cannot allocate")
}
