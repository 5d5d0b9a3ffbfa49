package cli

import "github.com/justapithecus/profiler/internal/runner"

// defaultMemoryPercent mirrors util.py's DEFAULT_MEMORY_PERCENT: the
// fraction of currently available system memory used as the default
// --mem_limit when the flag (and config) leave it unset.
const defaultMemoryPercent = 0.75

// resolveMemLimitBytes converts the resolved --mem_limit (in MB) to
// bytes, or, if it is zero, falls back to defaultMemoryPercent of
// currently available system memory, per util.py's
// get_correct_bytes_mem_limit/get_percent_of_available_memory. A zero
// mem_limit must never mean "uncapped": it means "not given."
func resolveMemLimitBytes(memLimitMB int) int64 {
	if memLimitMB != 0 {
		return int64(memLimitMB) * 1024 * 1024
	}
	available, ok := runner.AvailableMemoryBytes()
	if !ok {
		return 0
	}
	return int64(float64(available) * defaultMemoryPercent)
}
