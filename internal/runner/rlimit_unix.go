//go:build unix

package runner

import "golang.org/x/sys/unix"

// SetMemoryLimit imposes a process-local virtual memory (address space)
// cap, per spec.md §4.1: "imposes a process-local virtual memory cap
// equal to memory_cap_bytes on platforms that support it." Called once,
// at worker startup, before the algorithm is loaded.
func SetMemoryLimit(bytes int64) error {
	limit := unix.Rlimit{Cur: uint64(bytes), Max: uint64(bytes)}
	return unix.Setrlimit(unix.RLIMIT_AS, &limit)
}

// MemoryLimitSupported reports whether this platform can enforce an
// address-space rlimit.
const MemoryLimitSupported = true
