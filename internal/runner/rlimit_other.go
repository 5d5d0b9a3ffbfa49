//go:build !unix

package runner

// SetMemoryLimit is a no-op on platforms without an RLIMIT_AS
// equivalent. Per spec.md §4.1 and Design Notes' portability note, the
// caller must log the degradation and proceed uncapped rather than fail.
func SetMemoryLimit(bytes int64) error {
	return nil
}

// MemoryLimitSupported reports whether this platform can enforce an
// address-space rlimit.
const MemoryLimitSupported = false
