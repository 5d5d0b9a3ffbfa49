//go:build linux

package runner

import "golang.org/x/sys/unix"

// AvailableMemoryBytes reports currently available system memory, the
// Go analogue of psutil.virtual_memory().available. Used to compute the
// default --mem_limit (75% of this) when the flag is omitted.
func AvailableMemoryBytes() (int64, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return int64(info.Freeram) * int64(info.Unit), true
}
