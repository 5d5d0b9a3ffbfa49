// Package main provides the profiler CLI entrypoint.
//
// Usage:
//
//	profiler run --profile <path> --data <path> [options]
//	profiler compare subset --profile <path> --baseline <path> --target <path>
//	profiler compare version --profile <path> --baseline <path> --target <path>
//
// Exit code is 0 on a completed control loop (individual task failures
// included); non-zero only on unrecoverable setup errors.
package main

import (
	"os"

	"github.com/justapithecus/profiler/internal/cli"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	cli.Version = version
	app := cli.App()
	if err := app.Run(os.Args); err != nil {
		// exitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}
