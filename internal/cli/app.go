// Package cli wires the profiler's command surface: run and compare,
// grounded on cmd/quarry/main.go's cli.App/ExitErrHandler shape and
// cli/cmd/run.go's flag-precedence and signal-handling idioms.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time via -ldflags, matching the teacher's
// cmd/quarry/main.go convention.
var Version = "dev"

// App builds the top-level CLI application.
func App() *cli.App {
	return &cli.App{
		Name:            "profiler",
		Usage:           "data profiling orchestrator: mine functional dependencies and related primitives from tabular data",
		Version:         Version,
		ExitErrHandler:  exitErrHandler,
		Commands: []*cli.Command{
			RunCommand(),
			CompareCommand(),
		},
	}
}

// exitErrHandler preserves a cli.ExitCoder's exit code while
// suppressing urfave/cli's redundant "exit status N" line for errors
// that already carry a user-facing message.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitScriptError)
}
