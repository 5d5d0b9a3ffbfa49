package cli

import (
	"github.com/urfave/cli/v2"
)

// Flags of the run command (compare defines its own, smaller set),
// grounded on cli/cmd/flags.go's ReadOnlyFlags() grouping of flag
// definitions separate from command wiring.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile", Required: true, Usage: "path to the profile YAML document"},
		&cli.StringFlag{Name: "data", Required: true, Usage: "path to the input CSV dataset"},
		&cli.StringFlag{Name: "delimiter", Value: ",", Usage: "CSV field delimiter"},
		&cli.BoolFlag{Name: "has_header", Value: true, Usage: "treat the first row as a header"},
		&cli.StringFlag{Name: "strategy", Value: "ask", Usage: "recovery strategy: auto_decision, ask, timeout_grow, prune_search, single_run"},
		&cli.IntFlag{Name: "timeout_step", Value: 300, Usage: "seconds added per timeout_grow retry"},
		&cli.IntFlag{Name: "timeout_max", Value: 1800, Usage: "timeout_grow ceiling in seconds"},
		&cli.Float64Flag{Name: "prune_factor", Value: 0.7, Usage: "row fraction kept per shrink_search/auto_decision retry, in (0,1)"},
		&cli.IntFlag{Name: "min_rows", Value: 1000, Usage: "row floor below which a shrunk retry is skipped instead"},
		&cli.BoolFlag{Name: "skip_results_check", Usage: "disable the dedup pass against the history store"},
		&cli.BoolFlag{Name: "no_parallel", Usage: "disable try_parallel on the first iteration"},
		&cli.IntFlag{Name: "mem_limit", Usage: "per-run memory cap in MB (0 or unset means 75% of available memory)"},
		&cli.IntFlag{Name: "workers", Usage: "worker count (0 means all cores)"},
		&cli.StringFlag{Name: "log_level", Value: "info", Usage: "debug, info, warn, or error"},
		&cli.StringFlag{Name: "config", Usage: "path to profiler.yaml"},
		&cli.StringFlag{Name: "storage-backend", Usage: "artifact storage backend: fs or s3 (overrides config)"},
		&cli.StringFlag{Name: "storage-path", Usage: "fs backend root directory (overrides config)"},
		&cli.StringFlag{Name: "storage-bucket", Usage: "s3 backend bucket (overrides config)"},
		&cli.StringFlag{Name: "storage-region", Usage: "s3 backend region (overrides config)"},
		&cli.StringFlag{Name: "webhook_url", Usage: "POST a run-completion event to this URL"},
		&cli.StringFlag{Name: "redis_addr", Usage: "PUBLISH a run-completion event to this Redis URL (redis://host:port)"},
		&cli.StringFlag{Name: "redis_channel", Usage: "Redis channel for run-completion events"},
		&cli.StringFlag{Name: "worker-path", Usage: "path to the profiler-worker binary (defaults to $PATH lookup)"},
	}
}

func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if fromConfig != "" {
		return fromConfig
	}
	return c.String(name)
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if fromConfig != 0 {
		return fromConfig
	}
	return c.Int(name)
}

func resolveFloat(c *cli.Context, name string, fromConfig float64) float64 {
	if c.IsSet(name) {
		return c.Float64(name)
	}
	if fromConfig != 0 {
		return fromConfig
	}
	return c.Float64(name)
}
