package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all run flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "surgefire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Sources
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.StringP("preset", "p", "", "Built-in configuration to start from (smoke, load, stress)")

	// Target
	flags.String("base-url", "", "Base URL every request path is resolved against")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")

	// Run control
	flags.Duration("max-duration", 0, "Stop injecting users after this long (0 means run until every user finishes)")
	flags.Duration("grace-period", DefaultGracePeriod, "Max time in-flight requests may take after max-duration")
	flags.Float64("throttle-rps", 0, "Global request rate cap across all users (0 means unlimited)")
	flags.Int("throttle-burst", 1, "Requests allowed to exceed the throttle rate at once")
	flags.Uint64("seed", 0, "Seed for random pauses and generators (0 derives one from the run ID)")
	flags.Duration("overrun-tolerance", DefaultOverrunTolerance, "Spawn lag beyond which a schedule overrun is recorded")
	flags.String("overrun-policy", string(OverrunWarn), "What a schedule overrun does to the verdict: warn or fail")
	flags.StringSlice("assert", nil, "Assertion such as 'global.response_time.max < 5000' (repeatable, replaces configured assertions)")

	// Output
	flags.String("report-format", string(ReportText), "Final report format: text, json, yaml or html")
	flags.StringP("output", "o", "", "Write the final report to this file instead of stdout")
	flags.Duration("progress", 0, "Print a progress line at this interval (0 disables)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log encoding: console or json")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS to the OTLP endpoint")
	flags.Bool("tracing-propagate", true, "Inject W3C trace context headers into requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from presets and the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("base-url") {
		val, err := fs.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}
	if err := overrideDuration(fs, "timeout", &cfg.Timeout); err != nil {
		return err
	}
	if err := overrideDuration(fs, "max-duration", &cfg.MaxDuration); err != nil {
		return err
	}
	if err := overrideDuration(fs, "grace-period", &cfg.GracePeriod); err != nil {
		return err
	}
	if fs.Changed("throttle-rps") {
		val, err := fs.GetFloat64("throttle-rps")
		if err != nil {
			return err
		}
		cfg.ThrottleRPS = val
	}
	if fs.Changed("throttle-burst") {
		val, err := fs.GetInt("throttle-burst")
		if err != nil {
			return err
		}
		cfg.ThrottleBurst = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetUint64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if err := overrideDuration(fs, "overrun-tolerance", &cfg.Overrun.Tolerance); err != nil {
		return err
	}
	if fs.Changed("overrun-policy") {
		val, err := fs.GetString("overrun-policy")
		if err != nil {
			return err
		}
		cfg.Overrun.Policy = OverrunPolicy(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("assert") {
		val, err := fs.GetStringSlice("assert")
		if err != nil {
			return err
		}
		cfg.Assertions = val
	}

	if fs.Changed("report-format") {
		val, err := fs.GetString("report-format")
		if err != nil {
			return err
		}
		cfg.Report.Format = ReportFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Report.File = strings.TrimSpace(val)
	}
	if err := overrideDuration(fs, "progress", &cfg.Progress); err != nil {
		return err
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = val
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.Log.Format = val
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}

func overrideDuration(fs *pflag.FlagSet, name string, dst *time.Duration) error {
	if !fs.Changed(name) {
		return nil
	}
	val, err := fs.GetDuration(name)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
