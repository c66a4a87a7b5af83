package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/presets"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "surgefire",
		Short:         "Scenario-driven HTTP load testing",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newRunCommand(stdout, stderr), newValidateCommand(stdout), newPresetsCommand(stdout))
	return root
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inject virtual users and evaluate assertions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().LoadFlags(cmd.Flags())
			if err != nil {
				return err
			}
			report, err := execute(cmd.Context(), cfg, stdout, stderr)
			if err != nil {
				return err
			}
			if !report.Pass() {
				return fmt.Errorf("run failed: %d assertion violation(s)", len(report.Result.Violations))
			}
			return nil
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func newValidateCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration and print the plan it compiles to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().LoadFlags(cmd.Flags())
			if err != nil {
				return err
			}
			plan, err := cfg.Build()
			if err != nil {
				return err
			}
			defer plan.Close()
			describePlan(stdout, plan)
			return nil
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

func newPresetsCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in configurations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			all, err := presets.All()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				return errors.New("no presets available")
			}
			for _, p := range all {
				fmt.Fprintf(stdout, "%-8s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}
