package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strand/internal/demo"
	"github.com/roach88/strand/internal/harness"
)

// scenarioOutcome is the per-scenario report.
type scenarioOutcome struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scenario <scenario.yaml>...",
		Short:         "Run conformance scenarios against the counter model",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, cmd, args)
		},
	}

	return cmd
}

func runScenario(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	outcomes := make([]scenarioOutcome, 0, len(paths))
	failed := 0

	for _, path := range paths {
		sc, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}

		formatter.VerboseLog("running %s (%s)", sc.Name, path)

		res, err := harness.Run(sc, demo.Binding())
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", sc.Name), err)
		}

		if !res.Pass {
			failed++
		}
		outcomes = append(outcomes, scenarioOutcome{
			Name:   sc.Name,
			File:   path,
			Pass:   res.Pass,
			Errors: res.Errors,
		})
	}

	if opts.Format == "json" {
		if err := formatter.Success(outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			status := "PASS"
			if !o.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(formatter.Writer, "%s  %s (%s)\n", status, o.Name, o.File)
			for _, e := range o.Errors {
				fmt.Fprintf(formatter.Writer, "      %s\n", e)
			}
		}
		fmt.Fprintf(formatter.Writer, "%d passed, %d failed\n", len(outcomes)-failed, failed)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}
