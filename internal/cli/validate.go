package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strand/internal/harness"
)

// fileIssue is one validation failure, keyed by file.
type fileIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files against the schema and the structural
rules (required fields, one input per step). Faster feedback than running
the scenarios.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, paths []string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var issues []fileIssue
	for _, path := range paths {
		formatter.VerboseLog("validating %s", path)

		if err := harness.ValidateScenarioFile(path); err != nil {
			issues = append(issues, fileIssue{File: path, Message: err.Error()})
			continue
		}
		if _, err := harness.LoadScenario(path); err != nil {
			issues = append(issues, fileIssue{File: path, Message: err.Error()})
		}
	}

	if len(issues) > 0 {
		if err := formatter.Error("E_VALIDATE",
			fmt.Sprintf("%d of %d scenario file(s) invalid", len(issues), len(paths)),
			issues,
		); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "validation failed")
	}

	return formatter.Success(fmt.Sprintf("%d scenario file(s) valid", len(paths)))
}
