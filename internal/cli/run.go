package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/strand/internal/demo"
	"github.com/roach88/strand/internal/engine"
	"github.com/roach88/strand/internal/harness"
	"github.com/roach88/strand/internal/journal"
)

// runResult is the final state summary printed by run and replay.
type runResult struct {
	Count  int  `json:"count"`
	Loaded bool `json:"loaded"`
}

func (r runResult) String() string {
	return fmt.Sprintf("count=%d loaded=%t", r.Count, r.Loaded)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var journalPath string

	cmd := &cobra.Command{
		Use:   "run <input>...",
		Short: "Feed inputs through the counter model",
		Long: `Run the counter model over a sequence of inputs and print the final state.

Inputs: "+" increments, "-" decrements, "load" fetches persisted state,
"reset" clears the counter. With --journal, every reduced action and state
snapshot is appended to a SQLite trace journal for later inspection.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, cmd, args, journalPath)
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "append the trace to this SQLite journal")

	return cmd
}

func runRun(opts *RootOptions, cmd *cobra.Command, inputs []string, journalPath string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	for _, in := range inputs {
		if demo.Transform(in) == nil {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("unknown input %q", in),
				fmt.Errorf(`expected one of "+", "-", "load", "reset"`))
		}
	}

	modelOpts := []demo.Option{
		engine.WithLogger[demo.State, string, demo.Action, demo.CancelID](commandLogger(opts, cmd)),
	}

	if journalPath != "" {
		j, err := journal.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		modelOpts = append(modelOpts,
			engine.WithObserver[demo.State, string, demo.Action, demo.CancelID](
				journal.Recorder(j, demo.Codec(), commandLogger(opts, cmd)),
			),
		)
	}

	m := demo.New(modelOpts...)
	defer m.Shutdown()

	p := harness.Attach(m)
	defer p.Detach()

	for _, in := range inputs {
		formatter.VerboseLog("sending %q", in)
		p.Send(in)
	}

	if err := p.WaitIdle(5 * time.Second); err != nil {
		return WrapExitError(ExitFailure, "model did not settle", err)
	}

	s := p.State()
	return formatter.Success(runResult{Count: s.Count, Loaded: s.Loaded})
}
