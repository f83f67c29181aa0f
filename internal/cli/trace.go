package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strand/internal/journal"
	"github.com/roach88/strand/internal/trace"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string
	var token string

	cmd := &cobra.Command{
		Use:           "trace <journal.db>",
		Short:         "Dump the events recorded in a trace journal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, cmd, args[0], kind, token)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only events of this kind (action|state|effect|error)")
	cmd.Flags().StringVar(&token, "token", "", "only events for this perform token")

	return cmd
}

func runTrace(opts *RootOptions, cmd *cobra.Command, path, kind, token string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	var events []trace.Event
	switch {
	case kind != "":
		events, err = j.ReadKind(ctx, kind)
	case token != "":
		events, err = j.ReadToken(ctx, token)
	default:
		events, err = j.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	formatter.VerboseLog("read %d event(s) from %s", len(events), path)

	if opts.Format == "json" {
		objects := make([]trace.Object, len(events))
		for i, e := range events {
			objects[i] = e.Object()
		}
		return formatter.Success(objects)
	}

	for _, e := range events {
		line := fmt.Sprintf("%06d  %-7s %s", e.Seq, e.Kind, e.Name)
		if e.Token != "" {
			line += fmt.Sprintf("  token=%s", e.Token)
		}
		if len(e.Detail) > 0 {
			if b, err := trace.MarshalCanonical(e.Detail); err == nil {
				line += fmt.Sprintf("  %s", b)
			}
		}
		fmt.Fprintln(formatter.Writer, line)
	}

	return nil
}
