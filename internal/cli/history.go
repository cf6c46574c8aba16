package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	NodeKey string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the execution log",
		Long: `Show recorded executions from the store, oldest first.

Executions are recorded by 'exec --record', 'doc exec' and the HTTP server.
--limit keeps the most recent entries.

Examples:
  sparqlayers history --limit 20
  sparqlayers history --node 0190a1b2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.NodeKey, "node", "", "only show executions of this node key")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum number of executions (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	history, err := s.store.History(cmd.Context(), opts.NodeKey, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read execution log", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(history)
	}

	w := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintln(w, "No executions recorded.")
		return nil
	}
	for _, ex := range history {
		status := "✓"
		if ex.Status != "ok" {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %d %s %s %s (%d bytes)\n", status, ex.Seq, ex.Kind, ex.NodeKey, ex.Location, ex.Bytes)
		if ex.Error != "" {
			fmt.Fprintf(w, "  %s\n", ex.Error)
		}
		if opts.Verbose {
			fmt.Fprintf(w, "  %s\n", ex.Query)
		}
	}
	return nil
}
