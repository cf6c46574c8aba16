package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	File   string
	Node   int
	All    bool
	Record bool
}

// ExecResult is the outcome of executing one operator.
type ExecResult struct {
	Position int          `json:"position"`
	Kind     algebra.Kind `json:"kind"`
	Query    string       `json:"query"`
	Seq      int64        `json:"seq"`
	Status   string       `json:"status"`
	Data     any          `json:"data,omitempty"`
	Error    string       `json:"error,omitempty"`
	text     string
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec [query]",
		Short: "Run an operator against the endpoint",
		Long: `Execute the standalone query of one operator (the root by default) against
the profile's endpoint and print the response.

With --all every operator runs concurrently, bounded by the config's
parallelism. With --record every execution is appended to the store's
execution log (see 'sparqlayers history').

Examples:
  sparqlayers exec 'SELECT * WHERE { ?s ?p ?o } LIMIT 10'
  sparqlayers exec --node 1 --file query.rq --profile wikidata
  sparqlayers exec --all --record --file query.rq --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().IntVarP(&opts.Node, "node", "n", 0, "position of the operator to execute")
	cmd.Flags().BoolVar(&opts.All, "all", false, "execute every operator")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "append executions to the store")

	return cmd
}

func runExec(opts *ExecOptions, args []string, cmd *cobra.Command) error {
	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts.RootOptions, cmd, opts.Record)
	if err != nil {
		return err
	}
	defer s.Close()

	f := newFormatter(opts.RootOptions, cmd)
	doc, err := loadDocument(f, s, text)
	if err != nil {
		return err
	}

	if opts.All {
		return execAll(ctx, f, s, doc)
	}

	n, err := nodeAt(doc, opts.Node)
	if err != nil {
		return err
	}
	f.VerboseLog("executing [%d] %s against %s", opts.Node, n.Kind(), s.profile.Location)
	resp, execErr := s.engine.Execute(ctx, doc.Tree, n.ID, algebra.Connection{})
	result := execResult(doc, opts.Node, n, resp, execErr)

	if execErr != nil {
		return f.Fail(ExitFailure, ErrCodeEndpoint, execErr.Error(), result, execErr)
	}
	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.text)
	return nil
}

func execAll(ctx context.Context, f *OutputFormatter, s *session, doc *engine.Document) error {
	execErr := s.engine.ExecuteTree(ctx, doc.Tree, doc.Root)

	results := []ExecResult{}
	failed := 0
	for i, n := range preorder(doc) {
		resp, ok := n.Response()
		var err error
		switch {
		case !ok:
			err = fmt.Errorf("no response")
		case resp.Err != nil:
			err = resp.Err
		}
		r := execResult(doc, i, n, resp, err)
		if r.Status != "ok" {
			failed++
		}
		results = append(results, r)
	}

	if f.JSON() {
		if failed > 0 {
			return f.Fail(ExitFailure, ErrCodeEndpoint, fmt.Sprintf("%d operator(s) failed", failed), results, execErr)
		}
		return f.Success(results)
	}

	for _, r := range results {
		if r.Status == "ok" {
			fmt.Fprintf(f.Writer, "✓ [%d] %s (%d bytes)\n", r.Position, r.Kind, len(r.text))
		} else {
			fmt.Fprintf(f.Writer, "✗ [%d] %s: %s\n", r.Position, r.Kind, r.Error)
		}
	}
	if failed > 0 {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d operator(s) failed", failed), execErr)
	}
	return nil
}

func execResult(doc *engine.Document, pos int, n *algebra.Node, resp algebra.Response, err error) ExecResult {
	expr, _ := doc.Tree.Expression(n.ID)
	r := ExecResult{
		Position: pos,
		Kind:     n.Kind(),
		Query:    expr,
		Seq:      resp.Seq,
		Status:   "ok",
		Data:     resp.Object,
		text:     resp.Text,
	}
	if err != nil {
		r.Status = "error"
		r.Error = err.Error()
		r.Data = nil
	}
	return r
}
