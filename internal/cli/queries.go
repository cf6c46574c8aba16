package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
)

// QueriesOptions holds flags for the queries command.
type QueriesOptions struct {
	*RootOptions
	File string
	Node int
}

// NewQueriesCommand creates the queries command.
func NewQueriesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueriesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queries [query]",
		Short: "Print the standalone query of every operator",
		Long: `Print the query each operator of the algebra tree sends on its own.

Operators are listed root first, then their source, child and complement
subtrees. The [n] position is what --node refers to in other commands.

Examples:
  sparqlayers queries 'SELECT * WHERE { ?s ?p ?o OPTIONAL { ?s ?q ?v } }'
  sparqlayers queries --node 2 --file query.rq`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().IntVarP(&opts.Node, "node", "n", -1, "only print the operator at this position")

	return cmd
}

func runQueries(opts *QueriesOptions, args []string, cmd *cobra.Command) error {
	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	f := newFormatter(opts.RootOptions, cmd)
	doc, err := loadDocument(f, s, text)
	if err != nil {
		return err
	}

	nodes := preorder(doc)
	if opts.Node >= 0 {
		n, err := nodeAt(doc, opts.Node)
		if err != nil {
			return err
		}
		nodes = []*algebra.Node{n}
	}

	summaries := make([]nodeSummary, 0, len(nodes))
	for _, n := range nodes {
		pos := opts.Node
		if pos < 0 {
			pos = len(summaries)
		}
		expr, err := doc.Tree.Expression(n.ID)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, fmt.Sprintf("render node %d", pos), nil, err)
		}
		sum := summarize(pos, n)
		sum.Query = expr
		summaries = append(summaries, sum)
	}

	if f.JSON() {
		return f.Success(summaries)
	}

	w := cmd.OutOrStdout()
	for i, sum := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, header(sum.Position, nodes[i]))
		fmt.Fprintln(w, sum.Query)
	}
	return nil
}
