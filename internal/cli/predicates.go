package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PredicatesOptions holds flags for the predicates command.
type PredicatesOptions struct {
	*RootOptions
	File string
	Node int
}

// NewPredicatesCommand creates the predicates command.
func NewPredicatesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PredicatesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "predicates [query]",
		Short: "List the predicates known to the endpoint",
		Long: `List every predicate in the endpoint's default and named graphs.

The list is fetched once for the whole tree, from the endpoint of its root.

Examples:
  sparqlayers predicates 'SELECT * WHERE { ?s ?p ?o }'
  sparqlayers predicates --profile wikidata --format json -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredicates(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().IntVarP(&opts.Node, "node", "n", 0, "position of the operator")

	return cmd
}

func runPredicates(opts *PredicatesOptions, args []string, cmd *cobra.Command) error {
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
	n, err := nodeAt(doc, opts.Node)
	if err != nil {
		return err
	}

	predicates, err := s.engine.WithPredicates(cmd.Context(), doc.Tree, n.ID)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeEndpoint, err.Error(), nil, err)
	}

	if f.JSON() {
		return f.Success(predicates)
	}
	for _, p := range predicates {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
