package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// BGPOptions holds flags for the bgp command.
type BGPOptions struct {
	*RootOptions
	File    string
	Node    int
	Add     []string
	Remove  []string
	Renames []string // predicate=dimension
}

// BGPResult is the JSON payload of the bgp command.
type BGPResult struct {
	Position   int      `json:"position"`
	Dimensions []string `json:"dimensions"`
	Query      string   `json:"query"`
	Root       string   `json:"root"`
}

// NewBGPCommand creates the bgp command.
func NewBGPCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BGPOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bgp [query]",
		Short: "Edit the predicates of a basic graph pattern",
		Long: `Include, exclude or rename predicates of a basic graph pattern and print
the resulting queries.

Edits apply in order: --add, then --remove, then --rename. Added predicates
are bound to a fresh variable named after the IRI's last segment.

Examples:
  sparqlayers bgp --add http://xmlns.com/foaf/0.1/name 'SELECT * WHERE { ?s a ?type }'
  sparqlayers bgp --node 1 --rename http://xmlns.com/foaf/0.1/name=label --file query.rq`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBGP(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().IntVarP(&opts.Node, "node", "n", 0, "position of the basic graph pattern")
	cmd.Flags().StringSliceVar(&opts.Add, "add", nil, "predicate IRI to include")
	cmd.Flags().StringSliceVar(&opts.Remove, "remove", nil, "predicate IRI to exclude")
	cmd.Flags().StringSliceVar(&opts.Renames, "rename", nil, "predicate IRI=dimension to rename")

	return cmd
}

func runBGP(opts *BGPOptions, args []string, cmd *cobra.Command) error {
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

	tree := doc.Tree
	edit := func(what string, err error) error {
		if err == nil {
			return nil
		}
		return f.Fail(ExitFailure, ErrCodeBGPEdit, fmt.Sprintf("%s: %v", what, err), nil, err)
	}
	for _, p := range opts.Add {
		if err := edit("add "+p, tree.SetPredicateState(n.ID, rdf.NewNamedNode(p), true)); err != nil {
			return err
		}
	}
	for _, p := range opts.Remove {
		if err := edit("remove "+p, tree.SetPredicateState(n.ID, rdf.NewNamedNode(p), false)); err != nil {
			return err
		}
	}
	for _, r := range opts.Renames {
		// The dimension never contains '=', the IRI might.
		i := strings.LastIndex(r, "=")
		if i <= 0 || i == len(r)-1 {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --rename %q: want predicate=dimension", r))
		}
		predicate, dim := r[:i], r[i+1:]
		if err := edit("rename "+predicate, tree.SetPredicateDimension(n.ID, rdf.NewNamedNode(predicate), dim)); err != nil {
			return err
		}
	}

	query, err := tree.Expression(n.ID)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "render query", nil, err)
	}
	root, err := tree.Expression(doc.Root)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeGeneric, "render query", nil, err)
	}
	result := BGPResult{
		Position:   opts.Node,
		Dimensions: append([]string{}, n.Dimensions...),
		Query:      query,
		Root:       root,
	}

	if f.JSON() {
		return f.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprint(w, algebra.Format(tree, doc.Root))
	fmt.Fprintln(w)
	fmt.Fprintln(w, root)
	return nil
}
