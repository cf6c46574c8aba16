package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	File string
}

// ParseResult is the JSON payload of the parse command.
type ParseResult struct {
	Tree      string         `json:"tree"`
	Nodes     []nodeSummary  `json:"nodes"`
	Fallbacks []fallbackInfo `json:"fallbacks"`
}

type fallbackInfo struct {
	Position int    `json:"position"`
	Tag      string `json:"tag"`
	Reason   string `json:"reason"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Show the algebra tree of a query",
		Long: `Parse a SPARQL query and print its algebra tree, one operator per line.

Forms that have no algebra operator are kept as unit nodes and listed as
fallbacks.

Examples:
  sparqlayers parse 'SELECT * WHERE { ?s ?p ?o FILTER(?o != 0) }'
  sparqlayers parse --file query.rq --format json
  cat query.rq | sparqlayers parse`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")

	return cmd
}

func runParse(opts *ParseOptions, args []string, cmd *cobra.Command) error {
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

	result := ParseResult{
		Tree:      algebra.Format(doc.Tree, doc.Root),
		Nodes:     []nodeSummary{},
		Fallbacks: fallbacks(doc),
	}
	for i, n := range preorder(doc) {
		result.Nodes = append(result.Nodes, summarize(i, n))
	}

	if f.JSON() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprint(w, result.Tree)
	for _, fb := range result.Fallbacks {
		fmt.Fprintf(w, "fallback [%d] %s: %s\n", fb.Position, fb.Tag, fb.Reason)
	}
	return nil
}

// fallbacks reports untranslated forms by pre-order position.
func fallbacks(doc *engine.Document) []fallbackInfo {
	pos := make(map[algebra.NodeID]int)
	for i, n := range preorder(doc) {
		pos[n.ID] = i
	}
	out := []fallbackInfo{}
	for _, fb := range doc.Fallbacks {
		p, ok := pos[fb.Node]
		if !ok {
			p = -1
		}
		out = append(out, fallbackInfo{Position: p, Tag: fb.Tag, Reason: fb.Reason})
	}
	return out
}
