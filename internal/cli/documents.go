package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/store"
)

// DocumentOptions holds flags for the doc commands.
type DocumentOptions struct {
	*RootOptions
	File     string
	Location string
	Node     int
}

// NewDocumentCommand creates the doc command and its subcommands.
func NewDocumentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DocumentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage saved queries",
		Long: `Save, list, show, delete and execute named queries kept in the store.

Examples:
  sparqlayers doc save people 'SELECT * WHERE { ?s a <http://xmlns.com/foaf/0.1/Person> }'
  sparqlayers doc list
  sparqlayers doc exec people --node 0`,
	}

	save := &cobra.Command{
		Use:           "save <name> [query]",
		Short:         "Save a query under a name",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocSave(opts, args[0], args[1:], cmd)
		},
	}
	save.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	save.Flags().StringVar(&opts.Location, "location", "", "endpoint bound to the document (default: profile location)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List saved queries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocList(opts, cmd)
		},
	}

	show := &cobra.Command{
		Use:           "show <name>",
		Short:         "Print a saved query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocShow(opts, args[0], cmd)
		},
	}

	rm := &cobra.Command{
		Use:           "rm <name>",
		Short:         "Delete a saved query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocRemove(opts, args[0], cmd)
		},
	}

	exec := &cobra.Command{
		Use:           "exec <name>",
		Short:         "Execute an operator of a saved query and record it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocExec(opts, args[0], cmd)
		},
	}
	exec.Flags().IntVarP(&opts.Node, "node", "n", 0, "position of the operator to execute")

	cmd.AddCommand(save, list, show, rm, exec)
	return cmd
}

func runDocSave(opts *DocumentOptions, name string, args []string, cmd *cobra.Command) error {
	text, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	f := newFormatter(opts.RootOptions, cmd)
	if _, err := loadDocument(f, s, text); err != nil {
		return err
	}

	conn := s.profile.Connection()
	if opts.Location != "" {
		conn = algebra.Connection{Location: opts.Location}
	}
	doc := store.Document{Name: name, Text: text, Connection: conn}
	doc.Revision, err = s.store.SaveDocument(cmd.Context(), doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save document", err)
	}

	if f.JSON() {
		return f.Success(doc)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ saved %s (revision %d)\n", doc.Name, doc.Revision)
	return nil
}

func runDocList(opts *DocumentOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.store.ListDocuments(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list documents", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(docs)
	}
	w := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s\trev %d\t%s\n", d.Name, d.Revision, d.Connection.Location)
	}
	return nil
}

// loadStored fetches a document, reporting a missing one through f.
func loadStored(f *OutputFormatter, s *session, cmd *cobra.Command, name string) (store.Document, error) {
	doc, err := s.store.LoadDocument(cmd.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return doc, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no document named %q", name), nil, err)
	}
	if err != nil {
		return doc, WrapExitError(ExitCommandError, "failed to load document", err)
	}
	return doc, nil
}

func runDocShow(opts *DocumentOptions, name string, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	f := newFormatter(opts.RootOptions, cmd)
	doc, err := loadStored(f, s, cmd, name)
	if err != nil {
		return err
	}
	if f.JSON() {
		return f.Success(doc)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "# %s (revision %d) @ %s\n", doc.Name, doc.Revision, doc.Connection.Location)
	fmt.Fprintln(w, doc.Text)
	return nil
}

func runDocRemove(opts *DocumentOptions, name string, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	f := newFormatter(opts.RootOptions, cmd)
	err = s.store.DeleteDocument(cmd.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no document named %q", name), nil, err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete document", err)
	}
	if f.JSON() {
		return f.Success(map[string]string{"deleted": name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ deleted %s\n", name)
	return nil
}

func runDocExec(opts *DocumentOptions, name string, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	f := newFormatter(opts.RootOptions, cmd)
	stored, err := loadStored(f, s, cmd, name)
	if err != nil {
		return err
	}
	doc, err := s.engine.Load(stored.Text, stored.Connection)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeParse, err.Error(), nil, err)
	}
	n, err := nodeAt(doc, opts.Node)
	if err != nil {
		return err
	}

	resp, execErr := s.engine.Execute(cmd.Context(), doc.Tree, n.ID, algebra.Connection{})
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
