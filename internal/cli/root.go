package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/protocol"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to the YAML config file
	Profile string // endpoint profile name
	Store   string // overrides the config's store path

	// Transport allows overriding the endpoint transport (for testing).
	// If nil, commands build an HTTP transport from the config.
	Transport protocol.Transport

	// Getenv allows overriding environment lookup (for testing).
	// If nil, os.Getenv is used.
	Getenv func(string) string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sparqlayers CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparqlayers",
		Short: "sparqlayers - SPARQL queries as editable algebra trees",
		Long: `Parse SPARQL queries into algebra trees, inspect and edit each operator,
and run every operator as a standalone query against a SPARQL endpoint.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVarP(&opts.Profile, "profile", "p", "", "endpoint profile (default: config default_profile)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "path to SQLite store (default: config store)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewQueriesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewPredicatesCommand(opts))
	cmd.AddCommand(NewBGPCommand(opts))
	cmd.AddCommand(NewDocumentCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}
