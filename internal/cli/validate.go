package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	File       string
	ConfigOnly bool
}

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Config    string `json:"config"`
	Profile   string `json:"profile"`
	Location  string `json:"location"`
	Operators int    `json:"operators,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [query]",
		Short: "Check the config and a query",
		Long: `Validate the configuration file against its schema, then check that the
query parses and that every form translates to an algebra operator.

Exit codes:
  0 - Config and query are valid
  1 - Query does not parse or has untranslatable forms
  2 - Config is invalid

Examples:
  sparqlayers validate --config sparqlayers.yaml --config-only
  sparqlayers validate 'ASK { ?s ?p ?o }'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().BoolVar(&opts.ConfigOnly, "config-only", false, "only validate the config file")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, false)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			details := map[string]string{"path": ve.Path}
			return f.Fail(ExitCommandError, ErrCodeConfig, ve.Error(), details, err)
		}
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}

	result := ValidateResult{
		Config:   opts.Config,
		Profile:  s.profile.Name,
		Location: s.profile.Location,
	}
	if result.Config == "" {
		result.Config = "(defaults)"
	}
	f.VerboseLog("config %s: profile %s at %s", result.Config, result.Profile, result.Location)

	if !opts.ConfigOnly {
		text, err := readQuery(cmd, args, opts.File)
		if err != nil {
			return err
		}
		doc, err := loadDocument(f, s, text)
		if err != nil {
			return err
		}
		if fbs := fallbacks(doc); len(fbs) > 0 {
			msg := fmt.Sprintf("%d form(s) have no algebra operator", len(fbs))
			return f.Fail(ExitFailure, ErrCodeFallback, msg, fbs, nil)
		}
		result.Operators = len(preorder(doc))
	}

	if f.JSON() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ config %s is valid (profile %s)\n", result.Config, result.Profile)
	if !opts.ConfigOnly {
		fmt.Fprintf(w, "✓ query is valid (%d operators)\n", result.Operators)
	}
	return nil
}
