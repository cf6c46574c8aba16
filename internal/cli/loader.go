package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/config"
	"github.com/roach88/sparqlayers/internal/engine"
	"github.com/roach88/sparqlayers/internal/protocol"
	"github.com/roach88/sparqlayers/internal/store"
)

// session bundles the configuration, engine and optional store a command
// runs against.
type session struct {
	cfg     *config.Config
	profile config.Profile
	logger  *slog.Logger
	engine  *engine.Engine
	store   *store.Store
}

// Close releases the store, if one was opened.
func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// loadConfig reads the config file, then applies environment overrides and
// the --store flag.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)
	if opts.Store != "" {
		cfg.Store = opts.Store
	}
	return cfg, nil
}

// newLogger returns a text logger on w. Verbose lowers the level to Debug.
func newLogger(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession builds the engine for the selected profile. With withStore the
// SQLite store is opened, recorded executions continue its sequence and the
// caller must Close the session.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, withStore bool) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	profile, err := cfg.Profile(opts.Profile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to select profile", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, slog.LevelWarn)

	transport, err := newTransport(opts, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure transport", err)
	}

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithDefaultConnection(profile.Connection()),
	}
	if cfg.Parallelism > 0 {
		engOpts = append(engOpts, engine.WithParallelism(cfg.Parallelism))
	}

	s := &session{cfg: cfg, profile: profile, logger: logger}
	if withStore {
		logger.Debug("opening store", "path", cfg.Store)
		st, err := store.Open(cfg.Store)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open store", err)
		}
		last, err := st.LastSeq(ctx)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read execution log", err)
		}
		s.store = st
		engOpts = append(engOpts, engine.WithRecorder(st), engine.WithClock(engine.NewClockAt(last)))
	}

	s.engine = engine.New(transport, engOpts...)
	return s, nil
}

// newTransport returns the injected transport, or an HTTP transport behind
// the response cache when the config enables it.
func newTransport(opts *RootOptions, cfg *config.Config, logger *slog.Logger) (protocol.Transport, error) {
	if opts.Transport != nil {
		return opts.Transport, nil
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	var transport protocol.Transport = protocol.NewHTTPTransport(
		protocol.WithHTTPClient(&http.Client{Timeout: timeout}),
		protocol.WithLogger(logger),
	)
	if cfg.Cache.Size > 0 {
		ttl, err := cfg.CacheTTL()
		if err != nil {
			return nil, err
		}
		transport = protocol.NewCachingTransport(transport, cfg.Cache.Size, ttl)
	}
	return transport, nil
}

// readQuery returns the query text from --file, from the first argument,
// or from stdin when the argument is "-" or missing.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to read query file", err)
		}
		text = string(data)
	case len(args) > 0 && args[0] != "-":
		text = args[0]
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to read query from stdin", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return "", NewExitError(ExitCommandError, "no query given")
	}
	return text, nil
}

// loadDocument parses text into a tree connected to the session's profile.
// A parse failure is reported through f.
func loadDocument(f *OutputFormatter, s *session, text string) (*engine.Document, error) {
	doc, err := s.engine.Load(text, algebra.Connection{})
	if err == nil {
		return doc, nil
	}
	var pe *codec.ParseError
	if errors.As(err, &pe) {
		details := map[string]int{"line": pe.Line, "column": pe.Column}
		return nil, f.Fail(ExitFailure, ErrCodeParse, pe.Error(), details, err)
	}
	return nil, f.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil, err)
}

// preorder lists the tree's nodes root first, then source, child and
// complement subtrees. Commands address nodes by position in this list.
func preorder(doc *engine.Document) []*algebra.Node {
	var nodes []*algebra.Node
	doc.Tree.MapOperations(doc.Root, func(n *algebra.Node) {
		nodes = append(nodes, n)
	})
	return nodes
}

// nodeAt returns the node at pre-order position pos.
func nodeAt(doc *engine.Document, pos int) (*algebra.Node, error) {
	nodes := preorder(doc)
	if pos < 0 || pos >= len(nodes) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no node at position %d (tree has %d)", pos, len(nodes)))
	}
	return nodes[pos], nil
}

// nodeSummary describes one operator in JSON output.
type nodeSummary struct {
	Position   int          `json:"position"`
	Key        string       `json:"key"`
	Kind       algebra.Kind `json:"kind"`
	Dimensions []string     `json:"dimensions"`
	Query      string       `json:"query,omitempty"`
}

func summarize(pos int, n *algebra.Node) nodeSummary {
	dims := n.Dimensions
	if dims == nil {
		dims = []string{}
	}
	return nodeSummary{Position: pos, Key: n.Key, Kind: n.Kind(), Dimensions: dims}
}

// header renders "[pos] kind [dims]".
func header(pos int, n *algebra.Node) string {
	h := fmt.Sprintf("[%d] %s", pos, n.Kind())
	if len(n.Dimensions) > 0 {
		h += " [" + strings.Join(n.Dimensions, " ") + "]"
	}
	return h
}
