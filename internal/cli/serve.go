package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sparqlayers/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the JSON HTTP API on the configured listen address.

Every request is executed against the profile's endpoint unless it names
its own location. Saved documents and the execution log are served from
the store.

Example:
  sparqlayers serve --config sparqlayers.yaml --listen :8088`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default: config listen)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing store", "error", closeErr)
		}
	}()

	addr := opts.Listen
	if addr == "" {
		addr = s.cfg.Listen
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, slog.LevelInfo)
	srv := server.New(s.engine, server.WithStore(s.store), server.WithLogger(logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s (store %s)\n", s.profile.Location, addr, s.cfg.Store)
	if err := srv.Serve(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
