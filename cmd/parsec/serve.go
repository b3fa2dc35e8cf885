package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/73ai/parsec/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdin and stdout",
	Long: `Run the language server on stdin and stdout. This is also what parsec does
when started without a subcommand.

Logs never go to stdout; see --log-file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("watch", true, "Re-index workspace files changed outside the editor")
	serveCmd.Flags().Bool("error-nodes", false, "Report every syntax error node as a diagnostic")
	_ = viper.BindPFlag("index.watch", serveCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("diagnostics.error_nodes", serveCmd.Flags().Lookup("error-nodes"))
}

// stdio joins stdin and stdout into one connection.
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.WriteCloser.Close())
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := newEngine(viper.GetViper())
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.logger.Info("starting language server", "version", version, "pid", os.Getpid())
	srv := server.New(e.store, e.extractor, e.settings.Server, e.logger)

	err = srv.Serve(ctx, stdio{ReadCloser: os.Stdin, WriteCloser: os.Stdout})
	switch {
	case errors.Is(err, server.ErrExitWithoutShutdown):
		e.logger.Warn("client exited without shutdown")
		return err
	case err != nil && ctx.Err() != nil:
		e.logger.Info("stopped by signal")
		return nil
	case err != nil:
		e.logger.Error("server failed", "error", err)
		return err
	}
	e.logger.Info("language server stopped")
	return nil
}
