package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/app"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	DevMode     bool
	MetricsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the state store with a debug console",
		Long: `Start the state store and read debug console commands from stdin.

State is hydrated from the database (created if it doesn't exist) and
written back after every change. With --dev the debug recorder is enabled
and the console accepts state, history, reset, update, travel, eval and
help. Type quit or press Ctrl-D to stop.

Example:
  statecore run --db ./state.db --dev
  statecore run --dev --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().BoolVar(&opts.DevMode, "dev", false, "enable the debug recorder")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runConsole(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.DevMode {
		cfg.DevMode = true
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	logger := opts.logger(cmd.ErrOrStderr())

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

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

	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("error during shutdown", "error", closeErr)
		}
	}()

	w := cmd.OutOrStdout()
	if cfg.MetricsAddr != "" {
		stop, addr, err := serveMetrics(a, cfg.MetricsAddr, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
		fmt.Fprintf(w, "Metrics on http://%s/metrics\n", addr)
	}

	fmt.Fprintf(w, "State store ready (session %s).\n", a.Session)
	if a.Debug() == nil {
		fmt.Fprintln(w, "Debug tools disabled; start with --dev to use the console.")
	}
	fmt.Fprintln(w, "Type quit or press Ctrl-D to stop.")

	if err := consoleLoop(ctx, a, cmd.InOrStdin(), w); err != nil {
		return WrapExitError(ExitFailure, "console error", err)
	}

	logger.Info("stopped gracefully")
	return nil
}

// consoleLoop executes one debug command per input line until quit, EOF or
// cancellation.
func consoleLoop(ctx context.Context, a *app.App, in io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "quit", "exit":
				return nil
			}
			fmt.Fprintln(w, execConsole(ctx, a, line))
		}
	}
}

// execConsole runs one command and waits for its effects to land so the
// next command observes them.
func execConsole(ctx context.Context, a *app.App, line string) string {
	h := a.Debug()
	if h == nil {
		return "debug tools disabled"
	}
	out, err := h.Exec(line)
	if settleErr := a.Settle(ctx); settleErr != nil && !errors.Is(settleErr, context.Canceled) {
		return "error: " + settleErr.Error()
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}

// serveMetrics exposes the app registry over HTTP. stop shuts the server
// down.
func serveMetrics(a *app.App, addr string, logger *slog.Logger) (stop func(), bound string, err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, ln.Addr().String(), nil
}
