package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/app"
	"github.com/roach88/statecore/internal/persist"
	"github.com/roach88/statecore/internal/state"
	"github.com/roach88/statecore/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	State    bool
}

// RecordView is one stored record in command output.
type RecordView struct {
	Key       string          `json:"key"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Value     json.RawMessage `json:"value"`
}

// InspectResult lists the stored records.
type InspectResult struct {
	Records []RecordView `json:"records"`
}

// RenderText implements TextRenderer.
func (r InspectResult) RenderText(w io.Writer, _ bool) {
	if len(r.Records) == 0 {
		fmt.Fprintln(w, "No persisted state.")
		return
	}
	for _, rec := range r.Records {
		fmt.Fprintf(w, "%-10s v%-3d %s  %s\n",
			rec.Key, rec.Version, rec.UpdatedAt.UTC().Format(time.RFC3339), rec.Value)
	}
}

// StateResult is the state an application would start with.
type StateResult struct {
	State state.AppState `json:"state"`
}

// RenderText implements TextRenderer.
func (r StateResult) RenderText(w io.Writer, _ bool) {
	data, err := json.MarshalIndent(r.State, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show persisted state",
		Long: `Show the records stored in the database.

With --state, build the application against the database and print the
hydrated state it would start with. The database is not modified.

Examples:
  statecore inspect --db ./state.db
  statecore inspect --db ./state.db --state --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().BoolVar(&opts.State, "state", false, "print the hydrated state instead of raw records")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	st, err := opts.openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.State {
		snap, err := hydratedState(ctx, opts.RootOptions, st, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		return out.Success(StateResult{State: snap})
	}

	records, err := st.Records(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read records", err)
	}
	result := InspectResult{Records: make([]RecordView, 0, len(records))}
	for _, rec := range records {
		result.Records = append(result.Records, recordView(rec))
	}
	return out.Success(result)
}

func recordView(rec store.Record) RecordView {
	value := json.RawMessage(rec.Value)
	if !json.Valid(value) {
		// Plain strings such as the theme key are stored unquoted.
		value, _ = json.Marshal(rec.Value)
	}
	return RecordView{Key: rec.Key, Version: rec.Version, UpdatedAt: rec.UpdatedAt, Value: value}
}

// hydratedState starts the application on read-only storage and returns the
// settled state.
func hydratedState(ctx context.Context, opts *RootOptions, st *store.Store, logw io.Writer) (state.AppState, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return state.AppState{}, err
	}
	cfg.DevMode = false

	logger := opts.logger(logw)
	if !opts.Verbose {
		logger = slog.New(slog.NewTextHandler(logw, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	a, err := app.New(ctx, cfg, app.WithLogger(logger), app.WithStorage(readOnlyStorage{st}))
	if err != nil {
		return state.AppState{}, WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer a.Close()

	if err := a.Settle(ctx); err != nil {
		return state.AppState{}, WrapExitError(ExitFailure, "state did not settle", err)
	}
	return a.Store.Current(), nil
}

// readOnlyStorage discards writes so inspecting never changes the database.
type readOnlyStorage struct {
	persist.Storage
}

func (readOnlyStorage) Set(context.Context, string, string) error { return nil }
func (readOnlyStorage) Remove(context.Context, string) error      { return nil }
