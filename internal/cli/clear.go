package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/persist"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Database string
	Theme    bool
	History  bool
	Session  string
}

// ClearResult reports what was removed.
type ClearResult struct {
	Removed        []string `json:"removed"`
	HistoryCleared bool     `json:"history_cleared"`
	Session        string   `json:"session,omitempty"`
}

// RenderText implements TextRenderer.
func (r ClearResult) RenderText(w io.Writer, _ bool) {
	fmt.Fprintf(w, "Removed: %s\n", strings.Join(r.Removed, ", "))
	switch {
	case r.HistoryCleared && r.Session != "":
		fmt.Fprintf(w, "Cleared history for session %s\n", r.Session)
	case r.HistoryCleared:
		fmt.Fprintln(w, "Cleared all history")
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove persisted state",
		Long: `Remove the persisted application state from the database.

The explicit theme preference is kept unless --theme is given. --history
also deletes the stored debug history, for every session or only the one
named by --session.

Examples:
  statecore clear --db ./state.db
  statecore clear --db ./state.db --theme --history`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().BoolVar(&opts.Theme, "theme", false, "also remove the theme preference")
	cmd.Flags().BoolVar(&opts.History, "history", false, "also clear debug history")
	cmd.Flags().StringVar(&opts.Session, "session", "", "limit --history to one session")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	if opts.Session != "" && !opts.History {
		return NewExitError(ExitCommandError, "--session requires --history")
	}

	st, err := opts.openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	keys := []string{persist.RecordKey}
	if opts.Theme {
		keys = append(keys, persist.ThemeKey)
	}
	result := ClearResult{Removed: keys}
	for _, key := range keys {
		if err := st.Remove(ctx, key); err != nil {
			return WrapExitError(ExitFailure, "failed to clear state", err)
		}
	}

	if opts.History {
		if err := st.ClearHistory(ctx, opts.Session); err != nil {
			return WrapExitError(ExitFailure, "failed to clear history", err)
		}
		result.HistoryCleared = true
		result.Session = opts.Session
	}

	return opts.formatter(cmd).Success(result)
}
