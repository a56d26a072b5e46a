package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/statecore/internal/debug"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
	"github.com/roach88/statecore/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Session  string
	Limit    int
	Sessions bool
}

// HistoryEntryView is one stored history entry in command output.
type HistoryEntryView struct {
	Seq         int64     `json:"seq"`
	RecordedAt  time.Time `json:"recorded_at"`
	Label       string    `json:"label"`
	ChangedKeys []string  `json:"changed_keys"`
	Digest      string    `json:"digest"`
}

// HistoryResult is the stored history of one session.
type HistoryResult struct {
	Session string             `json:"session"`
	Entries []HistoryEntryView `json:"entries"`

	entries []debug.Entry
}

// RenderText implements TextRenderer.
func (r HistoryResult) RenderText(w io.Writer, verbose bool) {
	if r.Session == "" {
		fmt.Fprintln(w, "No stored history.")
		return
	}
	fmt.Fprintf(w, "Session %s (%d entries)\n", r.Session, len(r.Entries))
	fmt.Fprintln(w, debug.FormatHistory(r.entries))
	if verbose {
		for i, e := range r.Entries {
			fmt.Fprintf(w, "%3d  %s  digest=%s\n", i, e.RecordedAt.UTC().Format(time.RFC3339Nano), e.Digest)
		}
	}
}

// SessionsResult lists the sessions with stored history.
type SessionsResult struct {
	Sessions []string `json:"sessions"`
}

// RenderText implements TextRenderer.
func (r SessionsResult) RenderText(w io.Writer, _ bool) {
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, "No stored history.")
		return
	}
	for _, s := range r.Sessions {
		fmt.Fprintln(w, s)
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored debug history",
		Long: `Show the debug history recorded by dev-mode runs.

Without --session the most recent session is shown. --sessions lists
every session that has history, most recent first.

Examples:
  statecore history --db ./state.db
  statecore history --db ./state.db --limit 10 --format json
  statecore history --db ./state.db --sessions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (default: most recent)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the newest N entries")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list sessions instead of entries")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
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
	out := opts.formatter(cmd)

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read sessions", err)
	}
	if opts.Sessions {
		return out.Success(SessionsResult{Sessions: sessions})
	}

	session := opts.Session
	if session == "" {
		if len(sessions) == 0 {
			return out.Success(HistoryResult{Entries: []HistoryEntryView{}})
		}
		session = sessions[0]
	}

	records, err := st.ReadHistory(ctx, session, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read history", err)
	}
	if len(records) == 0 {
		msg := fmt.Sprintf("no history for session %s", session)
		if err := out.Error(CodeNotFound, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(historyResult(session, records))
}

func historyResult(session string, records []store.HistoryRecord) HistoryResult {
	result := HistoryResult{
		Session: session,
		Entries: make([]HistoryEntryView, 0, len(records)),
		entries: make([]debug.Entry, 0, len(records)),
	}
	for _, rec := range records {
		result.Entries = append(result.Entries, HistoryEntryView{
			Seq:         rec.Seq,
			RecordedAt:  rec.RecordedAt,
			Label:       rec.Label,
			ChangedKeys: rec.ChangedKeys,
			Digest:      rec.Digest,
		})
		result.entries = append(result.entries, historyEntry(rec))
	}
	return result
}

// historyEntry rebuilds a recorder entry from its stored form. Changes holds
// the stored value of every changed slice.
func historyEntry(rec store.HistoryRecord) debug.Entry {
	changes := ir.IRObject{}
	for _, k := range rec.ChangedKeys {
		if v, ok := rec.Snapshot[k]; ok {
			changes[k] = v
		}
	}
	return debug.Entry{
		Timestamp: rec.RecordedAt,
		Seq:       rec.Seq,
		Action:    rec.Label,
		State:     state.FromTree(rec.Snapshot),
		Changes:   changes,
	}
}
