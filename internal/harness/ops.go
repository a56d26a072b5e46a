package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/statecore/internal/app"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/router"
	"github.com/roach88/statecore/internal/state"
)

// errDevModeOff is returned by the debug op when the scenario did not enable
// dev mode.
var errDevModeOff = errors.New("debug tools require config.dev_mode")

// opFunc runs one step against the app. The returned value, if any, is
// recorded in the trace and compared against expect.result.
type opFunc func(ctx context.Context, a *app.App, args map[string]any) (any, error)

// ops maps scenario op names to facade calls.
var ops = map[string]opFunc{
	"set_authenticated":      opSetAuthenticated,
	"sign_out":               noArgs(func(_ context.Context, a *app.App) error { return a.Facade.SignOut() }),
	"set_theme":              opSetTheme,
	"clear_theme_preference": noArgs(func(ctx context.Context, a *app.App) error { return a.Facade.ClearThemePreference(ctx) }),
	"notify":                 opNotify,
	"mark_notification_read": opMarkNotificationRead,
	"clear_notifications":    noArgs(func(_ context.Context, a *app.App) error { return a.Facade.ClearNotifications() }),
	"set_loading":            opSetLoading,
	"toggle_sidebar":         noArgs(func(_ context.Context, a *app.App) error { return a.Facade.ToggleSidebar() }),
	"set_last_viewed_page":   opSetLastViewedPage,
	"open_modal":             opModal(true),
	"close_modal":            opModal(false),
	"update_preferences":     opUpdatePreferences,
	"update_filters":         opUpdateFilters,
	"navigate":               opNavigate,
	"navigate_with_data":     opNavigateWithData,
	"update_query_params":    opUpdateQueryParams,
	"reset_state":            noArgs(func(_ context.Context, a *app.App) error { return a.Facade.ResetState() }),
	"update":                 opUpdate,
	"save_now":               noArgs(func(ctx context.Context, a *app.App) error { return a.Persist.SaveNow(ctx) }),
	"clear_persisted":        noArgs(func(ctx context.Context, a *app.App) error { return a.Persist.Clear(ctx) }),
	"debug":                  opDebug,
}

// OpNames returns the supported op names in sorted order.
func OpNames() []string {
	return slices.Sorted(maps.Keys(ops))
}

func noArgs(fn func(ctx context.Context, a *app.App) error) opFunc {
	return func(ctx context.Context, a *app.App, args map[string]any) (any, error) {
		if len(args) > 0 {
			return nil, &argsError{err: fmt.Errorf("takes no args")}
		}
		return nil, fn(ctx, a)
	}
}

// argsError marks a malformed step, as opposed to an operation that ran and
// failed.
type argsError struct {
	err error
}

func (e *argsError) Error() string { return "invalid args: " + e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

// decodeArgs fills out from YAML-decoded args. Unknown keys are rejected.
func decodeArgs(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return &argsError{err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &argsError{err: err}
	}
	return nil
}

type authArgs struct {
	Authenticated bool               `json:"authenticated"`
	UserID        *string            `json:"user_id"`
	Username      *string            `json:"username"`
	Roles         []string           `json:"roles"`
	Permissions   []string           `json:"permissions"`
	LastLogin     *string            `json:"last_login"`
	Profile       *state.UserProfile `json:"profile"`
}

func opSetAuthenticated(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in authArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	var data *state.UserData
	if in.UserID != nil || in.Username != nil || in.Roles != nil || in.Permissions != nil || in.LastLogin != nil || in.Profile != nil {
		data = &state.UserData{
			UserID:      in.UserID,
			Username:    in.Username,
			Roles:       in.Roles,
			Permissions: in.Permissions,
			LastLogin:   in.LastLogin,
			Profile:     in.Profile,
		}
	}
	return nil, a.Facade.SetAuthenticated(in.Authenticated, data)
}

func opSetTheme(ctx context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Theme string `json:"theme"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return nil, a.Facade.SetTheme(ctx, in.Theme)
}

func opNotify(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Message  string         `json:"message"`
		Type     string         `json:"type"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	n, err := a.Facade.Notify(in.Message, state.NotificationType(in.Type), in.Metadata)
	if err != nil {
		return nil, err
	}
	return n.ID, nil
}

func opMarkNotificationRead(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return nil, a.Facade.MarkNotificationRead(in.ID)
}

func opSetLoading(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Loading bool `json:"loading"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return nil, a.Facade.SetLoading(in.Loading)
}

func opSetLastViewedPage(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Page string `json:"page"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return nil, a.Facade.SetLastViewedPage(in.Page)
}

func opModal(open bool) opFunc {
	return func(_ context.Context, a *app.App, args map[string]any) (any, error) {
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if open {
			return nil, a.Facade.OpenModal(in.ID)
		}
		return nil, a.Facade.CloseModal(in.ID)
	}
}

func opUpdatePreferences(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Theme         *string                        `json:"theme"`
		Language      *string                        `json:"language"`
		Timezone      *string                        `json:"timezone"`
		DateFormat    *string                        `json:"date_format"`
		TimeFormat    *string                        `json:"time_format"`
		Notifications *state.NotificationPreferences `json:"notifications"`
		Accessibility *state.AccessibilityOptions    `json:"accessibility"`
		Extra         map[string]any                 `json:"extra"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return nil, a.Facade.UpdatePreferences(state.PreferencesUpdate{
		Theme:         in.Theme,
		Language:      in.Language,
		Timezone:      in.Timezone,
		DateFormat:    in.DateFormat,
		TimeFormat:    in.TimeFormat,
		Notifications: in.Notifications,
		Accessibility: in.Accessibility,
		Extra:         in.Extra,
	})
}

func opUpdateFilters(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		SearchTerm    *string        `json:"search_term"`
		SortBy        *string        `json:"sort_by"`
		SortDirection *string        `json:"sort_direction"`
		PageSize      *int           `json:"page_size"`
		PageIndex     *int           `json:"page_index"`
		Filters       map[string]any `json:"filters"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	u := state.FiltersUpdate{
		SearchTerm: in.SearchTerm,
		SortBy:     in.SortBy,
		PageSize:   in.PageSize,
		PageIndex:  in.PageIndex,
		Filters:    in.Filters,
	}
	if in.SortDirection != nil {
		dir := state.SortDirection(*in.SortDirection)
		u.SortDirection = &dir
	}
	return nil, a.Facade.UpdateFilters(u)
}

type navigateArgs struct {
	Path       string            `json:"path"`
	Query      map[string]string `json:"query"`
	MergeQuery bool              `json:"merge_query"`
	ReplaceURL bool              `json:"replace_url"`
	Data       any               `json:"data"`
}

func (n navigateArgs) options() router.NavigateOptions {
	return router.NavigateOptions{
		QueryParams: n.Query,
		MergeQuery:  n.MergeQuery,
		ReplaceURL:  n.ReplaceURL,
	}
}

func opNavigate(ctx context.Context, a *app.App, args map[string]any) (any, error) {
	var in navigateArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Data != nil {
		return nil, &argsError{err: fmt.Errorf("navigate does not take data, use navigate_with_data")}
	}
	return a.Facade.NavigateTo(ctx, in.Path, in.options())
}

func opNavigateWithData(ctx context.Context, a *app.App, args map[string]any) (any, error) {
	var in navigateArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return a.Facade.NavigateWithData(ctx, in.Path, in.Data, in.options())
}

func opUpdateQueryParams(ctx context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Params map[string]string `json:"params"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return a.Facade.UpdateQueryParams(ctx, in.Params)
}

// opUpdate deep-merges a raw patch, including null removals, straight into
// the store.
func opUpdate(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Patch map[string]any `json:"patch"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	v, err := ir.FromAny(in.Patch)
	if err != nil {
		return nil, &argsError{err: err}
	}
	patch, _ := v.(ir.IRObject)
	return nil, a.Store.Update(patch)
}

// opDebug runs one debug console command and returns its output.
func opDebug(_ context.Context, a *app.App, args map[string]any) (any, error) {
	var in struct {
		Command string `json:"command"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	h := a.Debug()
	if h == nil {
		return nil, errDevModeOff
	}
	return h.Exec(in.Command)
}
