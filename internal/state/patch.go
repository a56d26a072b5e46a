package state

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/statecore/internal/ir"
)

// UserData is the identity payload applied together with an auth change.
// Nil fields are left as they are in the current state.
type UserData struct {
	UserID      *string
	Username    *string
	Roles       []string
	Permissions []string
	LastLogin   *string
	Profile     *UserProfile
}

// AuthPatch sets user.isAuthenticated and applies data on top.
func AuthPatch(authenticated bool, data *UserData) (ir.IRObject, error) {
	user := ir.Obj(ir.O("isAuthenticated", ir.IRBool(authenticated)))
	if data != nil {
		if data.UserID != nil {
			user["userId"] = ir.IRString(*data.UserID)
		}
		if data.Username != nil {
			user["username"] = ir.IRString(*data.Username)
		}
		if data.Roles != nil {
			user["roles"] = ir.Strings(data.Roles)
		}
		if data.Permissions != nil {
			user["permissions"] = ir.Strings(data.Permissions)
		}
		if data.LastLogin != nil {
			user["lastLogin"] = ir.IRString(*data.LastLogin)
		}
		if data.Profile != nil {
			profile, err := ir.Encode(data.Profile)
			if err != nil {
				return nil, fmt.Errorf("encode profile: %w", err)
			}
			user["profile"] = profile
		}
	}
	return ir.Obj(ir.O(SliceUser, user)), nil
}

// ClearIdentityPatch removes the identity fields of the user slice and marks
// the user as signed out.
func ClearIdentityPatch() ir.IRObject {
	return ir.Obj(ir.O(SliceUser, ir.Obj(
		ir.O("isAuthenticated", ir.IRBool(false)),
		ir.O("userId", ir.IRNull{}),
		ir.O("username", ir.IRNull{}),
		ir.O("roles", ir.IRNull{}),
		ir.O("permissions", ir.IRNull{}),
		ir.O("profile", ir.IRNull{}),
	)))
}

// ThemePatch writes the theme to both ui.theme and preferences.theme.
func ThemePatch(theme string) ir.IRObject {
	return ir.Obj(
		ir.O(SliceUI, ir.Obj(ir.O("theme", ir.IRString(theme)))),
		ir.O(SlicePreferences, ir.Obj(ir.O("theme", ir.IRString(theme)))),
	)
}

// UIThemePatch writes ui.theme only.
func UIThemePatch(theme string) ir.IRObject {
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("theme", ir.IRString(theme)))))
}

// NotificationsPatch replaces the notification list.
func NotificationsPatch(list []Notification) (ir.IRObject, error) {
	if list == nil {
		list = []Notification{}
	}
	arr, err := ir.Encode(list)
	if err != nil {
		return nil, fmt.Errorf("encode notifications: %w", err)
	}
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("notifications", arr)))), nil
}

// LoadingPatch sets ui.isLoading.
func LoadingPatch(loading bool) ir.IRObject {
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("isLoading", ir.IRBool(loading)))))
}

// LastViewedPagePatch sets ui.lastViewedPage.
func LastViewedPagePatch(page string) ir.IRObject {
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("lastViewedPage", ir.IRString(page)))))
}

// SidebarPatch sets ui.sidebarCollapsed.
func SidebarPatch(collapsed bool) ir.IRObject {
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("sidebarCollapsed", ir.IRBool(collapsed)))))
}

// ModalPatch sets the open flag of one modal.
func ModalPatch(id string, open bool) ir.IRObject {
	return ir.Obj(ir.O(SliceUI, ir.Obj(
		ir.O("modals", ir.Obj(ir.O(id, ir.IRBool(open)))),
	)))
}

// PreferencesUpdate is a partial preferences change. Nil fields are left
// untouched; Extra carries free-form keys.
type PreferencesUpdate struct {
	Theme         *string
	Language      *string
	Timezone      *string
	DateFormat    *string
	TimeFormat    *string
	Notifications *NotificationPreferences
	Accessibility *AccessibilityOptions
	Extra         map[string]any
}

// PreferencesPatch builds the patch for u.
func PreferencesPatch(u PreferencesUpdate) (ir.IRObject, error) {
	prefs := ir.IRObject{}
	for _, k := range slices.Sorted(maps.Keys(u.Extra)) {
		v, err := ir.FromAny(u.Extra[k])
		if err != nil {
			return nil, fmt.Errorf("preference %q: %w", k, err)
		}
		prefs[k] = v
	}
	setString(prefs, "theme", u.Theme)
	setString(prefs, "language", u.Language)
	setString(prefs, "timezone", u.Timezone)
	setString(prefs, "dateFormat", u.DateFormat)
	setString(prefs, "timeFormat", u.TimeFormat)
	if u.Notifications != nil {
		v, err := ir.Encode(u.Notifications)
		if err != nil {
			return nil, fmt.Errorf("encode notification preferences: %w", err)
		}
		prefs["notifications"] = v
	}
	if u.Accessibility != nil {
		v, err := ir.Encode(u.Accessibility)
		if err != nil {
			return nil, fmt.Errorf("encode accessibility options: %w", err)
		}
		prefs["accessibility"] = v
	}

	patch := ir.Obj(ir.O(SlicePreferences, prefs))
	if u.Theme != nil {
		patch[SliceUI] = ir.Obj(ir.O("theme", ir.IRString(*u.Theme)))
	}
	return patch, nil
}

// FiltersUpdate is a partial filters change. Filters is merged key by key;
// a nil value inside it removes that filter.
type FiltersUpdate struct {
	SearchTerm    *string
	SortBy        *string
	SortDirection *SortDirection
	PageSize      *int
	PageIndex     *int
	Filters       map[string]any
}

// FiltersPatch builds the patch for u.
func FiltersPatch(u FiltersUpdate) (ir.IRObject, error) {
	f := ir.IRObject{}
	setString(f, "searchTerm", u.SearchTerm)
	setString(f, "sortBy", u.SortBy)
	if u.SortDirection != nil {
		if *u.SortDirection != SortAsc && *u.SortDirection != SortDesc {
			return nil, fmt.Errorf("invalid sort direction %q", *u.SortDirection)
		}
		f["sortDirection"] = ir.IRString(*u.SortDirection)
	}
	if u.PageSize != nil {
		f["pageSize"] = ir.IRInt(*u.PageSize)
	}
	if u.PageIndex != nil {
		f["pageIndex"] = ir.IRInt(*u.PageIndex)
	}
	if u.Filters != nil {
		v, err := ir.FromAny(u.Filters)
		if err != nil {
			return nil, fmt.Errorf("filters: %w", err)
		}
		f["filters"] = v
	}
	return ir.Obj(ir.O(SliceFilters, f)), nil
}

// RouterPatch builds the patch that replaces the router slice of current
// with r. Params, query params and route data are replaced whole, so keys of
// the previous route do not survive. customData is kept unless r sets it.
func RouterPatch(current AppState, r RouterState) (ir.IRObject, error) {
	if r.Params == nil {
		r.Params = map[string]any{}
	}
	if r.QueryParams == nil {
		r.QueryParams = map[string]any{}
	}
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	next, err := ir.EncodeObject(r)
	if err != nil {
		return nil, fmt.Errorf("encode router state: %w", err)
	}

	prev, _ := current.root.Object(SliceRouter)
	if _, ok := next["customData"]; !ok {
		if cd, ok := prev["customData"]; ok {
			next["customData"] = cd
		}
	}
	return ir.Obj(ir.O(SliceRouter, ir.ReplacementPatch(prev, next))), nil
}

// RouterCustomDataPatch sets router.customData; nil removes it. When current
// has no router slice yet, an empty route is created around the data.
func RouterCustomDataPatch(current AppState, data any) (ir.IRObject, error) {
	v, err := ir.FromAny(data)
	if err != nil {
		return nil, fmt.Errorf("custom data: %w", err)
	}
	router := ir.Obj(ir.O("customData", v))
	if _, ok := current.root.Object(SliceRouter); !ok {
		router["url"] = ir.IRString("")
		router["params"] = ir.IRObject{}
		router["queryParams"] = ir.IRObject{}
		router["data"] = ir.IRObject{}
		router["title"] = ir.IRString("")
	}
	return ir.Obj(ir.O(SliceRouter, router)), nil
}

func setString(obj ir.IRObject, key string, v *string) {
	if v != nil {
		obj[key] = ir.IRString(*v)
	}
}

// AppendNotificationPatch appends n to the notification list of current.
// Existing entries are carried over as stored, opaque metadata included.
func AppendNotificationPatch(current AppState, n Notification) (ir.IRObject, error) {
	encoded, err := ir.Encode(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	list := notificationList(current)
	next := make(ir.IRArray, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, encoded)
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("notifications", next)))), nil
}

// MarkReadPatch marks every notification with the given id as read. The
// list is written back even when no entry matches.
func MarkReadPatch(current AppState, id string) ir.IRObject {
	list := notificationList(current)
	next := make(ir.IRArray, len(list))
	for i, v := range list {
		obj, ok := v.(ir.IRObject)
		if ok && obj["id"] == ir.IRString(id) {
			marked := obj.Clone()
			marked["read"] = ir.IRBool(true)
			next[i] = marked
			continue
		}
		next[i] = v
	}
	return ir.Obj(ir.O(SliceUI, ir.Obj(ir.O("notifications", next))))
}

func notificationList(current AppState) ir.IRArray {
	v, _ := current.root.Lookup("ui.notifications")
	list, _ := v.(ir.IRArray)
	return list
}
