package state

// Slice names of the closed schema.
const (
	SliceUser        = "user"
	SliceUI          = "ui"
	SliceRouter      = "router"
	SlicePreferences = "preferences"
	SliceFilters     = "filters"
)

// RequiredSlices must always be present as objects.
var RequiredSlices = []string{SliceUser, SliceUI}

// OptionalSlices may be absent, and a patch may remove them with null.
var OptionalSlices = []string{SliceRouter, SlicePreferences, SliceFilters}

// UserState holds authentication and identity information.
type UserState struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	UserID          string       `json:"userId,omitempty"`
	Username        string       `json:"username,omitempty"`
	Roles           []string     `json:"roles,omitempty"`
	Permissions     []string     `json:"permissions,omitempty"`
	LastLogin       string       `json:"lastLogin,omitempty"`
	Profile         *UserProfile `json:"profile,omitempty"`
}

// UserProfile is the optional profile attached to the user slice.
type UserProfile struct {
	FirstName   string         `json:"firstName,omitempty"`
	LastName    string         `json:"lastName,omitempty"`
	Email       string         `json:"email,omitempty"`
	Avatar      string         `json:"avatar,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// UIState holds general UI state.
type UIState struct {
	Theme            string          `json:"theme"`
	Notifications    []Notification  `json:"notifications"`
	IsLoading        bool            `json:"isLoading"`
	LastViewedPage   string          `json:"lastViewedPage"`
	SidebarCollapsed bool            `json:"sidebarCollapsed,omitempty"`
	Modals           map[string]bool `json:"modals,omitempty"`
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is one of the four known types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// ParseNotificationType maps a string onto a NotificationType; the empty
// string defaults to info.
func ParseNotificationType(s string) (NotificationType, bool) {
	if s == "" {
		return NotificationInfo, true
	}
	t := NotificationType(s)
	return t, t.Valid()
}

// Notification is an app-wide message. Metadata is an opaque payload owned
// by presentation code (toast title, duration, position...).
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp int64            `json:"timestamp"`
	Read      bool             `json:"read"`
	Details   any              `json:"details,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// RouterState mirrors the router collaborator's current route.
type RouterState struct {
	URL         string         `json:"url"`
	Params      map[string]any `json:"params"`
	QueryParams map[string]any `json:"queryParams"`
	Data        map[string]any `json:"data"`
	Title       string         `json:"title"`
	CustomData  any            `json:"customData,omitempty"`
}

// PreferencesState holds user preferences. Fields not listed here are kept
// in the tree and can be read through AppState.Lookup.
type PreferencesState struct {
	Theme         string                   `json:"theme"`
	Language      string                   `json:"language,omitempty"`
	Timezone      string                   `json:"timezone,omitempty"`
	DateFormat    string                   `json:"dateFormat,omitempty"`
	TimeFormat    string                   `json:"timeFormat,omitempty"`
	Notifications *NotificationPreferences `json:"notifications,omitempty"`
	Accessibility *AccessibilityOptions    `json:"accessibility,omitempty"`
}

// NotificationPreferences selects the channels a user receives.
type NotificationPreferences struct {
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	InApp *bool `json:"inApp,omitempty"`
}

// AccessibilityOptions are the accessibility toggles.
type AccessibilityOptions struct {
	HighContrast  *bool `json:"highContrast,omitempty"`
	LargeText     *bool `json:"largeText,omitempty"`
	ReducedMotion *bool `json:"reducedMotion,omitempty"`
}

// SortDirection orders list views.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FiltersState holds list filtering state.
type FiltersState struct {
	SearchTerm    string         `json:"searchTerm,omitempty"`
	SortBy        string         `json:"sortBy,omitempty"`
	SortDirection SortDirection  `json:"sortDirection,omitempty"`
	PageSize      int            `json:"pageSize,omitempty"`
	PageIndex     int            `json:"pageIndex,omitempty"`
	Filters       map[string]any `json:"filters,omitempty"`
}

// Bool returns a pointer to b, for the optional preference fields.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for the optional preference fields.
func String(s string) *string { return &s }
