package models

import "time"

// Activity log actions (closed set, mirrors what the dashboard emits)
const (
	ActionCreateKey      = "create_key"
	ActionEditKey        = "edit_key"
	ActionDeleteKey      = "delete_key"
	ActionToggleKey      = "toggle_key"
	ActionUpdateSettings = "update_settings"
	ActionAPIRequest     = "api_request"
)

// Resource types referenced by activity log entries
const (
	ResourceAPIKey   = "api_key"
	ResourceUser     = "user"
	ResourceSettings = "settings"
)

// ActivityLog is one append-only record of a user action. Entries are
// never mutated or deleted once written.
type ActivityLog struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ActivityLogFilter narrows a log listing. Zero values mean "no filter".
type ActivityLogFilter struct {
	Action       string
	ResourceType string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
