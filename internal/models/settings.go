package models

import (
	"fmt"
	"time"
)

// Themes accepted by UserSettings
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// Dashboard default views
const (
	ViewOverview  = "overview"
	ViewKeys      = "keys"
	ViewAnalytics = "analytics"
)

// NotificationSettings holds the per-channel notification toggles.
type NotificationSettings struct {
	Email     bool `json:"email"`
	Push      bool `json:"push"`
	APIAlerts bool `json:"api_alerts"`
}

// APIPreferences holds defaults applied when working with API keys.
type APIPreferences struct {
	DefaultLimit int64 `json:"default_limit"`
	AutoRefresh  bool  `json:"auto_refresh"`
}

// DashboardPreferences holds display preferences for the dashboard.
type DashboardPreferences struct {
	DefaultView  string `json:"default_view"`
	ItemsPerPage int    `json:"items_per_page"`
}

// UserSettings is the single per-user preferences record. It is
// materialized lazily with defaults on first read.
type UserSettings struct {
	UserID               string               `json:"user_id"`
	Theme                string               `json:"theme"`
	Notifications        NotificationSettings `json:"notifications"`
	APIPreferences       APIPreferences       `json:"api_preferences"`
	DashboardPreferences DashboardPreferences `json:"dashboard_preferences"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// DefaultSettings returns the documented defaults for a user that has
// no stored settings yet.
func DefaultSettings(userID string) *UserSettings {
	now := time.Now()
	return &UserSettings{
		UserID:    userID,
		Theme:     ThemeDark,
		CreatedAt: now,
		UpdatedAt: now,
		Notifications: NotificationSettings{
			Email:     true,
			Push:      true,
			APIAlerts: true,
		},
		APIPreferences: APIPreferences{
			DefaultLimit: 1000,
			AutoRefresh:  true,
		},
		DashboardPreferences: DashboardPreferences{
			DefaultView:  ViewOverview,
			ItemsPerPage: 10,
		},
	}
}

// NotificationUpdate carries a partial notifications section; nil fields
// are left unchanged.
type NotificationUpdate struct {
	Email     *bool `json:"email"`
	Push      *bool `json:"push"`
	APIAlerts *bool `json:"api_alerts"`
}

// APIPreferencesUpdate carries a partial api_preferences section.
type APIPreferencesUpdate struct {
	DefaultLimit *int64 `json:"default_limit"`
	AutoRefresh  *bool  `json:"auto_refresh"`
}

// DashboardPreferencesUpdate carries a partial dashboard_preferences section.
type DashboardPreferencesUpdate struct {
	DefaultView  *string `json:"default_view"`
	ItemsPerPage *int    `json:"items_per_page"`
}

// SettingsUpdate is a partial-merge update: each provided section is
// merged key-by-key onto the stored record, sections left nil are
// untouched.
type SettingsUpdate struct {
	Theme                *string                     `json:"theme"`
	Notifications        *NotificationUpdate         `json:"notifications"`
	APIPreferences       *APIPreferencesUpdate       `json:"api_preferences"`
	DashboardPreferences *DashboardPreferencesUpdate `json:"dashboard_preferences"`
}

// Sections returns the names of the top-level sections the update touches.
func (u *SettingsUpdate) Sections() []string {
	var sections []string
	if u.Theme != nil {
		sections = append(sections, "theme")
	}
	if u.Notifications != nil {
		sections = append(sections, "notifications")
	}
	if u.APIPreferences != nil {
		sections = append(sections, "api_preferences")
	}
	if u.DashboardPreferences != nil {
		sections = append(sections, "dashboard_preferences")
	}
	return sections
}

// Apply merges the update onto s field by field.
func (s *UserSettings) Apply(u *SettingsUpdate) error {
	if u.Theme != nil {
		switch *u.Theme {
		case ThemeLight, ThemeDark, ThemeAuto:
			s.Theme = *u.Theme
		default:
			return fmt.Errorf("invalid theme %q", *u.Theme)
		}
	}
	if n := u.Notifications; n != nil {
		if n.Email != nil {
			s.Notifications.Email = *n.Email
		}
		if n.Push != nil {
			s.Notifications.Push = *n.Push
		}
		if n.APIAlerts != nil {
			s.Notifications.APIAlerts = *n.APIAlerts
		}
	}
	if p := u.APIPreferences; p != nil {
		if p.DefaultLimit != nil {
			s.APIPreferences.DefaultLimit = *p.DefaultLimit
		}
		if p.AutoRefresh != nil {
			s.APIPreferences.AutoRefresh = *p.AutoRefresh
		}
	}
	if d := u.DashboardPreferences; d != nil {
		if d.DefaultView != nil {
			s.DashboardPreferences.DefaultView = *d.DefaultView
		}
		if d.ItemsPerPage != nil {
			s.DashboardPreferences.ItemsPerPage = *d.ItemsPerPage
		}
	}
	return nil
}
