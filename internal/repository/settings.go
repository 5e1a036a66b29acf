package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/helvet/keyhub/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate returns the user's settings, inserting a default row on
// first access.
func (r *SettingsRepository) GetOrCreate(userID string) (*models.UserSettings, error) {
	row := r.db.QueryRow(`
		SELECT user_id, theme, notifications, api_preferences, dashboard_preferences, created_at, updated_at
		FROM user_settings WHERE user_id = ?`, userID)

	s, err := scanSettings(row)
	if err == sql.ErrNoRows {
		defaults := models.DefaultSettings(userID)
		if err := r.insert(defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists the full settings record, stamping UpdatedAt.
func (r *SettingsRepository) Save(s *models.UserSettings) error {
	notifications, apiPrefs, dashPrefs, err := marshalSections(s)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now()
	result, err := r.db.Exec(`
		UPDATE user_settings
		SET theme = ?, notifications = ?, api_preferences = ?, dashboard_preferences = ?, updated_at = ?
		WHERE user_id = ?`,
		s.Theme, notifications, apiPrefs, dashPrefs, s.UpdatedAt, s.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SettingsRepository) insert(s *models.UserSettings) error {
	notifications, apiPrefs, dashPrefs, err := marshalSections(s)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO user_settings (user_id, theme, notifications, api_preferences, dashboard_preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Theme, notifications, apiPrefs, dashPrefs, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}
	return nil
}

func marshalSections(s *models.UserSettings) (string, string, string, error) {
	notifications, err := json.Marshal(s.Notifications)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal notifications: %w", err)
	}
	apiPrefs, err := json.Marshal(s.APIPreferences)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal api preferences: %w", err)
	}
	dashPrefs, err := json.Marshal(s.DashboardPreferences)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal dashboard preferences: %w", err)
	}
	return string(notifications), string(apiPrefs), string(dashPrefs), nil
}

func scanSettings(row rowScanner) (*models.UserSettings, error) {
	s := &models.UserSettings{}
	var notifications, apiPrefs, dashPrefs string

	err := row.Scan(&s.UserID, &s.Theme, &notifications, &apiPrefs, &dashPrefs, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(notifications), &s.Notifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notifications: %w", err)
	}
	if err := json.Unmarshal([]byte(apiPrefs), &s.APIPreferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(dashPrefs), &s.DashboardPreferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard preferences: %w", err)
	}
	return s, nil
}
