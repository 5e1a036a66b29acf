package repository

import (
	"testing"
	"time"

	"github.com/helvet/keyhub/internal/models"
)

func TestActivityLogRepository_AppendAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)

	entry := &models.ActivityLog{
		UserID:       "user-1",
		Action:       models.ActionCreateKey,
		ResourceType: models.ResourceAPIKey,
		ResourceID:   "key-1",
		Details:      map[string]any{"name": "Test Key", "type": "development"},
		IPAddress:    "203.0.113.7",
		UserAgent:    "curl/8.0",
	}
	if err := repo.Append(entry); err != nil {
		t.Fatalf("failed to append log: %v", err)
	}
	if entry.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}

	logs, err := repo.ListByUser("user-1", models.ActivityLogFilter{Limit: 10})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	got := logs[0]
	if got.Action != models.ActionCreateKey {
		t.Errorf("expected action %s, got %s", models.ActionCreateKey, got.Action)
	}
	if got.Details["name"] != "Test Key" {
		t.Errorf("expected details name 'Test Key', got %v", got.Details["name"])
	}
	if got.IPAddress != "203.0.113.7" {
		t.Errorf("expected ip 203.0.113.7, got %s", got.IPAddress)
	}
}

func TestActivityLogRepository_ListByUser_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)

	base := time.Now().Add(-3 * time.Hour)
	entries := []models.ActivityLog{
		{UserID: "user-1", Action: models.ActionCreateKey, ResourceType: models.ResourceAPIKey, CreatedAt: base},
		{UserID: "user-1", Action: models.ActionDeleteKey, ResourceType: models.ResourceAPIKey, CreatedAt: base.Add(time.Hour)},
		{UserID: "user-1", Action: models.ActionUpdateSettings, ResourceType: models.ResourceSettings, CreatedAt: base.Add(2 * time.Hour)},
		{UserID: "user-2", Action: models.ActionCreateKey, ResourceType: models.ResourceAPIKey, CreatedAt: base},
	}
	for i := range entries {
		if err := repo.Append(&entries[i]); err != nil {
			t.Fatalf("failed to append log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter models.ActivityLogFilter
		want   int
	}{
		{"all for user", models.ActivityLogFilter{Limit: 10}, 3},
		{"by action", models.ActivityLogFilter{Action: models.ActionDeleteKey, Limit: 10}, 1},
		{"by resource type", models.ActivityLogFilter{ResourceType: models.ResourceSettings, Limit: 10}, 1},
		{"date window", models.ActivityLogFilter{DateFrom: ptrTime(base.Add(30 * time.Minute)), DateTo: ptrTime(base.Add(90 * time.Minute)), Limit: 10}, 1},
		{"no match", models.ActivityLogFilter{Action: models.ActionToggleKey, Limit: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := repo.ListByUser("user-1", tt.filter)
			if err != nil {
				t.Fatalf("failed to list logs: %v", err)
			}
			if len(logs) != tt.want {
				t.Errorf("expected %d logs, got %d", tt.want, len(logs))
			}
		})
	}
}

func TestActivityLogRepository_ListByUser_Pagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := &models.ActivityLog{
			UserID:       "user-1",
			Action:       models.ActionAPIRequest,
			ResourceType: models.ResourceAPIKey,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(entry); err != nil {
			t.Fatalf("failed to append log: %v", err)
		}
	}

	page1, err := repo.ListByUser("user-1", models.ActivityLogFilter{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("failed to list page 1: %v", err)
	}
	page2, err := repo.ListByUser("user-1", models.ActivityLogFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("failed to list page 2: %v", err)
	}
	if len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("expected 2+2 logs, got %d+%d", len(page1), len(page2))
	}
	// Newest first across pages
	if !page1[0].CreatedAt.After(page2[0].CreatedAt) {
		t.Error("expected page 1 to hold newer entries than page 2")
	}
	if page1[0].ID == page2[0].ID {
		t.Error("expected pages to not overlap")
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
