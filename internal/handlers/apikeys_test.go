package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/helvet/keyhub/internal/config"
	"github.com/helvet/keyhub/internal/models"
)

func TestAPIKeys_RequireAuth(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodGet, "/api/api-keys", "", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Error != "Authentication required. Please provide a valid Bearer token." {
		t.Errorf("unexpected error message: %q", body.Error)
	}

	rec = env.request(t, http.MethodGet, "/api/api-keys", "bogus", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeEnvelope(t, rec).Error; got != "Invalid authentication token." {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestAPIKeyCreate(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{
		"name": "My Key", "type": "development", "monthlyLimit": 1000,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var key models.APIKey
	body := decodeEnvelope(t, rec)
	if !body.Success {
		t.Fatal("expected success true")
	}
	if err := json.Unmarshal(body.Data, &key); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}
	if !strings.HasPrefix(key.Key, "ak_dev_") {
		t.Errorf("expected ak_dev_ prefix, got %s", key.Key)
	}
	if key.Usage != 0 || !key.IsActive {
		t.Errorf("expected fresh key usage=0 active=true, got %+v", key)
	}
	if key.UserID != userAlice {
		t.Errorf("expected owner %s, got %s", userAlice, key.UserID)
	}
	if key.MonthlyLimit == nil || *key.MonthlyLimit != 1000 {
		t.Errorf("expected monthly limit 1000, got %v", key.MonthlyLimit)
	}
}

func TestAPIKeyCreate_Validation(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{"missing name", map[string]any{"type": "development"}, "Name is required"},
		{"whitespace name", map[string]any{"name": "   ", "type": "development"}, "Name is required"},
		{"missing type", map[string]any{"name": "K"}, "Type must be either development or production"},
		{"bad type", map[string]any{"name": "K", "type": "staging"}, "Type must be either development or production"},
		{"zero limit", map[string]any{"name": "K", "type": "development", "monthlyLimit": 0}, "Monthly limit must be a positive number or null"},
		{"negative limit", map[string]any{"name": "K", "type": "development", "monthlyLimit": -5}, "Monthly limit must be a positive number or null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decodeEnvelope(t, rec).Error; got != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, got)
			}
		})
	}

	// Nothing was persisted by the rejected requests
	rec := env.request(t, http.MethodGet, "/api/api-keys", tokenAlice, nil, nil)
	var keys []models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &keys); err != nil {
		t.Fatalf("failed to decode keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys persisted, got %d", len(keys))
	}
}

func TestAPIKeysList_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{"name": "A", "type": "development"}, nil)
	env.request(t, http.MethodPost, "/api/api-keys", tokenBob, map[string]any{"name": "B", "type": "production"}, nil)

	rec := env.request(t, http.MethodGet, "/api/api-keys", tokenAlice, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var keys []models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &keys); err != nil {
		t.Fatalf("failed to decode keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Name != "A" {
		t.Errorf("expected only alice's key, got %+v", keys)
	}
}

func TestAPIKeyUpdate(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{
		"name": "Before", "type": "development", "monthlyLimit": 100,
	}, nil)
	var created models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}

	rec = env.request(t, http.MethodPut, "/api/api-keys", tokenAlice, map[string]any{
		"id": created.ID, "name": "After", "isActive": false,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &updated); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}
	if updated.Name != "After" || updated.IsActive {
		t.Errorf("unexpected updated key: %+v", updated)
	}
	if updated.MonthlyLimit == nil || *updated.MonthlyLimit != 100 {
		t.Errorf("expected untouched limit 100, got %v", updated.MonthlyLimit)
	}

	// monthlyLimit: null clears the limit
	rec = env.request(t, http.MethodPut, "/api/api-keys", tokenAlice, map[string]any{
		"id": created.ID, "monthlyLimit": nil,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &updated); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}
	if updated.MonthlyLimit != nil {
		t.Errorf("expected limit cleared, got %v", *updated.MonthlyLimit)
	}
}

func TestAPIKeyUpdate_Validation(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{"name": "K", "type": "development"}, nil)
	var created models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{"missing id", map[string]any{"name": "X"}, http.StatusBadRequest, "ID is required"},
		{"empty name", map[string]any{"id": created.ID, "name": ""}, http.StatusBadRequest, "Name must be a non-empty string"},
		{"numeric name", map[string]any{"id": created.ID, "name": 7}, http.StatusBadRequest, "Name must be a non-empty string"},
		{"bad type", map[string]any{"id": created.ID, "type": "qa"}, http.StatusBadRequest, "Type must be either development or production"},
		{"string limit", map[string]any{"id": created.ID, "monthlyLimit": "many"}, http.StatusBadRequest, "Monthly limit must be a positive number or null"},
		{"zero limit", map[string]any{"id": created.ID, "monthlyLimit": 0}, http.StatusBadRequest, "Monthly limit must be a positive number or null"},
		{"string isActive", map[string]any{"id": created.ID, "isActive": "yes"}, http.StatusBadRequest, "isActive must be a boolean"},
		{"unknown id", map[string]any{"id": "nope", "name": "X"}, http.StatusNotFound, "API key not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPut, "/api/api-keys", tokenAlice, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if got := decodeEnvelope(t, rec).Error; got != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, got)
			}
		})
	}
}

func TestAPIKeyUpdate_ForeignKeyLooksMissing(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{"name": "A", "type": "development"}, nil)
	var created models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}

	rec = env.request(t, http.MethodPut, "/api/api-keys", tokenBob, map[string]any{
		"id": created.ID, "name": "Hijacked",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign key, got %d", rec.Code)
	}
	if got := decodeEnvelope(t, rec).Error; got != "API key not found" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestAPIKeyDelete(t *testing.T) {
	env := newTestEnv(t, config.GitHubConfig{})

	rec := env.request(t, http.MethodPost, "/api/api-keys", tokenAlice, map[string]any{"name": "Doomed", "type": "development"}, nil)
	var created models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}

	rec = env.request(t, http.MethodDelete, "/api/api-keys", tokenAlice, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodDelete, "/api/api-keys?id="+created.ID, tokenBob, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign owner, got %d", rec.Code)
	}

	rec = env.request(t, http.MethodDelete, "/api/api-keys?id="+created.ID, tokenAlice, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var deleted models.APIKey
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &deleted); err != nil {
		t.Fatalf("failed to decode key: %v", err)
	}
	if deleted.ID != created.ID {
		t.Errorf("expected deleted record returned, got %+v", deleted)
	}

	// The secret no longer validates
	rec = env.request(t, http.MethodPost, "/api/validate-api-key", "", map[string]any{"apiKey": created.Key}, nil)
	var result validateKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode validation response: %v", err)
	}
	if result.IsValid {
		t.Error("expected deleted key to be invalid")
	}
}
