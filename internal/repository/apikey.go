package repository

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helvet/keyhub/internal/models"
)

// ErrNotFound is returned when no row matches the given id and owner.
// A key owned by someone else is indistinguishable from an absent one.
var ErrNotFound = errors.New("not found")

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// APIKeyCreateOptions contains options for creating an API key
type APIKeyCreateOptions struct {
	UserID       string
	Name         string
	Type         string
	MonthlyLimit *int64
}

const keySuffixLength = 26

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKey produces a new secret of the form ak_dev_... or ak_prod_...
// with a random alphanumeric suffix.
func GenerateKey(keyType string) (string, error) {
	prefix := "ak_dev_"
	if keyType == models.KeyTypeProduction {
		prefix = "ak_prod_"
	}

	b := make([]byte, keySuffixLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	for i := range b {
		b[i] = keyAlphabet[int(b[i])%len(keyAlphabet)]
	}
	return prefix + string(b), nil
}

// Create inserts a new API key for the owner. Usage starts at zero and
// the key is active. The returned record carries the plaintext secret;
// this is the only time callers see it in full.
func (r *APIKeyRepository) Create(opts APIKeyCreateOptions) (*models.APIKey, error) {
	key, err := GenerateKey(opts.Type)
	if err != nil {
		return nil, err
	}

	apiKey := &models.APIKey{
		ID:           uuid.New().String(),
		UserID:       opts.UserID,
		Name:         opts.Name,
		Key:          key,
		Type:         opts.Type,
		Usage:        0,
		MonthlyLimit: opts.MonthlyLimit,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	var monthlyLimit any
	if apiKey.MonthlyLimit != nil {
		monthlyLimit = *apiKey.MonthlyLimit
	}

	_, err = r.db.Exec(`
		INSERT INTO api_keys (id, user_id, name, key, type, usage, monthly_limit, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		apiKey.ID, apiKey.UserID, apiKey.Name, apiKey.Key, apiKey.Type,
		apiKey.Usage, monthlyLimit, 1, apiKey.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return apiKey, nil
}

// ListByUser returns all keys owned by userID, newest first.
func (r *APIKeyRepository) ListByUser(userID string) ([]models.APIKey, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, key, type, usage, monthly_limit, is_active, created_at, last_used
		FROM api_keys WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []models.APIKey{}
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// GetByID returns the key with the given id owned by userID, or
// ErrNotFound. Existence and ownership are checked in one filter.
func (r *APIKeyRepository) GetByID(id, userID string) (*models.APIKey, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, key, type, usage, monthly_limit, is_active, created_at, last_used
		FROM api_keys WHERE id = ? AND user_id = ?`, id, userID)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// APIKeyUpdate names the fields to change; nil fields are left as-is.
// ClearMonthlyLimit removes the limit (monthlyLimit: null in the API).
type APIKeyUpdate struct {
	Name              *string
	Type              *string
	MonthlyLimit      *int64
	ClearMonthlyLimit bool
	IsActive          *bool
}

// Update applies the non-nil fields to the key with the given id and
// owner, returning the updated record.
func (r *APIKeyRepository) Update(id, userID string, upd APIKeyUpdate) (*models.APIKey, error) {
	sets := []string{}
	args := []any{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *upd.Type)
	}
	if upd.MonthlyLimit != nil {
		sets = append(sets, "monthly_limit = ?")
		args = append(args, *upd.MonthlyLimit)
	} else if upd.ClearMonthlyLimit {
		sets = append(sets, "monthly_limit = NULL")
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}

	if len(sets) == 0 {
		return r.GetByID(id, userID)
	}

	query := "UPDATE api_keys SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	args = append(args, id, userID)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(id, userID)
}

// Delete removes the key matching id and owner in a single conditional
// statement and returns the deleted record.
func (r *APIKeyRepository) Delete(id, userID string) (*models.APIKey, error) {
	key, err := r.GetByID(id, userID)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec("DELETE FROM api_keys WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete API key: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}

	return key, nil
}

// FindActiveBySecret looks up an active key by its exact secret value.
func (r *APIKeyRepository) FindActiveBySecret(secret string) (*models.APIKey, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, key, type, usage, monthly_limit, is_active, created_at, last_used
		FROM api_keys WHERE key = ? AND is_active = 1`, secret)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// FindActiveBySecretForUser is FindActiveBySecret additionally
// constrained to keys owned by userID.
func (r *APIKeyRepository) FindActiveBySecretForUser(secret, userID string) (*models.APIKey, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, name, key, type, usage, monthly_limit, is_active, created_at, last_used
		FROM api_keys WHERE key = ? AND is_active = 1 AND user_id = ?`, secret, userID)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// ConsumeUsage atomically records one use of the key: usage is
// incremented and last_used stamped only while the key is active and
// still below its monthly limit. Returns whether a use was recorded.
func (r *APIKeyRepository) ConsumeUsage(id string, now time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE api_keys
		SET usage = usage + 1, last_used = ?
		WHERE id = ? AND is_active = 1
		  AND (monthly_limit IS NULL OR usage < monthly_limit)`,
		now, id,
	)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*models.APIKey, error) {
	k := &models.APIKey{}
	var monthlyLimit sql.NullInt64
	var lastUsed sql.NullTime

	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.Key, &k.Type,
		&k.Usage, &monthlyLimit, &k.IsActive, &k.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}

	if monthlyLimit.Valid {
		v := monthlyLimit.Int64
		k.MonthlyLimit = &v
	}
	if lastUsed.Valid {
		k.LastUsed = &lastUsed.Time
	}
	return k, nil
}
