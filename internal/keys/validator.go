// Package keys implements API key validation with usage accounting.
package keys

import (
	"errors"
	"log/slog"
	"time"

	"github.com/helvet/keyhub/internal/models"
	"github.com/helvet/keyhub/internal/repository"
)

// ErrKeyRequired means the request carried no key at all.
var ErrKeyRequired = errors.New("API key is required")

const (
	msgValid     = "Valid API key"
	msgInvalid   = "Invalid API key"
	msgDenied    = "Invalid API key or access denied"
	msgOverLimit = "API key has exceeded monthly limit"
)

// Result is the outcome of a validation attempt. Key is set only when
// the key was recognized, and reflects the usage recorded by this call.
type Result struct {
	Valid   bool
	Message string
	Key     *models.APIKey
}

type Validator struct {
	keys   *repository.APIKeyRepository
	logger *slog.Logger
}

func NewValidator(keys *repository.APIKeyRepository, logger *slog.Logger) *Validator {
	return &Validator{keys: keys, logger: logger}
}

// Validate checks the secret against any active key and, when it is
// usable, records one use.
func (v *Validator) Validate(secret string) (*Result, error) {
	if secret == "" {
		return nil, ErrKeyRequired
	}
	key, err := v.keys.FindActiveBySecret(secret)
	if errors.Is(err, repository.ErrNotFound) {
		return &Result{Valid: false, Message: msgInvalid}, nil
	}
	if err != nil {
		return nil, err
	}
	return v.consume(key, msgInvalid)
}

// ValidateForUser is Validate restricted to keys owned by userID. A key
// owned by someone else reads the same as an unknown one.
func (v *Validator) ValidateForUser(secret, userID string) (*Result, error) {
	if secret == "" {
		return nil, ErrKeyRequired
	}
	key, err := v.keys.FindActiveBySecretForUser(secret, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &Result{Valid: false, Message: msgDenied}, nil
	}
	if err != nil {
		return nil, err
	}
	return v.consume(key, msgDenied)
}

// consume records one use of the key. The increment is conditional in
// the database, so concurrent validations never push usage past the
// monthly limit.
func (v *Validator) consume(key *models.APIKey, refusedMsg string) (*Result, error) {
	now := time.Now()
	ok, err := v.keys.ConsumeUsage(key.ID, now)
	if err != nil {
		// Accounting is best effort: a write failure does not turn a
		// recognized key into an invalid one.
		v.logger.Warn("failed to record key usage", "key_id", key.ID, "error", err)
		key.Usage++
		key.LastUsed = &now
		return &Result{Valid: true, Message: msgValid, Key: key}, nil
	}
	if !ok {
		// Refused: the key hit its limit, or was revoked since lookup.
		fresh, ferr := v.keys.GetByID(key.ID, key.UserID)
		if ferr == nil && fresh.IsActive && fresh.OverLimit() {
			return &Result{Valid: false, Message: msgOverLimit, Key: fresh}, nil
		}
		return &Result{Valid: false, Message: refusedMsg}, nil
	}

	key.Usage++
	key.LastUsed = &now
	return &Result{Valid: true, Message: msgValid, Key: key}, nil
}
