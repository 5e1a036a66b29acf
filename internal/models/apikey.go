package models

import "time"

// Key types
const (
	KeyTypeDevelopment = "development"
	KeyTypeProduction  = "production"
)

// APIKey represents one issued credential together with its accounting
// state. The secret value in Key is stored verbatim; validation matches
// the presented string exactly.
type APIKey struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	Key          string     `json:"key"`
	Type         string     `json:"type"`
	Usage        int64      `json:"usage"`
	MonthlyLimit *int64     `json:"monthly_limit"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// ValidKeyType reports whether t is a recognized key type.
func ValidKeyType(t string) bool {
	return t == KeyTypeDevelopment || t == KeyTypeProduction
}

// CanUse reports whether a validation against this key may be admitted:
// the key must be active and, when a monthly limit is set, usage must
// still be below it.
func (k *APIKey) CanUse() bool {
	if !k.IsActive {
		return false
	}
	if k.MonthlyLimit != nil && k.Usage >= *k.MonthlyLimit {
		return false
	}
	return true
}

// OverLimit reports whether the key has a monthly limit and has already
// used it up.
func (k *APIKey) OverLimit() bool {
	return k.MonthlyLimit != nil && k.Usage >= *k.MonthlyLimit
}
