package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a presented bearer token is rejected
// by the identity provider.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified principal resolved from a bearer token.
// It is read-only from this service's point of view.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Provider resolves bearer tokens to identities.
type Provider interface {
	// Authenticate verifies token and returns the identity it belongs
	// to, or ErrInvalidToken when the token is rejected.
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// StaticProvider authenticates against a fixed token->identity map.
// It backs tests and single-user deployments without an OIDC issuer.
type StaticProvider struct {
	tokens map[string]Identity
}

func NewStaticProvider(tokens map[string]Identity) *StaticProvider {
	return &StaticProvider{tokens: tokens}
}

func (p *StaticProvider) Authenticate(_ context.Context, token string) (*Identity, error) {
	id, ok := p.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}

// ChainProvider tries each provider in order and accepts the first
// identity. A token all providers reject is invalid.
type ChainProvider struct {
	providers []Provider
}

func NewChainProvider(providers ...Provider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

func (p *ChainProvider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	for _, provider := range p.providers {
		id, err := provider.Authenticate(ctx, token)
		if err == nil {
			return id, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrInvalidToken
}
