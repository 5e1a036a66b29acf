package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/helvet/keyhub/internal/config"
)

// OIDCProvider verifies bearer tokens as OIDC ID tokens. It also carries
// the authorization-code flow used by the login/callback endpoints to
// obtain such tokens in the first place.
type OIDCProvider struct {
	config   *config.OIDCConfig
	provider *oidc.Provider
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]time.Time // outstanding login states by issue time
}

// A login not completed within this window must be restarted.
const stateTTL = 10 * time.Minute

// NewOIDCProvider creates an OIDC provider by discovering the issuer.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	return &OIDCProvider{
		config:   cfg,
		provider: provider,
		oauth2:   oauth2Config,
		verifier: verifier,
		states:   make(map[string]time.Time),
	}, nil
}

// Authenticate verifies token as an ID token issued for this client and
// extracts the identity claims.
func (p *OIDCProvider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	idToken, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return &Identity{
		ID:    idToken.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// AuthCodeURL generates the authorization URL with a random state.
func (p *OIDCProvider) AuthCodeURL() (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.pruneStatesLocked()
	p.states[state] = time.Now()
	p.mu.Unlock()

	return p.oauth2.AuthCodeURL(state), nil
}

// pruneStatesLocked drops states older than stateTTL. Callers hold mu.
func (p *OIDCProvider) pruneStatesLocked() {
	cutoff := time.Now().Add(-stateTTL)
	for state, issued := range p.states {
		if issued.Before(cutoff) {
			delete(p.states, state)
		}
	}
}

// Exchange trades an authorization code for the raw ID token and the
// identity it asserts. The state must match one issued by AuthCodeURL.
func (p *OIDCProvider) Exchange(ctx context.Context, state, code string) (string, *Identity, error) {
	p.mu.Lock()
	issued, valid := p.states[state]
	if valid {
		delete(p.states, state)
		valid = time.Since(issued) < stateTTL
	}
	p.mu.Unlock()

	if !valid {
		return "", nil, fmt.Errorf("invalid state")
	}

	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", nil, fmt.Errorf("no id_token in response")
	}

	identity, err := p.Authenticate(ctx, rawIDToken)
	if err != nil {
		return "", nil, err
	}

	return rawIDToken, identity, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
