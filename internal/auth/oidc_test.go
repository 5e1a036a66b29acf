package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestOIDCStateExpiry(t *testing.T) {
	p := &OIDCProvider{states: make(map[string]time.Time)}

	url, err := p.AuthCodeURL()
	if err != nil {
		t.Fatalf("failed to build auth URL: %v", err)
	}
	if !strings.Contains(url, "state=") {
		t.Fatalf("expected state in auth URL, got %q", url)
	}

	var state string
	for s := range p.states {
		state = s
	}
	if state == "" {
		t.Fatal("expected an outstanding state after AuthCodeURL")
	}

	// Backdate past the TTL: the callback must reject it
	p.states[state] = time.Now().Add(-stateTTL - time.Minute)
	if _, _, err := p.Exchange(context.Background(), state, "code"); err == nil {
		t.Fatal("expected expired state to be rejected")
	}
	if _, ok := p.states[state]; ok {
		t.Error("expected expired state to be removed")
	}
}

func TestOIDCStatePruning(t *testing.T) {
	p := &OIDCProvider{states: make(map[string]time.Time)}
	p.states["stale-1"] = time.Now().Add(-time.Hour)
	p.states["stale-2"] = time.Now().Add(-time.Hour)

	if _, err := p.AuthCodeURL(); err != nil {
		t.Fatalf("failed to build auth URL: %v", err)
	}
	if len(p.states) != 1 {
		t.Errorf("expected stale states pruned, %d remain", len(p.states))
	}

	if _, _, err := p.Exchange(context.Background(), "stale-1", "code"); err == nil {
		t.Error("expected pruned state to be rejected")
	}
}

func TestOIDCStateUnknown(t *testing.T) {
	p := &OIDCProvider{states: make(map[string]time.Time)}
	if _, _, err := p.Exchange(context.Background(), "never-issued", "code"); err == nil {
		t.Fatal("expected unknown state to be rejected")
	}
}
