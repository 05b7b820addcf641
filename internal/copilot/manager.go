package copilot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenStore is the persistence collaborator the Manager reads and writes
// through. internal/store provides the file-based implementation; tests
// provide in-memory fakes.
type TokenStore interface {
	GitHubToken() (string, error)
	CopilotToken() (Token, error)
	SaveCopilotToken(Token) error
}

// Manager hands out a usable Copilot token, re-running the exchange on demand
// when the stored one is missing or stale. Refresh only ever happens inside a
// Token call; there is no background renewal.
type Manager struct {
	store     TokenStore
	exchanger *Exchanger
	clock     func() time.Time
	mu        sync.Mutex
}

// NewManager creates a Manager. clock may be nil, in which case time.Now is
// used; tests pass a fake to control expiry.
func NewManager(store TokenStore, exchanger *Exchanger, clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{store: store, exchanger: exchanger, clock: clock}
}

// Token returns the stored Copilot token if it is still valid, otherwise
// exchanges the stored GitHub token for a fresh one and persists it.
// A fresh token is returned even when persisting it fails, since it is usable
// for this process; the save failure rides along as the error.
func (m *Manager) Token(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok, err := m.store.CopilotToken(); err == nil && tok.Valid(m.clock()) {
		return tok, nil
	}

	githubToken, err := m.store.GitHubToken()
	if err != nil {
		return Token{}, fmt.Errorf("no GitHub token available: %w", err)
	}

	tok, err := m.exchanger.Exchange(ctx, githubToken)
	if err != nil {
		return Token{}, err
	}

	if saveErr := m.store.SaveCopilotToken(tok); saveErr != nil {
		return tok, fmt.Errorf("token exchanged but failed to save: %w", saveErr)
	}
	return tok, nil
}
