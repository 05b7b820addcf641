package copilot_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/huangjie2/copilot-llm/internal/copilot"
)

// fakeStore satisfies copilot.TokenStore for manager tests.
type fakeStore struct {
	githubToken  string
	copilotToken copilot.Token
	hasCopilot   bool
	saved        []copilot.Token
}

func (f *fakeStore) GitHubToken() (string, error) {
	if f.githubToken == "" {
		return "", os.ErrNotExist
	}
	return f.githubToken, nil
}

func (f *fakeStore) CopilotToken() (copilot.Token, error) {
	if !f.hasCopilot {
		return copilot.Token{}, os.ErrNotExist
	}
	return f.copilotToken, nil
}

func (f *fakeStore) SaveCopilotToken(tok copilot.Token) error {
	f.copilotToken = tok
	f.hasCopilot = true
	f.saved = append(f.saved, tok)
	return nil
}

func TestManager_ReturnsStoredTokenWhileValid(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
	}))
	defer server.Close()

	now := time.Unix(1700000000, 0)
	st := &fakeStore{
		githubToken:  "gho_github",
		copilotToken: copilot.Token{Token: "stored", ExpiresAt: now.Add(time.Hour).Unix()},
		hasCopilot:   true,
	}
	mgr := copilot.NewManager(st, copilot.NewExchanger(copilot.Options{APIBaseURL: server.URL}), func() time.Time { return now })

	tok, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Token != "stored" {
		t.Errorf("token: want 'stored', got '%s'", tok.Token)
	}
	if callCount != 0 {
		t.Errorf("expected no exchange while the stored token is valid, got %d calls", callCount)
	}
}

func TestManager_RefreshesExpiredTokenAndPersists(t *testing.T) {
	now := time.Unix(1700000000, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token gho_github" {
			t.Errorf("Authorization: want 'token gho_github', got '%s'", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      "fresh",
			"expires_at": now.Add(30 * time.Minute).Unix(),
		})
	}))
	defer server.Close()

	st := &fakeStore{
		githubToken:  "gho_github",
		copilotToken: copilot.Token{Token: "stale", ExpiresAt: now.Add(-time.Hour).Unix()},
		hasCopilot:   true,
	}
	mgr := copilot.NewManager(st, copilot.NewExchanger(copilot.Options{APIBaseURL: server.URL}), func() time.Time { return now })

	tok, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Token != "fresh" {
		t.Errorf("token: want 'fresh', got '%s'", tok.Token)
	}
	if len(st.saved) != 1 || st.saved[0].Token != "fresh" {
		t.Errorf("expected fresh token persisted, saved: %+v", st.saved)
	}
}

func TestManager_NoGitHubTokenIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	st := &fakeStore{}
	mgr := copilot.NewManager(st, copilot.NewExchanger(copilot.Options{APIBaseURL: server.URL}), nil)

	_, err := mgr.Token(context.Background())
	if err == nil {
		t.Fatal("expected error when no GitHub token is stored, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the store's not-exist error to be wrapped, got %v", err)
	}
}
