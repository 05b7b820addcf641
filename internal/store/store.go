// Package store persists the GitHub and Copilot tokens under a local
// configuration directory. The directory is injected by the caller so nothing
// here assumes a fixed location.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangjie2/copilot-llm/internal/copilot"
)

const (
	githubTokenFile  = "github-token"
	copilotTokenFile = "copilot-token.json"
)

// Store reads and writes token files in a single directory.
// Token files are written 0600 under a 0700 directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the default token directory, ~/.config/copilot-llm.
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "copilot-llm")
}

// SaveGitHubToken writes the raw GitHub token as plain text.
func (s *Store) SaveGitHubToken(token string) error {
	return s.write(githubTokenFile, []byte(token))
}

// GitHubToken reads the stored GitHub token. A missing file is reported via
// os.IsNotExist so callers can fall back to the device flow.
func (s *Store) GitHubToken() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, githubTokenFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveCopilotToken writes the Copilot token as a {token, expiresAt} JSON document.
func (s *Store) SaveCopilotToken(tok copilot.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding copilot token: %w", err)
	}
	return s.write(copilotTokenFile, data)
}

// CopilotToken reads the stored Copilot token. A missing file is reported via
// os.IsNotExist.
func (s *Store) CopilotToken() (copilot.Token, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, copilotTokenFile))
	if err != nil {
		return copilot.Token{}, err
	}
	var tok copilot.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return copilot.Token{}, fmt.Errorf("decoding %s: %w", copilotTokenFile, err)
	}
	return tok, nil
}

func (s *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
