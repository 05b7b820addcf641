package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// defaultClientID is the OAuth App client ID of the VSCode Copilot extension.
// The device flow needs a client that already has Copilot entitlements, so it
// is the sensible default; users can override it in the config file.
const defaultClientID = "Iv1.b507a08c87ecfe98"

const defaultScope = "read:user"

// GitHubConfig holds authentication configuration for GitHub.
type GitHubConfig struct {
	ClientID string `toml:"client_id"`
	Scope    string `toml:"scope"`
	Token    string `toml:"token"`
	URL      string `toml:"url"` // base URL override, e.g. a GitHub Enterprise host
}

// CopilotConfig holds configuration for the Copilot token exchange.
type CopilotConfig struct {
	APIURL        string `toml:"api_url"`
	UserAgent     string `toml:"user_agent"`
	EditorVersion string `toml:"editor_version"`
}

// Config holds all copilot-llm configuration.
type Config struct {
	GitHub   GitHubConfig  `toml:"github"`
	Copilot  CopilotConfig `toml:"copilot"`
	TokenDir string        `toml:"token_dir"`
}

// ClientIDOrDefault returns github.client_id if set, otherwise the embedded
// VSCode Copilot client ID.
func (c Config) ClientIDOrDefault() string {
	if c.GitHub.ClientID != "" {
		return c.GitHub.ClientID
	}
	return defaultClientID
}

// ScopeOrDefault returns github.scope if set, otherwise read:user.
func (c Config) ScopeOrDefault() string {
	if c.GitHub.Scope != "" {
		return c.GitHub.Scope
	}
	return defaultScope
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - GITHUB_TOKEN    overrides github.token
//   - GITHUB_URL      overrides github.url
//   - COPILOT_API_URL overrides copilot.api_url
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the copilot-llm config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "copilot-llm", "config.toml")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_URL"); v != "" {
		cfg.GitHub.URL = v
	}
	if v := os.Getenv("COPILOT_API_URL"); v != "" {
		cfg.Copilot.APIURL = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as
// needed. Existing file contents are overwritten. Permissions on the written
// file are 0600 since it may hold a token.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
