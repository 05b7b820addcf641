package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const apiDefaultBaseURL = "https://api.github.com"

// Default identity headers. The Copilot token endpoint rejects callers that do
// not present a known editor, so these mimic the VSCode Copilot Chat extension.
const (
	defaultUserAgent     = "GitHubCopilotChat/0.26.7"
	defaultEditorVersion = "vscode/1.85.1"
)

// ExchangeError is returned when the token exchange response carries no token.
// Body holds the raw server response so the caller can tell a revoked scope
// from a missing Copilot entitlement.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed (HTTP %d): %s", e.StatusCode, e.Body)
}

// Options configures an Exchanger. The value is copied at construction and
// never mutated afterwards.
type Options struct {
	// APIBaseURL overrides the GitHub API base URL. Empty means
	// https://api.github.com; tests pass an httptest server URL.
	APIBaseURL string
	// UserAgent and EditorVersion are sent on every exchange request.
	// Empty means the VSCode Copilot Chat defaults.
	UserAgent     string
	EditorVersion string
	// HTTPClient overrides the HTTP client. Defaults to a 15s-timeout client.
	HTTPClient *http.Client
}

// Exchanger trades a GitHub access token for a Copilot API token.
type Exchanger struct {
	baseURL       string
	userAgent     string
	editorVersion string
	client        *http.Client
}

// NewExchanger creates an Exchanger from opts, filling in defaults.
func NewExchanger(opts Options) *Exchanger {
	e := &Exchanger{
		baseURL:       opts.APIBaseURL,
		userAgent:     opts.UserAgent,
		editorVersion: opts.EditorVersion,
		client:        opts.HTTPClient,
	}
	if e.baseURL == "" {
		e.baseURL = apiDefaultBaseURL
	}
	if e.userAgent == "" {
		e.userAgent = defaultUserAgent
	}
	if e.editorVersion == "" {
		e.editorVersion = defaultEditorVersion
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: 15 * time.Second}
	}
	return e
}

// Exchange presents githubToken to the Copilot token endpoint and returns the
// resulting Copilot token. Exactly one request is made per call: nothing is
// cached, and a failed exchange is never retried here because its causes
// (revoked scope, expired GitHub token, no Copilot seat) do not heal on retry.
// ExpiresAt is 0 when the server omits expires_at; callers must treat that as
// immediately stale.
func (e *Exchanger) Exchange(ctx context.Context, githubToken string) (Token, error) {
	if githubToken == "" {
		return Token{}, fmt.Errorf("github token is empty")
	}

	endpoint, err := url.JoinPath(e.baseURL, "/copilot_internal/v2/token")
	if err != nil {
		return Token{}, fmt.Errorf("building URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return Token{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "token "+githubToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Editor-Version", e.editorVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("requesting copilot token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("reading exchange response: %w", err)
	}

	var raw struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Token{}, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if raw.Token == "" {
		return Token{}, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return Token{Token: raw.Token, ExpiresAt: raw.ExpiresAt}, nil
}
