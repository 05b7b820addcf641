package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const githubDefaultBaseURL = "https://github.com"

// defaultPollInterval is used when the server omits the interval field.
const defaultPollInterval = 5

// deviceCodeGrantType identifies the device flow on the token endpoint.
const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Options configures a GitHubDeviceFlow. The value is copied at construction
// and never mutated afterwards.
type Options struct {
	// ClientID is the OAuth App client ID. Required.
	ClientID string
	// Scope is the requested OAuth scope. Defaults to read:user.
	Scope string
	// BaseURL overrides the GitHub base URL. Empty means https://github.com;
	// tests pass an httptest server URL.
	BaseURL string
	// HTTPClient overrides the HTTP client. Defaults to a 15s-timeout client.
	HTTPClient *http.Client
	// Clock returns the current time. Defaults to time.Now; tests override it
	// to simulate elapsed time without real delays.
	Clock func() time.Time
	// Sleep blocks for the given duration or until ctx is done. Defaults to a
	// timer-based sleep; tests override it to skip delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// GitHubDeviceFlow implements the OAuth 2.0 Device Authorization Flow for GitHub.
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
type GitHubDeviceFlow struct {
	clientID string
	scope    string
	baseURL  string
	client   *http.Client
	clock    func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewGitHubDeviceFlow creates a GitHubDeviceFlow from opts, filling in defaults
// for every field except ClientID.
func NewGitHubDeviceFlow(opts Options) *GitHubDeviceFlow {
	f := &GitHubDeviceFlow{
		clientID: opts.ClientID,
		scope:    opts.Scope,
		baseURL:  opts.BaseURL,
		client:   opts.HTTPClient,
		clock:    opts.Clock,
		sleep:    opts.Sleep,
	}
	if f.scope == "" {
		f.scope = "read:user"
	}
	if f.baseURL == "" {
		f.baseURL = githubDefaultBaseURL
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 15 * time.Second}
	}
	if f.clock == nil {
		f.clock = time.Now
	}
	if f.sleep == nil {
		f.sleep = sleepCtx
	}
	return f
}

// sleepCtx blocks for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestCode requests a device code and user code from GitHub.
// The returned DeviceCodeResponse.UserCode must be shown to the user along with
// VerificationURI. A response carrying an error field is terminal: it means the
// client ID or scope is wrong, and no polling should ever start.
func (f *GitHubDeviceFlow) RequestCode(ctx context.Context) (DeviceCodeResponse, error) {
	if f.clientID == "" {
		return DeviceCodeResponse{}, fmt.Errorf("client ID is not set")
	}

	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("scope", f.scope)

	endpoint, err := url.JoinPath(f.baseURL, "/login/device/code")
	if err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("building URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return DeviceCodeResponse{}, &TransportError{Op: "requesting device code", Err: err}
	}
	defer resp.Body.Close()

	var raw struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
		Error           string `json:"error"`
		ErrorDesc       string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return DeviceCodeResponse{}, &TransportError{Op: "decoding device code response", Err: err}
	}
	if raw.Error != "" {
		return DeviceCodeResponse{}, &ServerError{Code: raw.Error, Description: raw.ErrorDesc}
	}

	code := DeviceCodeResponse{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}
	if code.Interval <= 0 {
		code.Interval = defaultPollInterval
	}
	return code, nil
}

// PollToken polls the GitHub token endpoint until the user authorizes the
// device, the code expires, or GitHub returns a terminal error.
//
// Each cycle sleeps for the current interval, checks the expiry deadline, then
// issues one poll request. ClassifyPoll decides what happens next:
// authorization_pending keeps polling, slow_down stretches the interval by 5s
// per RFC 8628, and anything else ends the flow with an AuthorizationError.
// Transport failures are retried on the same cadence; they never outlive the
// deadline. Cancel ctx to abort the loop early.
func (f *GitHubDeviceFlow) PollToken(ctx context.Context, code DeviceCodeResponse) (string, error) {
	tokenEndpoint, err := url.JoinPath(f.baseURL, "/login/oauth/access_token")
	if err != nil {
		return "", fmt.Errorf("building URL: %w", err)
	}

	interval := code.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	expiry := time.Duration(code.ExpiresIn) * time.Second
	deadline := f.clock().Add(expiry)

	var lastTransport error
	for {
		if err := f.sleep(ctx, time.Duration(interval)*time.Second); err != nil {
			return "", err
		}
		if !f.clock().Before(deadline) {
			return "", &TimeoutError{After: expiry, Err: lastTransport}
		}

		raw, pollErr := f.pollOnce(ctx, tokenEndpoint, code.DeviceCode)
		if pollErr != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastTransport = pollErr
			continue
		}

		switch res := ClassifyPoll(raw.AccessToken, raw.Error, raw.ErrorDesc); res.State {
		case PollGranted:
			return res.AccessToken, nil
		case PollPending:
			// keep polling
		case PollSlowDown:
			interval += 5
		case PollDenied:
			return "", &AuthorizationError{Code: res.Code, Description: res.Description}
		}
	}
}

// tokenPollResponse is the decoded body of one token poll.
type tokenPollResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// pollOnce issues a single poll request. All failures are TransportErrors;
// interpreting the decoded body is the caller's job.
func (f *GitHubDeviceFlow) pollOnce(ctx context.Context, endpoint, deviceCode string) (tokenPollResponse, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("device_code", deviceCode)
	data.Set("grant_type", deviceCodeGrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return tokenPollResponse{}, &TransportError{Op: "creating poll request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return tokenPollResponse{}, &TransportError{Op: "polling token", Err: err}
	}
	defer resp.Body.Close()

	var raw tokenPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return tokenPollResponse{}, &TransportError{Op: "decoding token response", Err: err}
	}
	return raw, nil
}
