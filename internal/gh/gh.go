// Package gh asks the GitHub CLI for an existing token, so users who already
// ran `gh auth login` (common with enterprise SSO) skip the device flow.
package gh

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const helperTimeout = 10 * time.Second

// Token runs `gh auth token` and returns the trimmed output.
// Any failure — binary not installed, not logged in, SSO not authorized —
// just means the helper is unavailable; the caller falls back to another
// token source.
func Token(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return "", fmt.Errorf("running gh auth token: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("gh auth token returned no token")
	}
	return token, nil
}
