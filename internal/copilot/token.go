package copilot

import "time"

// expirySkew is subtracted from a token's lifetime when checking freshness, so
// a token about to expire is refreshed before a request can race its expiry.
const expirySkew = 60 * time.Second

// Token is a Copilot API token with its expiry.
// The JSON form matches the copilot-token.json file on disk.
type Token struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"` // Unix seconds; 0 means expiry unknown
}

// Valid reports whether the token can still be used at the given time.
// A zero ExpiresAt means the server did not report an expiry, which is treated
// as already stale: callers must re-exchange rather than trust it.
func (t Token) Valid(now time.Time) bool {
	if t.Token == "" || t.ExpiresAt == 0 {
		return false
	}
	return now.Add(expirySkew).Unix() < t.ExpiresAt
}
