package auth

// DeviceCodeResponse holds the initial response from a device authorization request.
// It contains the code to show the user and the parameters needed for polling.
type DeviceCodeResponse struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds until the device code expires
	Interval        int // minimum polling interval in seconds
}

// PollState is the outcome of classifying a single token poll response.
type PollState int

const (
	// PollGranted means the user authorized the device and a token was issued.
	PollGranted PollState = iota
	// PollPending means the user has not finished authorizing yet; keep polling.
	PollPending
	// PollSlowDown means the server wants a longer interval between polls.
	PollSlowDown
	// PollDenied means the flow failed for good: the user declined, the code
	// expired, or the server returned an error code we do not recognize.
	PollDenied
)

// PollResult is the classified outcome of one poll response.
// AccessToken is set only for PollGranted; Code and Description only for PollDenied.
type PollResult struct {
	State       PollState
	AccessToken string
	Code        string
	Description string
}

// ClassifyPoll maps the fields of a decoded token poll response onto a PollResult.
// It centralizes the fatal/retryable distinction: authorization_pending and
// slow_down are the only error codes that keep the flow alive.
func ClassifyPoll(accessToken, errorCode, errorDescription string) PollResult {
	switch errorCode {
	case "":
		if accessToken != "" {
			return PollResult{State: PollGranted, AccessToken: accessToken}
		}
		// Neither a token nor an error code. Treat it like a pending poll so a
		// glitchy response does not kill the flow; the deadline bounds retries.
		return PollResult{State: PollPending}
	case "authorization_pending":
		return PollResult{State: PollPending}
	case "slow_down":
		return PollResult{State: PollSlowDown}
	default:
		return PollResult{State: PollDenied, Code: errorCode, Description: errorDescription}
	}
}
