package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/huangjie2/copilot-llm/internal/auth"
	"github.com/huangjie2/copilot-llm/internal/copilot"
)

// CodeMsg carries the device code response, or the error that prevented it.
// It is exported so that tests can inject it directly into LoginModel.Update.
type CodeMsg struct {
	Code auth.DeviceCodeResponse
	Err  error
}

// AuthorizedMsg signals that polling finished: the user authorized the device
// (Token set) or the flow ended in an error.
type AuthorizedMsg struct {
	Token string
	Err   error
}

// ExchangedMsg signals that the Copilot token exchange completed.
type ExchangedMsg struct {
	Token copilot.Token
	Err   error
}

// tickMsg drives the elapsed-time display while waiting for authorization.
type tickMsg struct{}

// loginState indicates how far the login flow has progressed.
type loginState int

const (
	stateRequesting loginState = iota
	statePolling
	stateExchanging
	stateDone
	stateFailed
)

// LoginModel is the Bubbletea model for the interactive login flow. It shows
// the verification code while the device flow polls in the background, then
// the exchange result. The network work runs in tea.Cmds through the three
// callbacks, which the caller must set before running the program.
type LoginModel struct {
	state        loginState
	code         auth.DeviceCodeResponse
	githubToken  string
	copilotToken copilot.Token
	err          error
	elapsed      int // seconds spent polling
	// Callbacks for the flow steps (set by caller via exported fields)
	OnRequestCode func(ctx context.Context) (auth.DeviceCodeResponse, error)
	OnPollToken   func(ctx context.Context, code auth.DeviceCodeResponse) (string, error)
	OnExchange    func(ctx context.Context, githubToken string) (copilot.Token, error)
}

// NewLoginModel creates the login model in its initial requesting state.
func NewLoginModel() LoginModel {
	return LoginModel{state: stateRequesting}
}

// Err returns the error the flow ended with, if any.
func (m LoginModel) Err() error { return m.err }

// GitHubToken returns the GitHub token obtained by the flow.
func (m LoginModel) GitHubToken() string { return m.githubToken }

// CopilotToken returns the Copilot token obtained by the flow.
func (m LoginModel) CopilotToken() copilot.Token { return m.copilotToken }

// Init requests the device code.
func (m LoginModel) Init() tea.Cmd {
	return m.requestCode()
}

func (m LoginModel) requestCode() tea.Cmd {
	return func() tea.Msg {
		code, err := m.OnRequestCode(context.Background())
		return CodeMsg{Code: code, Err: err}
	}
}

func (m LoginModel) pollToken() tea.Cmd {
	return func() tea.Msg {
		token, err := m.OnPollToken(context.Background(), m.code)
		return AuthorizedMsg{Token: token, Err: err}
	}
}

func (m LoginModel) exchangeToken() tea.Cmd {
	return func() tea.Msg {
		tok, err := m.OnExchange(context.Background(), m.githubToken)
		return ExchangedMsg{Token: tok, Err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles all incoming messages and key events.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case CodeMsg:
		if msg.Err != nil {
			m.state = stateFailed
			m.err = msg.Err
			return m, tea.Quit
		}
		m.state = statePolling
		m.code = msg.Code
		return m, tea.Batch(m.pollToken(), tick())

	case tickMsg:
		if m.state != statePolling {
			return m, nil
		}
		m.elapsed++
		return m, tick()

	case AuthorizedMsg:
		if msg.Err != nil {
			m.state = stateFailed
			m.err = msg.Err
			return m, tea.Quit
		}
		m.state = stateExchanging
		m.githubToken = msg.Token
		return m, m.exchangeToken()

	case ExchangedMsg:
		if msg.Err != nil {
			m.state = stateFailed
			m.err = msg.Err
			return m, tea.Quit
		}
		m.state = stateDone
		m.copilotToken = msg.Token
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.err == nil {
				m.err = fmt.Errorf("login cancelled")
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the current step of the login flow.
func (m LoginModel) View() string {
	var sb strings.Builder
	sb.WriteString("GitHub Copilot login\n\n")

	switch m.state {
	case stateRequesting:
		sb.WriteString("Requesting device code...\n")

	case statePolling:
		sb.WriteString(fmt.Sprintf("Visit:      %s\n", m.code.VerificationURI))
		sb.WriteString(fmt.Sprintf("Enter code: %s\n\n", m.code.UserCode))
		remaining := m.code.ExpiresIn - m.elapsed
		if remaining < 0 {
			remaining = 0
		}
		sb.WriteString(fmt.Sprintf("Waiting for authorization... %s (code expires in %s)\n",
			formatSeconds(m.elapsed), formatSeconds(remaining)))
		sb.WriteString("\nPress q to cancel.\n")

	case stateExchanging:
		sb.WriteString("Authorized. Fetching Copilot token...\n")

	case stateDone:
		sb.WriteString("Copilot token received.\n\n")
		sb.WriteString(fmt.Sprintf("Token:   %s\n", maskToken(m.copilotToken.Token)))
		if m.copilotToken.ExpiresAt > 0 {
			expires := time.Unix(m.copilotToken.ExpiresAt, 0)
			sb.WriteString(fmt.Sprintf("Expires: %s\n", expires.Format("2006-01-02 15:04:05")))
		}

	case stateFailed:
		sb.WriteString(fmt.Sprintf("Login failed: %v\n", m.err))
	}
	return sb.String()
}

// maskToken shows only the start of a token so a shoulder-surfer cannot copy it.
func maskToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}

func formatSeconds(s int) string {
	return (time.Duration(s) * time.Second).String()
}
