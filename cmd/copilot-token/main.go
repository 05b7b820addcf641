package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/huangjie2/copilot-llm/internal/auth"
	"github.com/huangjie2/copilot-llm/internal/config"
	"github.com/huangjie2/copilot-llm/internal/copilot"
	"github.com/huangjie2/copilot-llm/internal/gh"
	"github.com/huangjie2/copilot-llm/internal/store"
	"github.com/huangjie2/copilot-llm/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "print version and exit")
	configFlag := flag.String("config", "", "path to config file (default ~/.config/copilot-llm/config.toml)")
	plainFlag := flag.Bool("plain", false, "plain stderr prompts instead of the interactive view")
	forceFlag := flag.Bool("force", false, "run the device flow even if a GitHub token is already available")
	flag.Parse()
	if *versionFlag {
		fmt.Println("copilot-token", version)
		os.Exit(0)
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	tokenDir := cfg.TokenDir
	if tokenDir == "" {
		tokenDir = store.DefaultDir()
	}
	st := store.New(tokenDir)

	flow := auth.NewGitHubDeviceFlow(auth.Options{
		ClientID: cfg.ClientIDOrDefault(),
		Scope:    cfg.ScopeOrDefault(),
		BaseURL:  cfg.GitHub.URL,
	})
	exchanger := copilot.NewExchanger(copilot.Options{
		APIBaseURL:    cfg.Copilot.APIURL,
		UserAgent:     cfg.Copilot.UserAgent,
		EditorVersion: cfg.Copilot.EditorVersion,
	})

	ctx := context.Background()

	githubToken := ""
	if !*forceFlag {
		githubToken = findExistingToken(ctx, cfg, st)
	}

	var copilotToken copilot.Token

	if githubToken != "" {
		// Existing credential: go through the manager, which reuses the stored
		// Copilot token while it is still valid and re-exchanges otherwise.
		if saveErr := st.SaveGitHubToken(githubToken); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save GitHub token: %v\n", saveErr)
		}
		mgr := copilot.NewManager(st, exchanger, nil)
		copilotToken, err = mgr.Token(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Copilot token exchange failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		// Fresh login: run the device flow, then always exchange.
		exchanged := false
		if *plainFlag {
			githubToken, err = runPlainLogin(ctx, flow)
		} else {
			githubToken, copilotToken, err = runLoginView(flow, exchanger)
			exchanged = err == nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "GitHub authentication failed: %v\n", err)
			os.Exit(1)
		}
		if !exchanged {
			fmt.Fprintf(os.Stderr, "Exchanging GitHub token for a Copilot token...\n")
			copilotToken, err = exchanger.Exchange(ctx, githubToken)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Copilot token exchange failed: %v\n", err)
				os.Exit(1)
			}
		}
		if saveErr := st.SaveGitHubToken(githubToken); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save GitHub token: %v\n", saveErr)
		}
		if saveErr := st.SaveCopilotToken(copilotToken); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save Copilot token: %v (you will need to re-run next time)\n", saveErr)
		}
	}
	fmt.Fprintf(os.Stderr, "Tokens saved to %s\n", tokenDir)

	if copilotToken.ExpiresAt > 0 {
		expires := time.Unix(copilotToken.ExpiresAt, 0)
		fmt.Fprintf(os.Stderr, "Copilot token expires at %s\n", expires.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(os.Stderr, "warning: server reported no expiry; treat the token as short-lived\n")
	}

	// Only the token goes to stdout so the command pipes cleanly.
	fmt.Println(copilotToken.Token)
}

// findExistingToken looks for a GitHub token that makes the device flow
// unnecessary: config/env first, then the token file, then the gh CLI.
func findExistingToken(ctx context.Context, cfg config.Config, st *store.Store) string {
	if cfg.GitHub.Token != "" {
		fmt.Fprintf(os.Stderr, "Using GitHub token from config\n")
		return cfg.GitHub.Token
	}
	if token, err := st.GitHubToken(); err == nil && token != "" {
		fmt.Fprintf(os.Stderr, "Using saved GitHub token\n")
		return token
	}
	if token, err := gh.Token(ctx); err == nil {
		fmt.Fprintf(os.Stderr, "Using GitHub token from gh CLI\n")
		return token
	}
	return ""
}

// runPlainLogin runs the device flow with plain stderr prompts.
// All prompts are written to stderr so stdout remains clean for piping.
// It blocks until the user completes authorization or an error occurs.
func runPlainLogin(ctx context.Context, flow *auth.GitHubDeviceFlow) (string, error) {
	code, err := flow.RequestCode(ctx)
	if err != nil {
		return "", fmt.Errorf("requesting device code: %w", err)
	}
	fmt.Fprintf(os.Stderr, "No GitHub token found. Starting OAuth authentication...\n")
	fmt.Fprintf(os.Stderr, "Visit:      %s\n", code.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", code.UserCode)
	fmt.Fprintf(os.Stderr, "Waiting for authorization...\n")
	return flow.PollToken(ctx, code)
}

// runLoginView runs the device flow and the token exchange inside the
// interactive Bubbletea view. Returns both tokens from the final model.
func runLoginView(flow *auth.GitHubDeviceFlow, exchanger *copilot.Exchanger) (string, copilot.Token, error) {
	m := tui.NewLoginModel()
	m.OnRequestCode = flow.RequestCode
	m.OnPollToken = flow.PollToken
	m.OnExchange = exchanger.Exchange

	// Render on stderr so stdout stays reserved for the token.
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", copilot.Token{}, err
	}
	lm := final.(tui.LoginModel)
	if lm.Err() != nil {
		return "", copilot.Token{}, lm.Err()
	}
	return lm.GitHubToken(), lm.CopilotToken(), nil
}
