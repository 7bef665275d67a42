package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	localServerPort = "8080"
	callbackPath    = "/oauth2callback"
)

// OAuthProvider authenticates as the user with an installed-app client.
type OAuthProvider struct {
	Config *oauth2.Config
	Store  TokenStore
	// Authorize obtains a new token when the store is empty. Defaults to
	// GetTokenFromWeb.
	Authorize func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}

// Client returns an HTTP client that refreshes the stored token as needed and
// writes refreshed tokens back to the store. With no stored token the
// authorization flow runs first.
func (p *OAuthProvider) Client(ctx context.Context) (*http.Client, error) {
	tok, err := p.Store.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		slog.Info("no stored token, starting authorization flow")
		tok, err = p.Login(ctx)
	}
	if err != nil {
		return nil, err
	}

	src := &persistingTokenSource{
		ctx:   ctx,
		base:  p.Config.TokenSource(ctx, tok),
		store: p.Store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Login runs the authorization flow unconditionally and stores the token.
func (p *OAuthProvider) Login(ctx context.Context) (*oauth2.Token, error) {
	authorize := p.Authorize
	if authorize == nil {
		authorize = GetTokenFromWeb
	}

	tok, err := authorize(ctx, p.Config)
	if err != nil {
		return nil, fmt.Errorf("unable to get token from web: %w", err)
	}
	if err := p.Store.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("unable to save token: %w", err)
	}
	return tok, nil
}

// persistingTokenSource saves every new access token the base source mints.
type persistingTokenSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(s.ctx, tok); err != nil {
			slog.Warn("failed to persist refreshed token", "error", err)
		} else {
			slog.Debug("persisted refreshed token", "expiry", tok.Expiry)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// GetTokenFromWeb initiates browser-based OAuth flow
func GetTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	config.RedirectURL = fmt.Sprintf("http://localhost:%s%s", localServerPort, callbackPath)
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	server := &http.Server{
		Addr:              ":" + localServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			fmt.Fprintf(w, "Error: state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no authorization code received")
			fmt.Fprintf(w, "Error: No authorization code received")
			return
		}

		codeCh <- code
		fmt.Fprintf(w, "Authorization successful! You can close this window and return to the terminal.")
	})

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("failed to start local server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)

	slog.Info("opening browser for authorization")
	slog.Info("if the browser doesn't open automatically, visit this URL", "url", authURL)

	if err := openBrowser(authURL); err != nil {
		slog.Warn("failed to open browser automatically", "error", err)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}

	return tok, nil
}

// openBrowser opens the specified URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}
