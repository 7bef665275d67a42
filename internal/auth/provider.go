// Package auth supplies authenticated HTTP clients for the Calendar API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/drewfead/tasksched/internal/config"
)

// ErrNoCredentials is returned when neither a service account key nor an
// OAuth client file can be found.
var ErrNoCredentials = errors.New("no credentials configured")

// SessionProvider yields an authenticated HTTP client.
type SessionProvider interface {
	Client(ctx context.Context) (*http.Client, error)
}

// StaticProvider hands out a fixed client.
type StaticProvider struct {
	HTTPClient *http.Client
}

// Client returns the wrapped client, or http.DefaultClient when none is set.
func (p StaticProvider) Client(context.Context) (*http.Client, error) {
	if p.HTTPClient == nil {
		return http.DefaultClient, nil
	}
	return p.HTTPClient, nil
}

// Close releases the token store if it holds resources.
func (p *OAuthProvider) Close() error {
	if c, ok := p.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewSessionProvider picks a provider from the auth config. A service account
// key wins over an OAuth client; the OAuth token lives in the configured store.
func NewSessionProvider(ctx context.Context, cfg config.AuthConfig) (SessionProvider, error) {
	if cfg.ServiceAccountFile != "" && fileExists(cfg.ServiceAccountFile) {
		slog.Debug("using service account credentials", "path", cfg.ServiceAccountFile)
		return &ServiceAccountProvider{KeyFile: cfg.ServiceAccountFile}, nil
	}

	if cfg.CredentialsFile == "" || !fileExists(cfg.CredentialsFile) {
		return nil, fmt.Errorf("%w: place an OAuth client or service account key at %s", ErrNoCredentials, cfg.CredentialsFile)
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, err
	}
	if credType == CredentialTypeServiceAccount {
		slog.Debug("using service account credentials", "path", cfg.CredentialsFile)
		return &ServiceAccountProvider{KeyFile: cfg.CredentialsFile}, nil
	}

	oauthConfig, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	store, err := NewTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &OAuthProvider{Config: oauthConfig, Store: store}, nil
}

// NewTokenStore opens the token store named by cfg.TokenStore.
func NewTokenStore(ctx context.Context, cfg config.AuthConfig) (TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreSQLite:
		return OpenSQLiteTokenStore(ctx, cfg.TokenDB, cfg.Account)
	case config.TokenStoreFile, "":
		return &FileTokenStore{Path: cfg.TokenFile}, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
