package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// ServiceAccountProvider authenticates with a service account key file.
// The calendar must be shared with the service account's address.
type ServiceAccountProvider struct {
	KeyFile string
}

// Client returns an HTTP client that mints JWT-based tokens on demand.
func (p *ServiceAccountProvider) Client(ctx context.Context) (*http.Client, error) {
	return GetServiceAccountClient(ctx, p.KeyFile)
}

// GetServiceAccountClient creates an authenticated HTTP client using a service account
func GetServiceAccountClient(ctx context.Context, keyPath string) (*http.Client, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account key: %w", err)
	}

	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, err
	}
	if credType != CredentialTypeServiceAccount {
		return nil, fmt.Errorf("expected service account credentials, got %s", credType)
	}

	config, err := google.JWTConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}

	return config.Client(ctx), nil
}
