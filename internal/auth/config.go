package auth

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// LoadConfig loads OAuth client credentials from the specified file path.
func LoadConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig builds an OAuth config with calendar scope from client secret JSON.
func ParseConfig(data []byte) (*oauth2.Config, error) {
	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, err
	}
	if credType != CredentialTypeOAuthClient {
		return nil, fmt.Errorf("expected OAuth client credentials, got %s", credType)
	}

	config, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return config, nil
}
