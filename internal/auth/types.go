package auth

import (
	"encoding/json"
	"fmt"
)

// CredentialType represents the type of authentication credentials
type CredentialType int

const (
	CredentialTypeUnknown CredentialType = iota
	CredentialTypeOAuthClient
	CredentialTypeServiceAccount
)

// credentialProbe holds only the fields that tell the formats apart.
type credentialProbe struct {
	Type      string          `json:"type"`
	Installed json.RawMessage `json:"installed"`
	Web       json.RawMessage `json:"web"`
}

// DetectCredentialType examines the JSON structure to determine credential type
func DetectCredentialType(data []byte) (CredentialType, error) {
	var probe credentialProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return CredentialTypeUnknown, fmt.Errorf("failed to parse credential file: %w", err)
	}

	switch {
	case probe.Type == "service_account":
		return CredentialTypeServiceAccount, nil
	case len(probe.Installed) > 0, len(probe.Web) > 0:
		return CredentialTypeOAuthClient, nil
	default:
		return CredentialTypeUnknown, fmt.Errorf("unknown credential type")
	}
}

func (t CredentialType) String() string {
	switch t {
	case CredentialTypeOAuthClient:
		return "OAuth Client"
	case CredentialTypeServiceAccount:
		return "Service Account"
	default:
		return "Unknown"
	}
}
