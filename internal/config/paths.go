package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName      = "tasksched"
	credentialsFile    = "credentials.json"
	serviceAccountFile = "service-account.json"
	tokenFile          = "token.json"
	tokenDBFile        = "tokens.db"
	dataFile           = "task_data.json"
	configDirPermMode  = 0o700
)

// GetConfigDir returns the configuration directory path (~/.config/tasksched)
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

func inConfigDir(name string) (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, name), nil
}

// GetCredentialsPath returns the path to the OAuth credentials file
func GetCredentialsPath() (string, error) {
	return inConfigDir(credentialsFile)
}

// GetServiceAccountPath returns the path to the service account key file
func GetServiceAccountPath() (string, error) {
	return inConfigDir(serviceAccountFile)
}

// GetTokenPath returns the path to the OAuth token file
func GetTokenPath() (string, error) {
	return inConfigDir(tokenFile)
}

// GetTokenDBPath returns the path to the SQLite token database.
func GetTokenDBPath() (string, error) {
	return inConfigDir(tokenDBFile)
}

// GetDataFilePath returns the default location of the local task file.
func GetDataFilePath() (string, error) {
	return inConfigDir(dataFile)
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, configDirPermMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// SearchPaths lists the config files tried, in order, when none is given.
func SearchPaths() []string {
	paths := []string{"tasksched.yaml", "tasksched.toml"}
	if dir, err := GetConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.toml"),
		)
	}
	return paths
}
