package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

// SQLiteTokenStore keeps tokens in a SQLite database, one row per account.
type SQLiteTokenStore struct {
	db      *sql.DB
	account string
}

// OpenSQLiteTokenStore opens (creating if needed) the database at path.
func OpenSQLiteTokenStore(ctx context.Context, path, account string) (*SQLiteTokenStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("unable to create token directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open token database: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tokens (
		account_name TEXT PRIMARY KEY,
		token TEXT)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create tokens table: %w", err)
	}

	return &SQLiteTokenStore{db: db, account: account}, nil
}

// Load returns the token stored for the account, or ErrNoToken.
func (s *SQLiteTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	var tokenJSON string
	err := s.db.QueryRowContext(ctx, "SELECT token FROM tokens WHERE account_name = ?", s.account).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(tokenJSON), tok); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}
	return tok, nil
}

// Save replaces the account's token.
func (s *SQLiteTokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", s.account, string(tokenJSON))
	if err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteTokenStore) Close() error {
	return s.db.Close()
}
