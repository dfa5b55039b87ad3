package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tasklift/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Store is a SQLite-backed credential store. Each provider's credential
// lives in one row keyed by its storage key.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.TokenStore = (*Store)(nil)

// NewStore creates a new SQLite store in dataDir.
// If dataDir is empty, defaults to ~/.tasklift/data/tasklift.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tasklift", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tasklift.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the credential stored under key, or nil when absent.
func (s *Store) Load(ctx context.Context, key string) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at, scope, account
		FROM credentials WHERE storage_key = ?
	`, key)

	var cred domain.Credential
	var account sql.NullString
	err := row.Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.Scope, &account)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	if account.Valid && account.String != "" && account.String != jsonNull {
		var a domain.Account
		if err := json.Unmarshal([]byte(account.String), &a); err != nil {
			return nil, fmt.Errorf("unmarshalling account: %w", err)
		}
		cred.Account = &a
	}

	return &cred, nil
}

// Save replaces the credential stored under key in a single statement, so
// a failed write leaves the previous row intact.
func (s *Store) Save(ctx context.Context, key string, cred domain.Credential) error {
	if key == "" || cred.AccessToken == "" {
		return fmt.Errorf("saving credential: %w", domain.ErrValidation)
	}

	var account sql.NullString
	if cred.Account != nil {
		data, err := json.Marshal(cred.Account)
		if err != nil {
			return fmt.Errorf("marshalling account: %w", err)
		}
		account = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials
			(storage_key, access_token, refresh_token, expires_at, scope, account, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			account = excluded.account,
			updated_at = excluded.updated_at
	`, key, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt.UTC(), cred.Scope, account, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Delete removes the credential stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE storage_key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_credentials.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}
