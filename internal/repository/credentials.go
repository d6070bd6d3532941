package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/oceanschool/internal/domain"
)

const credentialSchema = `CREATE TABLE IF NOT EXISTS client_credentials (
	profile       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SQLCredentialStore keeps session keys in a shared database, one row per profile.
type SQLCredentialStore struct {
	db      *sqlx.DB
	profile string
}

// NewSQLCredentialStore creates a new SQLCredentialStore.
func NewSQLCredentialStore(db *sqlx.DB, profile string) *SQLCredentialStore {
	return &SQLCredentialStore{db: db, profile: profile}
}

// EnsureSchema creates the credentials table if it does not exist.
func (s *SQLCredentialStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, credentialSchema); err != nil {
		return fmt.Errorf("ensure client_credentials schema: %w", err)
	}
	return nil
}

// Load returns the stored keys for the profile, or the zero value when none are stored.
func (s *SQLCredentialStore) Load(ctx context.Context) (domain.Credentials, error) {
	var creds domain.Credentials
	err := s.db.GetContext(ctx, &creds,
		`SELECT access_token, refresh_token, role
		 FROM client_credentials WHERE profile = $1`, s.profile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credentials{}, nil
		}
		return domain.Credentials{}, fmt.Errorf("load credentials for %s: %w", s.profile, err)
	}
	return creds, nil
}

// Save writes all keys for the profile in one statement.
func (s *SQLCredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_credentials (profile, access_token, refresh_token, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (profile)
		 DO UPDATE SET access_token = EXCLUDED.access_token,
		               refresh_token = EXCLUDED.refresh_token,
		               role = EXCLUDED.role,
		               updated_at = NOW()`,
		s.profile, creds.AccessToken, creds.RefreshToken, string(creds.Role),
	)
	if err != nil {
		return fmt.Errorf("save credentials for %s: %w", s.profile, err)
	}
	return nil
}

// Clear removes every key for the profile in a single transaction.
func (s *SQLCredentialStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM client_credentials WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("clear credentials for %s: %w", s.profile, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear tx: %w", err)
	}
	return nil
}
