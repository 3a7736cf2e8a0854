package core

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// credentialRowID is the only row app_auth may hold.
const credentialRowID = 1

// CredentialRepository persists the single shared-secret digest.
type CredentialRepository interface {
	// Get returns the stored lower-case hex digest, or ErrAuthNotConfigured when none is stored.
	Get(ctx context.Context) (string, error)
	// Set replaces the stored digest.
	Set(ctx context.Context, digest string) error
}

// PgCredentialRepository implements CredentialRepository using pgx.
type PgCredentialRepository struct {
	db PgxPool
}

func NewPgCredentialRepository(db PgxPool) *PgCredentialRepository {
	return &PgCredentialRepository{db: db}
}

func (r *PgCredentialRepository) Get(ctx context.Context) (string, error) {
	const q = `SELECT password_hash FROM app_auth WHERE id=$1 LIMIT 1`
	var hash string
	if err := r.db.QueryRow(ctx, q, credentialRowID).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAuthNotConfigured
		}
		return "", oops.Code("CREDENTIAL_LOAD_FAILED").Wrap(err)
	}
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return "", ErrAuthNotConfigured
	}
	return hash, nil
}

func (r *PgCredentialRepository) Set(ctx context.Context, digest string) error {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if digest == "" {
		return oops.Code("CREDENTIAL_EMPTY").Errorf("digest cannot be empty")
	}
	const q = `
INSERT INTO app_auth (id, password_hash, updated_at) VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`
	if _, err := r.db.Exec(ctx, q, credentialRowID, digest); err != nil {
		return oops.Code("CREDENTIAL_STORE_FAILED").Wrap(err)
	}
	return nil
}
