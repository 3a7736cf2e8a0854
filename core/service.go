package core

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// CredentialVerifier answers whether a candidate password is the shared secret.
type CredentialVerifier interface {
	// Configured returns ErrAuthNotConfigured when no login can possibly succeed.
	Configured(ctx context.Context) error
	Verify(ctx context.Context, password string) (bool, error)
}

// CredentialStore checks passwords against the stored SHA-256(password + pepper) digest.
type CredentialStore struct {
	repo   CredentialRepository
	pepper string
}

func NewCredentialStore(repo CredentialRepository, pepper string) *CredentialStore {
	return &CredentialStore{repo: repo, pepper: pepper}
}

// PepperConfigured reports whether the pepper has been changed from its placeholder.
func PepperConfigured(pepper string) bool {
	return pepper != "" && pepper != DefaultPepper
}

// Digest returns the lower-case hex SHA-256 of password+pepper.
func Digest(password, pepper string) string {
	sum := sha256.Sum256([]byte(password + pepper))
	return hex.EncodeToString(sum[:])
}

func (s *CredentialStore) Configured(ctx context.Context) error {
	if !PepperConfigured(s.pepper) {
		return ErrAuthNotConfigured
	}
	_, err := s.repo.Get(ctx)
	return err
}

// Verify fails closed: a missing digest or placeholder pepper yields ErrAuthNotConfigured, never a match.
func (s *CredentialStore) Verify(ctx context.Context, password string) (bool, error) {
	if !PepperConfigured(s.pepper) {
		return false, ErrAuthNotConfigured
	}
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return false, err
	}
	candidate := Digest(password, s.pepper)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, nil
}
