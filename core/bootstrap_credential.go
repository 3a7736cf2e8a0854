package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"
)

// BootstrapCredential stores a generated password when no credential exists yet.
// It is idempotent: if a digest is already stored, it does nothing.
func BootstrapCredential(ctx context.Context, repo CredentialRepository, cfg Config) error {
	if !cfg.BootstrapCredential {
		return nil
	}
	if !PepperConfigured(cfg.AuthPepper) {
		log.Printf("[auth] bootstrap skipped: AUTH_PEPPER is not configured")
		return nil
	}

	_, err := repo.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAuthNotConfigured) {
		return err
	}

	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	if err := repo.Set(ctx, Digest(password, cfg.AuthPepper)); err != nil {
		return err
	}

	if cfg.InitialPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Printf("[auth] initial password created; written to %s", cfg.InitialPasswordPath)
	} else {
		log.Printf("[auth] initial password created password=%s", password)
	}
	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	// base64 encoding: need 3/4 overhead; ensure enough bytes
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
