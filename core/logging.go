package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// SetupLogging configures log output to both stdout and a file in cfg.LogDir.
// Caller should close the returned io.Closer on shutdown.
func SetupLogging(cfg Config, filename string) (io.Closer, error) {
	dir := cfg.LogDir
	if dir == "" {
		dir = "/var/log/tastetrack"
	}
	if filename == "" {
		filename = "app.log"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	mw := io.MultiWriter(os.Stdout, f)
	log.SetOutput(mw)
	log.SetFlags(log.LstdFlags | log.LUTC)
	gin.DefaultWriter = mw
	gin.DefaultErrorWriter = mw

	return f, nil
}

// WarnInsecureDefaults logs configuration values that are still placeholders.
// Values themselves are never printed.
func WarnInsecureDefaults(cfg Config) {
	if cfg.SessionKey == DefaultSessionKey {
		log.Printf("[config] SESSION_KEY is the placeholder value; set a random key before deploying")
	}
	if cfg.AuthPepper == "" || cfg.AuthPepper == DefaultPepper {
		log.Printf("[config] AUTH_PEPPER is not configured; all logins will be refused")
	}
	if len(cfg.AllowedOrigins) == 0 {
		log.Printf("[config] ALLOWED_ORIGINS is empty; every cross-origin request will be rejected")
	}
}
