package core

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// sessionRecordGrace keeps Redis records a little past the idle TTL so the
// server-side check, not key expiry, is what ends a session.
const sessionRecordGrace = time.Minute

// NewRouter constructs the Gin engine with the auth subsystem wired.
func NewRouter(cfg Config, db PgxPool, redisClient redis.Cmdable, metrics *AuthMetrics) (*gin.Engine, error) {
	credentials := NewCredentialStore(NewPgCredentialRepository(db), cfg.AuthPepper)
	limiter := NewRedisRateLimiter(redisClient, RateLimitPolicy{
		MaxAttempts: cfg.RateLimitMaxAttempts,
		Window:      cfg.RateLimitWindow,
	})
	store := NewRedisSessionStore(redisClient, cfg.SessionTTL+sessionRecordGrace, []byte(cfg.SessionKey))
	sessions := NewSessionManager(store, cfg.SessionTTL, metrics)
	products := NewPgProductRepository(db)

	gw := NewGateway(credentials, limiter, sessions, products, metrics)
	guard := NewOriginGuard(cfg.AllowedOrigins, metrics)
	return newEngine(cfg, gw, guard, NewHealthChecker(db, redisClient))
}

func newEngine(cfg Config, gw *Gateway, guard *OriginGuard, health *HealthChecker) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Printf("[gateway] panic: %v", rec)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		c.Abort()
	}))
	if len(cfg.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, err
		}
	}

	// Origin guard runs before anything can set a header.
	r.Use(guard.Middleware())

	r.GET("/healthz", health.Handle)
	// api.php is the path the existing frontend calls.
	r.Any("/api.php", gw.Dispatch)
	r.Any("/api", gw.Dispatch)

	return r, nil
}
