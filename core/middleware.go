package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OriginGuard decides which browser origins may make credentialed calls.
// Origins are compared byte-for-byte: no case folding, wildcards or subdomains.
type OriginGuard struct {
	allowed map[string]struct{}
	metrics *AuthMetrics
}

func NewOriginGuard(origins []string, metrics *AuthMetrics) *OriginGuard {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &OriginGuard{allowed: allowed, metrics: metrics}
}

// Check reports whether a request declaring origin may proceed.
// An empty origin is a same-origin or non-browser call and always passes.
func (g *OriginGuard) Check(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := g.allowed[origin]
	return ok
}

// Middleware rejects disallowed origins with 403 before anything else runs
// and answers preflights with an empty 200.
func (g *OriginGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := g.Check(origin)

		// Preflight: always 200, but CORS headers only for an allowed declared origin.
		if c.Request.Method == http.MethodOptions {
			if allowed && origin != "" {
				setCORSHeaders(c, origin)
			}
			c.Status(http.StatusOK)
			c.Abort()
			return
		}

		if !allowed {
			g.metrics.OriginRejected()
			respondAuthError(c, ErrOriginNotAllowed)
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

// setCORSHeaders echoes the exact origin; a wildcard is never combined with credentials.
func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}
