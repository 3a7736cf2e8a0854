package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://tastetrack.example"

func newGuardedEngine(t *testing.T) (*gin.Engine, *AuthMetrics, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics := NewAuthMetrics(prometheus.NewRegistry())
	guard := NewOriginGuard([]string{testOrigin}, metrics)

	hits := 0
	r := gin.New()
	r.Use(guard.Middleware())
	r.Any("/api.php", func(c *gin.Context) {
		hits++
		respondOK(c)
	})
	return r, metrics, &hits
}

func TestOriginGuardCheck(t *testing.T) {
	guard := NewOriginGuard([]string{testOrigin}, nil)

	assert.True(t, guard.Check(""), "same-origin and non-browser calls pass")
	assert.True(t, guard.Check(testOrigin))
	assert.False(t, guard.Check("https://evil.example"))
	assert.False(t, guard.Check("https://TasteTrack.example"), "comparison is case-sensitive")
	assert.False(t, guard.Check(testOrigin+"/"), "no normalization")
	assert.False(t, guard.Check("https://sub.tastetrack.example"))
}

func TestOriginGuardMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantACAO    string
		wantHandler bool
	}{
		{name: "allowed origin echoed", method: http.MethodGet, origin: testOrigin, wantStatus: http.StatusOK, wantACAO: testOrigin, wantHandler: true},
		{name: "no origin passes without CORS", method: http.MethodGet, wantStatus: http.StatusOK, wantHandler: true},
		{name: "foreign origin forbidden", method: http.MethodPost, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "preflight from allowed origin", method: http.MethodOptions, origin: testOrigin, wantStatus: http.StatusOK, wantACAO: testOrigin},
		{name: "preflight from foreign origin", method: http.MethodOptions, origin: "https://evil.example", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, hits := newGuardedEngine(t)
			req := httptest.NewRequest(tt.method, "/api.php?action=check", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantACAO, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantHandler, *hits > 0)
			if tt.wantACAO != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
				assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
			}
			if tt.method == http.MethodOptions {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestOriginGuardRejectionBody(t *testing.T) {
	r, metrics, _ := newGuardedEngine(t)
	req := httptest.NewRequest(http.MethodPost, "/api.php?action=login", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Origin not allowed"}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OriginRejections), 0)
}
