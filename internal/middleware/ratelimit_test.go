package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Passed requests reach the terminal handler and get 204; limited ones
// are answered by the error envelope, which always carries status 200.
func newLimiterRouter(limiter *rateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", limiter.handle, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/auth/register", limiter.handle, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doPost(r *gin.Engine, path, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":12345"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitPerIPAndPath(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := &rateLimiter{
		window:        time.Minute,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Minute,
		now:           func() time.Time { return now },
	}
	r := newLimiterRouter(limiter)

	require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", "10.0.0.1"))
	require.Equal(t, http.StatusOK, doPost(r, "/auth/login", "10.0.0.1"))

	// Another path and another ip each get their own slot.
	require.Equal(t, http.StatusNoContent, doPost(r, "/auth/register", "10.0.0.1"))
	require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", "10.0.0.2"))

	now = now.Add(61 * time.Second)
	require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", "10.0.0.1"))
}

func TestRateLimitDisabledWindow(t *testing.T) {
	limiter := &rateLimiter{window: 0, last: make(map[string]time.Time), now: time.Now}
	r := newLimiterRouter(limiter)
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", "10.0.0.1"))
	}
}

func TestRateLimitSweepEvictsStaleEntries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := &rateLimiter{
		window:        time.Minute,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Minute,
		lastSweep:     now,
		now:           func() time.Time { return now },
	}
	r := newLimiterRouter(limiter)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", ip))
	}
	require.Len(t, limiter.last, 3)

	now = now.Add(11 * time.Minute)
	require.Equal(t, http.StatusNoContent, doPost(r, "/auth/login", "10.0.0.4"))
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Len(t, limiter.last, 1)
}
