package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, ownerID, username, secret string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func serve(router *gin.Engine, method, path, remote string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterWindowAndPenalty(t *testing.T) {
	l := NewRateLimiter(2, time.Minute, 2*time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1:/reader"))
	assert.True(t, l.Allow("1.1.1.1:/reader"))
	assert.False(t, l.Allow("1.1.1.1:/reader"))
	assert.True(t, l.Allow("1.1.1.1:/booklet"), "keys are per path")
	assert.True(t, l.Allow("2.2.2.2:/reader"), "keys are per ip")

	// Still refused after the window, the penalty has not elapsed.
	now = now.Add(90 * time.Second)
	assert.False(t, l.Allow("1.1.1.1:/reader"))

	now = now.Add(90 * time.Second)
	assert.True(t, l.Allow("1.1.1.1:/reader"))
}

func TestRateLimiterEvictsStaleEntries(t *testing.T) {
	l := NewRateLimiter(5, time.Second, time.Second)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	for _, ip := range []string{"a", "b", "c"} {
		l.Allow(ip)
	}
	assert.Equal(t, 3, l.Len())

	now = now.Add(3 * time.Second)
	l.Allow("d")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.Use(NewRateLimiter(2, time.Minute, time.Minute).Middleware())
	router.GET("/test", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(router, "GET", "/test", "192.168.1.1:1234", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "GET", "/test", "192.168.1.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, "GET", "/test", "192.168.1.2:1234", nil).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	var fromCtx string
	router.GET("/test", func(c *gin.Context) {
		fromCtx, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := serve(router, "GET", "/test", "", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", fromCtx)

	w = serve(router, "GET", "/test", "", nil)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery(), RequestLogger())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(router, "GET", "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"
	router := gin.New()
	router.Use(Auth(secret))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": GetOwnerID(c), "username": GetUsername(c)})
	})

	token := signToken(t, "owner-1", "ana", secret, time.Hour)
	w := serve(router, "GET", "/me", "", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"owner":"owner-1","username":"ana"}`, w.Body.String())

	expired := signToken(t, "owner-1", "ana", secret, -time.Minute)
	wrongKey := signToken(t, "owner-1", "ana", "other", time.Hour)
	noSubject := signToken(t, "", "ana", secret, time.Hour)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "owner-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"format":     "Token " + token,
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no subject": "Bearer " + noSubject,
		"alg none":   "Bearer " + none,
	} {
		t.Run(name, func(t *testing.T) {
			h := http.Header{}
			if header != "" {
				h.Set("Authorization", header)
			}
			assert.Equal(t, http.StatusUnauthorized, serve(router, "GET", "/me", "", h).Code)
		})
	}
}
