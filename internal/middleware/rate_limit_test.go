package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestLocalLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "u1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "u1")
	assert.False(t, d.Allowed)
	assert.True(t, d.Reset.After(now))

	// keys are independent
	d, _ = l.Allow(ctx, "u2")
	assert.True(t, d.Allowed)

	// a bit over half the window refills one token
	now = now.Add(31 * time.Minute)
	d, _ = l.Allow(ctx, "u1")
	assert.True(t, d.Allowed)
}

func TestLocalLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"u1:1", "u1:2", "u2:1"} {
		_, err := l.Allow(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.Len())

	// u2:1 stays busy, the others go idle
	now = now.Add(40 * time.Minute)
	_, _ = l.Allow(ctx, "u2:1")
	assert.Equal(t, 3, l.Len(), "nothing is idle for a full window yet")

	now = now.Add(30 * time.Minute)
	d, _ := l.Allow(ctx, "u3:1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, l.Len(), "idle keys are dropped, busy and new ones kept")

	// a forgotten key starts with a full bucket, as it would have anyway
	d, _ = l.Allow(ctx, "u1:1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestRedisLimiter(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	l := NewRedisLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		d, err := l.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, want, d.Allowed, "request %d", i+1)
	}

	d, err := l.Allow(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestPerRecipeRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRecipeModificationRateLimiter(nil, 1, time.Hour)

	router := gin.New()
	router.PATCH("/recipes/:id", func(c *gin.Context) {
		c.Set(UserIDKey, uint(5))
		c.Next()
	}, rl.PerRecipeRateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, path, nil))
		return rr
	}

	rr := do("/recipes/1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = do("/recipes/1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("/recipes/2").Code)
}

func TestRateLimitMiddlewareRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRecipeCreationRateLimiter(nil, 10, time.Hour)

	router := gin.New()
	router.POST("/recipes", rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/recipes", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
