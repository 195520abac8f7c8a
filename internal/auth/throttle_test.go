package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupThrottleRouter(t *testing.T, throttle *WriteThrottle) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			n, _ := strconv.Atoi(id)
			c.Set(ContextKeyUserID, uint(n))
		}
		c.Next()
	})
	router.POST("/api/reviews/", throttle.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func postAs(router *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/reviews/", nil)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWriteThrottle(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	throttle := NewWriteThrottle(60, 2)
	require.NotNil(t, throttle)
	throttle.now = func() time.Time { return now }
	router := setupThrottleRouter(t, throttle)

	t.Run("burst is allowed", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, postAs(router, "1").Code)
		assert.Equal(t, http.StatusCreated, postAs(router, "1").Code)
	})

	t.Run("exhausted bucket answers 429", func(t *testing.T) {
		w := postAs(router, "1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "Expected available in 1 seconds")
	})

	t.Run("other users are not affected", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, postAs(router, "2").Code)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		now = now.Add(time.Second)
		assert.Equal(t, http.StatusCreated, postAs(router, "1").Code)
		assert.Equal(t, http.StatusTooManyRequests, postAs(router, "1").Code)
	})

	t.Run("anonymous requests pass through", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusCreated, postAs(router, "").Code)
		}
	})

	t.Run("idle users are forgotten", func(t *testing.T) {
		now = now.Add(time.Hour)
		assert.Equal(t, http.StatusCreated, postAs(router, "3").Code)
		throttle.mu.Lock()
		defer throttle.mu.Unlock()
		assert.Len(t, throttle.limiters, 1)
	})
}

func TestWriteThrottleDisabled(t *testing.T) {
	assert.Nil(t, NewWriteThrottle(0, 10))

	router := setupThrottleRouter(t, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusCreated, postAs(router, "1").Code)
	}
}

func TestNewWriteThrottleMinimumBurst(t *testing.T) {
	throttle := NewWriteThrottle(30, 0)
	require.NotNil(t, throttle)
	assert.Equal(t, 1, throttle.burst)
}
