package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func scrape(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestGinMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/books/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	for _, path := range []string{"/books/1", "/books/2", "/nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrape(t)
	assert.Contains(t, out, `goodreads_http_requests_total{method="GET",route="/books/:id",status="200"} 2`)
	assert.Contains(t, out, `goodreads_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, out, "goodreads_http_request_duration_seconds_bucket")
}

func TestDomainCounters(t *testing.T) {
	RecordReviewOperation("create", nil)
	RecordReviewOperation("delete", errors.New("boom"))
	RecordBookUpdate(nil)
	RecordRegistration(nil)
	RecordLogin(false)
	RecordEmail("welcome", nil)
	RecordTaskEnqueued("send_email", nil)

	out := scrape(t)
	assert.Contains(t, out, `goodreads_reviews_operations_total{operation="create",result="ok"}`)
	assert.Contains(t, out, `goodreads_reviews_operations_total{operation="delete",result="error"}`)
	assert.Contains(t, out, `goodreads_books_updates_total{result="ok"}`)
	assert.Contains(t, out, `goodreads_users_registrations_total{result="ok"}`)
	assert.Contains(t, out, `goodreads_users_logins_total{result="failed"}`)
	assert.Contains(t, out, `goodreads_mail_sent_total{kind="welcome",result="ok"}`)
	assert.Contains(t, out, `goodreads_tasks_enqueued_total{queue="send_email",result="ok"}`)
}
