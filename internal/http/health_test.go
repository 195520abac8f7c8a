package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, controller *HealthController) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()

	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("healthy when database answers", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		w, response := serveHealth(t, NewHealthController("1.0.0").AddCheck("database", DatabaseCheck(db)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.NotEmpty(t, response.Time)
		assert.NotEmpty(t, response.Uptime)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		w, response := serveHealth(t, NewHealthController("").AddCheck("database", DatabaseCheck(db)))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "connection refused")
	})

	t.Run("media directory", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		controller := NewHealthController("").
			AddCheck("media", MediaCheck(dir)).
			AddCheck("covers", MediaCheck(file)).
			AddCheck("missing", MediaCheck(filepath.Join(dir, "gone")))
		w, response := serveHealth(t, controller)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ok", response.Checks["media"])
		assert.Contains(t, response.Checks["covers"], "is not a directory")
		assert.Contains(t, response.Checks["missing"], "error:")
	})

	t.Run("no checks registered", func(t *testing.T) {
		w, response := serveHealth(t, NewHealthController(""))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Empty(t, response.Checks)
	})
}

func TestHealthController_Ping(t *testing.T) {
	router := gin.New()
	router.GET("/ping", NewHealthController("").Ping)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRouterHealthReportsDatabaseAndMedia(t *testing.T) {
	app := newTestApp(t)

	rr := app.get("/health")

	require.Equal(t, http.StatusOK, rr.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Checks["database"])
	assert.Equal(t, "ok", response.Checks["media"])
	assert.Equal(t, "test", response.Version)
}
