package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the database answers. Both *database.Database and
// *sql.DB satisfy it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck tests one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

func DatabaseCheck(db Pinger) HealthCheck {
	return db.PingContext
}

// MediaCheck verifies the upload directory is still there. Book covers and
// profile pictures cannot be served or saved without it.
func MediaCheck(dir string) HealthCheck {
	return func(context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	version string
	started time.Time
	timeout time.Duration
	checks  map[string]HealthCheck
}

func NewHealthController(version string) *HealthController {
	return &HealthController{
		version: version,
		started: time.Now(),
		timeout: 2 * time.Second,
		checks:  make(map[string]HealthCheck),
	}
}

// AddCheck registers a named check run on every /health request.
func (h *HealthController) AddCheck(name string, check HealthCheck) *HealthController {
	h.checks[name] = check
	return h
}

func (h *HealthController) Status(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			results[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	response := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: h.version,
		Checks:  results,
	}
	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, response)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
