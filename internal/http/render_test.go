package http

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★☆☆", stars(3))
	assert.Equal(t, "☆☆☆☆☆", stars(-2))
	assert.Equal(t, "★★★★★", stars(9))
}

func TestPageLinkBase(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/", "?"},
		{"/?page=3", "?"},
		{"/books/?q=dune&page=2", "?q=dune&"},
		{"/?page_size=5&page=2", "?page_size=5&"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", tt.target, nil)

			assert.Equal(t, tt.want, pageLinkBase(c))
		})
	}
}

func TestLoadTemplates_ParsesEveryPage(t *testing.T) {
	templates, err := LoadTemplates("../../templates")
	require.NoError(t, err)

	for _, name := range []string{"home.html", "books.html", "book_detail.html", "login.html", "error.html"} {
		assert.Contains(t, templates.pages, name)
	}
	assert.NotContains(t, templates.pages, layoutFile)
}

func TestLoadTemplates_EmptyDir(t *testing.T) {
	_, err := LoadTemplates(t.TempDir())
	assert.Error(t, err)
}

func TestLoadTemplates_ReportsBrokenPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, layoutFile), []byte(`{{define "base"}}{{template "content" .}}{{end}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.html"), []byte(`{{define "content"}}{{.Title`), 0o644))

	_, err := LoadTemplates(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.html")
}

func TestTemplates_InstanceRendersInLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, layoutFile), []byte(`{{define "base"}}<main>{{template "content" .}}</main>{{end}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.html"), []byte(`{{define "content"}}Hello {{.Name}} {{stars 2}}{{end}}`), 0o644))

	templates, err := LoadTemplates(dir)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, templates.Instance("hello.html", gin.H{"Name": "Ann"}).Render(w))
	assert.Equal(t, "<main>Hello Ann ★★☆☆☆</main>", strings.TrimSpace(w.Body.String()))

	w = httptest.NewRecorder()
	require.NoError(t, templates.Instance("missing.html", nil).Render(w))
	assert.Contains(t, w.Body.String(), "template not found")
}
