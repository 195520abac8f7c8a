package http

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
)

// layoutFile wraps every page. Pages define a "content" block.
const layoutFile = "base.html"

// Templates renders each page inside the shared layout. It implements
// gin's render.HTMLRender so handlers keep using c.HTML.
type Templates struct {
	pages map[string]*template.Template
}

// LoadTemplates parses every *.html file in dir together with the layout.
func LoadTemplates(dir string) (*Templates, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}

	layout := filepath.Join(dir, layoutFile)
	t := &Templates{pages: make(map[string]*template.Template)}
	for _, file := range files {
		name := filepath.Base(file)
		if name == layoutFile {
			continue
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFiles(layout, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	if len(t.pages) == 0 {
		return nil, fmt.Errorf("no templates found in %s", dir)
	}
	return t, nil
}

func (t *Templates) Instance(name string, data any) render.Render {
	tmpl, ok := t.pages[name]
	if !ok {
		log.Printf("Template %q not found", name)
		tmpl = missingTemplate
	}
	return render.HTML{Template: tmpl, Name: "base", Data: data}
}

var missingTemplate = template.Must(template.New("base").Parse("template not found"))

var templateFuncs = template.FuncMap{
	"mediaURL": media.URL,
	"stars":    stars,
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04")
	},
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > entities.MaxStars {
		n = entities.MaxStars
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", entities.MaxStars-n)
}

// Pages renders HTML pages with the data every layout needs: the current
// user, pending flashes and the CSRF field.
type Pages struct {
	sessions *auth.SessionManager
}

func NewPages(sessions *auth.SessionManager) *Pages {
	return &Pages{sessions: sessions}
}

// Render implements auth.Renderer.
func (p *Pages) Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = auth.GetUser(c)
	data["CurrentUserID"] = auth.GetUserID(c)
	data["IsStaff"] = c.GetBool(auth.ContextKeyIsStaff)
	data["CSRFField"] = auth.CSRFTemplateField(c)
	if p.sessions != nil {
		data["Flashes"] = p.sessions.PopFlashes(c.Request.Context())
	}
	c.HTML(status, name, data)
}

// Flash queues a message for the next rendered page.
func (p *Pages) Flash(c *gin.Context, level, message string) {
	if p.sessions != nil {
		p.sessions.AddFlash(c.Request.Context(), level, message)
	}
}

// Error answers a failed page request. Anonymous callers hitting a guarded
// action are sent to the login page.
func (p *Pages) Error(c *gin.Context, err error, context string) {
	verr, isValidation := apperr.AsValidation(err)
	switch authz, isAuthz := apperr.AsAuthorization(err); {
	case isValidation:
		p.Render(c, http.StatusBadRequest, "error.html", gin.H{
			"Title":   "Bad Request",
			"Status":  http.StatusBadRequest,
			"Message": verr.Error(),
		})
	case apperr.IsNotFound(err):
		p.Render(c, http.StatusNotFound, "error.html", gin.H{
			"Title":   "Not Found",
			"Status":  http.StatusNotFound,
			"Message": "The page you requested does not exist.",
		})
	case isAuthz && !authz.Authenticated:
		c.Redirect(http.StatusFound, auth.LoginURL(c.Request.URL.RequestURI()))
	case isAuthz:
		p.Render(c, http.StatusForbidden, "error.html", gin.H{
			"Title":   "Forbidden",
			"Status":  http.StatusForbidden,
			"Message": "You do not have permission to do that.",
		})
	default:
		log.Printf("Internal error (%s): %v", context, err)
		p.Render(c, http.StatusInternalServerError, "error.html", gin.H{
			"Title":   "Server Error",
			"Status":  http.StatusInternalServerError,
			"Message": "Something went wrong. Please try again later.",
		})
	}
}

// pageLinkBase returns the current query string without page, ready for
// "page=N" to be appended.
func pageLinkBase(c *gin.Context) string {
	q := c.Request.URL.Query()
	q.Del("page")
	if len(q) == 0 {
		return "?"
	}
	return "?" + q.Encode() + "&"
}

// formValues keeps submitted form input for redisplay.
func formValues(c *gin.Context, fields ...string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f] = c.PostForm(f)
	}
	return values
}
