package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database"
	"github.com/mrlokans/goodreads/internal/database/books"
	"github.com/mrlokans/goodreads/internal/database/reviews"
	"github.com/mrlokans/goodreads/internal/database/users"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/services"
)

const testPassword = "correct-horse-battery"

// testApp is the full router over a throwaway SQLite database, driven like a
// browser that keeps its cookies.
type testApp struct {
	t           *testing.T
	router      *gin.Engine
	authService *auth.Service
	bookRepo    *books.Repository
	bookService *services.BookService
	reviews     *services.ReviewService
	media       *media.Store
	cookies     map[string]*http.Cookie
	books       int
}

func newTestApp(t *testing.T, configure ...func(*RouterConfig)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSilentDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "app.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(sqlDB, config.DriverSQLite, config.Auth{})
	require.NoError(t, err)

	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	authService := auth.NewService(userRepo, config.Auth{BcryptCost: 4})
	bookService := services.NewBookService(bookRepo, nil)
	reviewService := services.NewReviewService(reviews.NewRepository(db.DB), bookRepo, userRepo, nil)

	store, err := media.NewStore(config.Media{Dir: filepath.Join(t.TempDir(), "media")})
	require.NoError(t, err)

	cfg := RouterConfig{
		Books:           bookService,
		Reviews:         reviewService,
		Media:           store,
		AuthService:     authService,
		SessionManager:  sessions,
		AuthMiddleware:  auth.NewMiddleware(authService, sessions),
		TemplatesPath:   "../../templates",
		StaticPath:      "../../static",
		PageSize:        config.DefaultPageSize,
		APIPageSize:     config.DefaultAPIPageSize,
		MaxPageSize:     config.DefaultMaxPageSize,
		APIReviewPolicy: services.AnyAuthenticated,
		Database:        db,
		Version:         "test",
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testApp{
		t:           t,
		router:      NewRouter(cfg),
		authService: authService,
		bookRepo:    bookRepo,
		bookService: bookService,
		reviews:     reviewService,
		media:       store,
		cookies:     map[string]*http.Cookie{},
	}
}

// do sends a request carrying the cookies collected so far.
func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(a.cookies, c.Name)
			continue
		}
		a.cookies[c.Name] = c
	}
	return rr
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// postMultipart sends form fields plus one file under fileField.
func (a *testApp) postMultipart(path string, form url.Values, fileField, fileName string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, values := range form {
		for _, v := range values {
			require.NoError(a.t, w.WriteField(key, v))
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(a.t, err)
		_, err = io.Copy(part, bytes.NewReader(content))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req)
}

// api sends a JSON request, authenticated with Basic credentials when
// username is set.
func (a *testApp) api(method, path, username string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(a.t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req.SetBasicAuth(username, testPassword)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) login(username string) {
	a.t.Helper()
	rr := a.postForm(auth.LoginPath, url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(a.t, http.StatusFound, rr.Code, rr.Body.String())
}

// follow fetches the redirect target of rr.
func (a *testApp) follow(rr *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	a.t.Helper()
	require.Equal(a.t, http.StatusFound, rr.Code)
	return a.get(rr.Header().Get("Location"))
}

func (a *testApp) createUser(username string, staff bool) *entities.User {
	a.t.Helper()
	user, err := a.authService.CreateUser(auth.RegistrationInput{
		Username:  username,
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Reader",
		Email:     username + "@example.com",
		Password:  testPassword,
	}, staff)
	require.NoError(a.t, err)
	return user
}

func (a *testApp) createBook(title, description string) *entities.Book {
	a.t.Helper()
	a.books++
	book := &entities.Book{
		Title:       title,
		Description: description,
		ISBN:        fmt.Sprintf("978%010d", a.books),
	}
	require.NoError(a.t, a.bookRepo.CreateBook(book, []entities.Author{{FirstName: "Jane", LastName: "Author"}}))
	return book
}

func (a *testApp) createReview(user *entities.User, book *entities.Book, stars int, comment string) *entities.BookReview {
	a.t.Helper()
	review, err := a.reviews.CreateReview(services.Identity{UserID: user.ID, Username: user.Username}, services.ReviewInput{
		UserID:     user.ID,
		BookID:     book.ID,
		StarsGiven: stars,
		Comment:    comment,
	})
	require.NoError(a.t, err)
	return review
}

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
