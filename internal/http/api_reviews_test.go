package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/services"
)

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) ReviewList {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var list ReviewList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	return list
}

func decodeReview(t *testing.T, rr *httptest.ResponseRecorder, status int) ReviewResource {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	var review ReviewResource
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &review))
	return review
}

func decodeErrors(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	var body ValidationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Errors
}

// seedReviews creates n reviews by alice on one book, oldest first.
func seedReviews(app *testApp, n int) (*entities.User, *entities.Book) {
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	for i := 1; i <= n; i++ {
		app.createReview(alice, book, 1+i%5, fmt.Sprintf("review %d", i))
	}
	return alice, book
}

func TestAPIList_Envelope(t *testing.T) {
	app := newTestApp(t)
	seedReviews(app, 3)

	list := decodeList(t, app.api(http.MethodGet, "/api/reviews/?page_size=2", "", nil))

	assert.Equal(t, int64(3), list.Count)
	require.Len(t, list.Results, 2)
	assert.Equal(t, "review 3", list.Results[0].Comment)
	assert.Equal(t, "review 2", list.Results[1].Comment)
	require.NotNil(t, list.Next)
	assert.Equal(t, "http://example.com/api/reviews/?page=2&page_size=2", *list.Next)
	assert.Nil(t, list.Previous)

	first := list.Results[0]
	assert.Equal(t, "alice", first.User.Username)
	assert.Equal(t, "alice@example.com", first.User.Email)
	assert.Equal(t, "Dune", first.Book.Title)
	assert.Nil(t, first.Book.Image)
}

func TestAPIList_SecondPage(t *testing.T) {
	app := newTestApp(t)
	seedReviews(app, 3)

	list := decodeList(t, app.api(http.MethodGet, "/api/reviews/?page=2&page_size=2", "", nil))

	require.Len(t, list.Results, 1)
	assert.Equal(t, "review 1", list.Results[0].Comment)
	assert.Nil(t, list.Next)
	require.NotNil(t, list.Previous)
	assert.Equal(t, "http://example.com/api/reviews/?page_size=2", *list.Previous)
}

func TestAPIList_PageOutOfRangeIsEmpty(t *testing.T) {
	app := newTestApp(t)
	seedReviews(app, 3)

	list := decodeList(t, app.api(http.MethodGet, "/api/reviews/?page=5&page_size=2", "", nil))

	assert.Equal(t, int64(3), list.Count)
	assert.Empty(t, list.Results)
	assert.Nil(t, list.Next)
	assert.Nil(t, list.Previous)
}

func TestAPIList_EmptyResultsIsArray(t *testing.T) {
	app := newTestApp(t)

	rr := app.api(http.MethodGet, "/api/reviews/", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, rr.Body.String())
}

func TestAPIList_InvalidPageSize(t *testing.T) {
	app := newTestApp(t)

	errs := decodeErrors(t, app.api(http.MethodGet, "/api/reviews/?page_size=0", "", nil))

	assert.Contains(t, errs, "page_size")
}

func TestAPIList_WithoutTrailingSlash(t *testing.T) {
	app := newTestApp(t)
	seedReviews(app, 1)

	list := decodeList(t, app.api(http.MethodGet, "/api/reviews", "", nil))

	assert.Equal(t, int64(1), list.Count)
}

func TestAPIList_BaseURLOverridesHost(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.BaseURL = "https://reviews.example.org/"
	})
	seedReviews(app, 2)

	list := decodeList(t, app.api(http.MethodGet, "/api/reviews/?page_size=1", "", nil))

	require.NotNil(t, list.Next)
	assert.Equal(t, "https://reviews.example.org/api/reviews/?page=2&page_size=1", *list.Next)
}

func TestAPIGet(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 4, "Spice must flow")

	got := decodeReview(t, app.api(http.MethodGet, fmt.Sprintf("/api/reviews/%d/", review.ID), "", nil), http.StatusOK)

	assert.Equal(t, review.ID, got.ID)
	assert.Equal(t, 4, got.StarsGiven)
	assert.Equal(t, "Spice must flow", got.Comment)
	assert.Equal(t, "Alice", got.User.FirstName)
	assert.Equal(t, book.ID, got.Book.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAPIGet_NotFound(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusNotFound, app.api(http.MethodGet, "/api/reviews/42/", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.api(http.MethodGet, "/api/reviews/abc/", "", nil).Code)
}

func TestAPICreate_RequiresAuthentication(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")

	rr := app.api(http.MethodPost, "/api/reviews/", "", payload{
		"user_id": alice.ID, "book_id": book.ID, "stars_given": 5, "comment": "anon",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPICreate_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.createUser("alice", false)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/", nil)
	req.SetBasicAuth("alice", "not-the-password")
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
}

func TestAPICreate(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")

	created := decodeReview(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
		"user_id": alice.ID, "book_id": book.ID, "stars_given": 5, "comment": "  Brilliant  ",
	}), http.StatusCreated)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.User.Username)
	assert.Equal(t, "Dune", created.Book.Title)
	assert.Equal(t, "Brilliant", created.Comment)

	stored, err := app.reviews.GetReview(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.StarsGiven)
}

func TestAPICreate_FormEncoded(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")

	form := url.Values{
		"user_id":     {fmt.Sprint(alice.ID)},
		"book_id":     {fmt.Sprint(book.ID)},
		"stars_given": {"3"},
		"comment":     {"Posted as a form"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("alice", testPassword)
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	created := decodeReview(t, rr, http.StatusCreated)
	assert.Equal(t, 3, created.StarsGiven)
}

func TestAPICreate_BasicAuthSkipsCSRF(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
	})
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")

	rr := app.api(http.MethodPost, "/api/reviews/", "alice", payload{
		"user_id": alice.ID, "book_id": book.ID, "stars_given": 4, "comment": "No token needed",
	})

	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestAPICreate_Validation(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")

	t.Run("stars out of range", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": 9, "comment": "too many",
		}))
		assert.Equal(t, entities.MsgStarsRange, errs["stars_given"])
	})

	t.Run("missing fields", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"book_id": book.ID,
		}))
		assert.Equal(t, entities.MsgRequired, errs["user_id"])
		assert.Equal(t, entities.MsgRequired, errs["stars_given"])
		assert.Equal(t, entities.MsgRequired, errs["comment"])
		assert.NotContains(t, errs, "book_id")
	})

	t.Run("empty body", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", nil))
		assert.Len(t, errs, 4)
	})

	t.Run("non-numeric stars", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": "abc", "comment": "x",
		}))
		assert.Equal(t, "A valid integer is required.", errs["stars_given"])
	})

	t.Run("numeric strings are accepted", func(t *testing.T) {
		created := decodeReview(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": fmt.Sprint(alice.ID), "book_id": fmt.Sprint(book.ID), "stars_given": "5", "comment": "As text",
		}), http.StatusCreated)
		assert.Equal(t, 5, created.StarsGiven)
	})

	t.Run("fractional stars", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": 4.5, "comment": "Half",
		}))
		assert.Equal(t, "A valid integer is required.", errs["stars_given"])
	})

	t.Run("null fields", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": nil, "comment": nil,
		}))
		assert.Equal(t, "This field may not be null.", errs["stars_given"])
		assert.Equal(t, "This field may not be null.", errs["comment"])
	})

	t.Run("comment must be text", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": 3, "comment": []string{"a"},
		}))
		assert.Equal(t, "Not a valid string.", errs["comment"])
	})

	t.Run("blank comment", func(t *testing.T) {
		errs := decodeErrors(t, app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": book.ID, "stars_given": 3, "comment": "   ",
		}))
		assert.Equal(t, entities.MsgRequired, errs["comment"])
	})

	t.Run("unknown book", func(t *testing.T) {
		rr := app.api(http.MethodPost, "/api/reviews/", "alice", payload{
			"user_id": alice.ID, "book_id": 999, "stars_given": 3, "comment": "ghost",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAPIReplace(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")
	path := fmt.Sprintf("/api/reviews/%d/", review.ID)

	errs := decodeErrors(t, app.api(http.MethodPut, path, "alice", payload{"stars_given": 5}))
	assert.Equal(t, entities.MsgRequired, errs["comment"])

	updated := decodeReview(t, app.api(http.MethodPut, path, "alice", payload{
		"user_id": alice.ID, "book_id": book.ID, "stars_given": 5, "comment": "Changed my mind",
	}), http.StatusOK)

	assert.Equal(t, 5, updated.StarsGiven)
	assert.Equal(t, "Changed my mind", updated.Comment)
	assert.Equal(t, "alice", updated.User.Username)
}

func TestAPIPatch(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")

	updated := decodeReview(t, app.api(http.MethodPatch, fmt.Sprintf("/api/reviews/%d", review.ID), "alice", payload{
		"stars_given": 4,
	}), http.StatusOK)

	assert.Equal(t, 4, updated.StarsGiven)
	assert.Equal(t, "Meh", updated.Comment)
}

func TestAPIPatch_InvalidStars(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")

	errs := decodeErrors(t, app.api(http.MethodPatch, fmt.Sprintf("/api/reviews/%d/", review.ID), "alice", payload{
		"stars_given": 0,
	}))

	assert.Equal(t, entities.MsgStarsRange, errs["stars_given"])
}

func TestAPIPatch_NullIsRejected(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")

	errs := decodeErrors(t, app.api(http.MethodPatch, fmt.Sprintf("/api/reviews/%d/", review.ID), "alice", payload{
		"stars_given": nil,
	}))
	assert.Equal(t, "This field may not be null.", errs["stars_given"])

	stored, err := app.reviews.GetReview(review.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StarsGiven)
}

func TestAPIPatch_NumericString(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")

	updated := decodeReview(t, app.api(http.MethodPatch, fmt.Sprintf("/api/reviews/%d/", review.ID), "alice", payload{
		"stars_given": " 5 ",
	}), http.StatusOK)
	assert.Equal(t, 5, updated.StarsGiven)
}

func TestAPIDelete(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")
	path := fmt.Sprintf("/api/reviews/%d/", review.ID)

	rr := app.api(http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, app.api(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, app.api(http.MethodDelete, path, "alice", nil).Code)
}

func TestAPIWrites_AnyAuthenticatedUser(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	app.createUser("bob", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")

	updated := decodeReview(t, app.api(http.MethodPatch, fmt.Sprintf("/api/reviews/%d/", review.ID), "bob", payload{
		"comment": "Edited by bob",
	}), http.StatusOK)

	assert.Equal(t, "Edited by bob", updated.Comment)
	assert.Equal(t, "alice", updated.User.Username)
}

func TestAPIWrites_OwnerOnlyPolicy(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.APIReviewPolicy = services.OwnerOnly
	})
	alice := app.createUser("alice", false)
	app.createUser("bob", false)
	book := app.createBook("Dune", "Desert planet")
	review := app.createReview(alice, book, 2, "Meh")
	path := fmt.Sprintf("/api/reviews/%d/", review.ID)

	assert.Equal(t, http.StatusForbidden, app.api(http.MethodPatch, path, "bob", payload{"comment": "mine"}).Code)
	assert.Equal(t, http.StatusForbidden, app.api(http.MethodDelete, path, "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, app.api(http.MethodDelete, path, "alice", nil).Code)
}

func TestAPIBookImageIsAbsolute(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	relPath, err := app.media.Save("image", media.BookImages, strings.NewReader(string(pngData)))
	require.NoError(t, err)
	admin := services.Identity{UserID: alice.ID, IsStaff: true}
	_, err = app.bookService.UpdateBook(admin, book.ID, services.BookInput{
		Title: book.Title, Description: book.Description, ISBN: book.ISBN, Image: &relPath,
	})
	require.NoError(t, err)
	review := app.createReview(alice, book, 5, "Nice cover")

	got := decodeReview(t, app.api(http.MethodGet, fmt.Sprintf("/api/reviews/%d/", review.ID), "", nil), http.StatusOK)

	require.NotNil(t, got.Book.Image)
	assert.Equal(t, "http://example.com/media/"+relPath, *got.Book.Image)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.MetricsEnabled = true
	})
	app.get("/")

	rr := app.get("/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

// payload is a JSON request body.
type payload = map[string]any

func TestAPIWrites_Throttled(t *testing.T) {
	app := newTestApp(t, func(cfg *RouterConfig) {
		cfg.APIWriteThrottle = auth.NewWriteThrottle(1, 1)
	})
	alice := app.createUser("alice", false)
	book := app.createBook("Dune", "Desert planet")
	review := payload{"user_id": alice.ID, "book_id": book.ID, "stars_given": 4, "comment": "once"}

	assert.Equal(t, http.StatusCreated, app.api(http.MethodPost, "/api/reviews/", "alice", review).Code)

	rr := app.api(http.MethodPost, "/api/reviews/", "alice", review)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "Request was throttled")

	assert.Equal(t, http.StatusOK, app.api(http.MethodGet, "/api/reviews/", "alice", nil).Code)
}
