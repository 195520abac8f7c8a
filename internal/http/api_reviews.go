package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/pagination"
	"github.com/mrlokans/goodreads/internal/services"
)

// --- Resources ---

type UserResource struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

type BookResource struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ISBN        string  `json:"isbn"`
	Image       *string `json:"image"`
}

// ReviewResource is a review with its author and book nested.
type ReviewResource struct {
	ID         uint         `json:"id"`
	User       UserResource `json:"user"`
	Book       BookResource `json:"book"`
	StarsGiven int          `json:"stars_given"`
	Comment    string       `json:"comment"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ReviewList is one page of reviews. Next and Previous are absolute URLs or
// null.
type ReviewList struct {
	Count    int64            `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []ReviewResource `json:"results"`
}

// reviewRequest holds the writable fields. Absent fields stay nil so PUT and
// PATCH can tell them from zero values.
type reviewRequest struct {
	UserID     *uint   `json:"user_id" form:"user_id"`
	BookID     *uint   `json:"book_id" form:"book_id"`
	StarsGiven *int    `json:"stars_given" form:"stars_given"`
	Comment    *string `json:"comment" form:"comment"`
}

// ReviewsAPIController serves /api/reviews/. Reads are public; writes need
// an authenticated caller.
type ReviewsAPIController struct {
	reviews     *services.ReviewService
	policy      services.OwnershipPolicy
	pageSize    int
	maxPageSize int
	baseURL     string
}

func NewReviewsAPIController(reviews *services.ReviewService, policy services.OwnershipPolicy, pageSize, maxPageSize int, baseURL string) *ReviewsAPIController {
	return &ReviewsAPIController{
		reviews:     reviews,
		policy:      policy,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
	}
}

// List returns reviews newest first. A page past the end is empty.
func (ac *ReviewsAPIController) List(c *gin.Context) {
	req, err := pagination.ParseRequest(c.Query("page"), c.Query("page_size"), ac.pageSize, ac.maxPageSize)
	if err != nil {
		respondAPIError(c, err, "list reviews")
		return
	}

	page, err := ac.reviews.ListReviews(req, pagination.EmptyPage)
	if err != nil {
		respondAPIError(c, err, "list reviews")
		return
	}

	origin := ac.origin(c)
	list := ReviewList{
		Count:   page.Count,
		Results: make([]ReviewResource, 0, len(page.Items)),
	}
	for i := range page.Items {
		list.Results = append(list.Results, toReviewResource(&page.Items[i], origin))
	}
	if page.HasNext() {
		next := pageURL(origin, c.Request.URL, page.NextNumber())
		list.Next = &next
	}
	if page.HasPrevious() {
		prev := pageURL(origin, c.Request.URL, page.PreviousNumber())
		list.Previous = &prev
	}

	c.JSON(http.StatusOK, list)
}

func (ac *ReviewsAPIController) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondAPIError(c, err, "get review")
		return
	}

	review, err := ac.reviews.GetReview(id)
	if err != nil {
		respondAPIError(c, err, "get review")
		return
	}
	c.JSON(http.StatusOK, toReviewResource(review, ac.origin(c)))
}

// Create stores a review for user_id on book_id.
func (ac *ReviewsAPIController) Create(c *gin.Context) {
	req, err := bindReviewRequest(c)
	if err != nil {
		respondAPIError(c, err, "create review")
		return
	}
	if err := req.requireAll(); err != nil {
		respondAPIError(c, err, "create review")
		return
	}

	review, err := ac.reviews.CreateReview(auth.CurrentIdentity(c), services.ReviewInput{
		UserID:     *req.UserID,
		BookID:     *req.BookID,
		StarsGiven: *req.StarsGiven,
		Comment:    *req.Comment,
	})
	if err != nil {
		respondAPIError(c, err, "create review")
		return
	}
	c.JSON(http.StatusCreated, toReviewResource(review, ac.origin(c)))
}

// Replace handles PUT. Every writable field is required; user_id and book_id
// are checked for presence but a review never moves to another user or book.
func (ac *ReviewsAPIController) Replace(c *gin.Context) {
	ac.update(c, true)
}

// Patch handles PATCH. Only the fields present are changed.
func (ac *ReviewsAPIController) Patch(c *gin.Context) {
	ac.update(c, false)
}

func (ac *ReviewsAPIController) update(c *gin.Context, full bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondAPIError(c, err, "update review")
		return
	}

	req, err := bindReviewRequest(c)
	if err != nil {
		respondAPIError(c, err, "update review")
		return
	}
	if full {
		if err := req.requireAll(); err != nil {
			respondAPIError(c, err, "update review")
			return
		}
	}

	review, err := ac.reviews.UpdateReview(auth.CurrentIdentity(c), id, services.ReviewPatch{
		StarsGiven: req.StarsGiven,
		Comment:    req.Comment,
	}, ac.policy)
	if err != nil {
		respondAPIError(c, err, "update review")
		return
	}
	c.JSON(http.StatusOK, toReviewResource(review, ac.origin(c)))
}

func (ac *ReviewsAPIController) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondAPIError(c, err, "delete review")
		return
	}

	if err := ac.reviews.DeleteReview(auth.CurrentIdentity(c), id, ac.policy); err != nil {
		respondAPIError(c, err, "delete review")
		return
	}
	c.Status(http.StatusNoContent)
}

// origin is the scheme and host that absolute links start with.
func (ac *ReviewsAPIController) origin(c *gin.Context) string {
	if ac.baseURL != "" {
		return ac.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// pageURL points at page number of the current listing, keeping the other
// query parameters. Page 1 is addressed without a page parameter.
func pageURL(origin string, current *url.URL, number int) string {
	q := current.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}

	link := origin + current.Path
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link
}

const (
	msgInvalidInteger = "A valid integer is required."
	msgInvalidString  = "Not a valid string."
	msgNotNull        = "This field may not be null."
)

// bindReviewRequest reads a JSON or form body. JSON numbers may arrive as
// numeric strings; an explicit null is a field error rather than "absent".
func bindReviewRequest(c *gin.Context) (*reviewRequest, error) {
	if c.ContentType() != gin.MIMEJSON {
		var req reviewRequest
		if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, apperr.Invalid(apperr.NonFieldKey, "Malformed request body.")
		}
		return &req, nil
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Invalid(apperr.NonFieldKey, "Malformed request body.")
	}

	var req reviewRequest
	verr := &apperr.ValidationError{}
	req.UserID = jsonID(raw, "user_id", verr)
	req.BookID = jsonID(raw, "book_id", verr)
	req.StarsGiven = jsonInt(raw, "stars_given", verr)
	req.Comment = jsonString(raw, "comment", verr)
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return &req, nil
}

// jsonScalar decodes field, recording a null as an error. ok is false when
// the field is absent or null.
func jsonScalar(raw map[string]json.RawMessage, field string, verr *apperr.ValidationError) (any, bool) {
	value, present := raw[field]
	if !present {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		verr.Add(field, msgInvalidInteger)
		return nil, false
	}
	if v == nil {
		verr.Add(field, msgNotNull)
		return nil, false
	}
	return v, true
}

func jsonInt(raw map[string]json.RawMessage, field string, verr *apperr.ValidationError) *int {
	v, ok := jsonScalar(raw, field, verr)
	if !ok {
		return nil
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		verr.Add(field, msgInvalidInteger)
		return nil
	}
	// "5.0" is accepted as 5, "5.5" is not.
	if dot := strings.IndexByte(text, '.'); dot >= 0 && strings.Trim(text[dot+1:], "0") == "" {
		text = text[:dot]
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		verr.Add(field, msgInvalidInteger)
		return nil
	}
	return &n
}

func jsonID(raw map[string]json.RawMessage, field string, verr *apperr.ValidationError) *uint {
	n := jsonInt(raw, field, verr)
	if n == nil {
		return nil
	}
	if *n < 0 {
		verr.Add(field, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *n))
		return nil
	}
	id := uint(*n)
	return &id
}

func jsonString(raw map[string]json.RawMessage, field string, verr *apperr.ValidationError) *string {
	v, ok := jsonScalar(raw, field, verr)
	if !ok {
		return nil
	}

	var text string
	switch t := v.(type) {
	case string:
		text = t
	case json.Number:
		text = t.String()
	default:
		verr.Add(field, msgInvalidString)
		return nil
	}
	return &text
}

func (r *reviewRequest) requireAll() error {
	verr := &apperr.ValidationError{}
	if r.UserID == nil {
		verr.Add("user_id", entities.MsgRequired)
	}
	if r.BookID == nil {
		verr.Add("book_id", entities.MsgRequired)
	}
	if r.StarsGiven == nil {
		verr.Add("stars_given", entities.MsgRequired)
	}
	if r.Comment == nil {
		verr.Add("comment", entities.MsgRequired)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func toReviewResource(review *entities.BookReview, origin string) ReviewResource {
	book := BookResource{
		ID:          review.Book.ID,
		Title:       review.Book.Title,
		Description: review.Book.Description,
		ISBN:        review.Book.ISBN,
	}
	if review.Book.Image != "" {
		image := origin + media.URL(review.Book.Image)
		book.Image = &image
	}

	return ReviewResource{
		ID: review.ID,
		User: UserResource{
			FirstName: review.User.FirstName,
			LastName:  review.User.LastName,
			Email:     review.User.Email,
			Username:  review.User.Username,
		},
		Book:       book,
		StarsGiven: review.StarsGiven,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
	}
}
