package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/pagination"
	"github.com/mrlokans/goodreads/internal/services"
)

// Flash messages for review changes made through the web pages.
const (
	MsgReviewAdded   = "Review added successfully"
	MsgReviewUpdated = "Review updated successfully"
	MsgReviewDeleted = "Review deleted successfully"
)

// ReviewsController serves the home feed and the review forms. Only a
// review's author may change it here.
type ReviewsController struct {
	reviews     *services.ReviewService
	books       *services.BookService
	pages       *Pages
	pageSize    int
	maxPageSize int
}

func NewReviewsController(reviews *services.ReviewService, books *services.BookService, pages *Pages, pageSize, maxPageSize int) *ReviewsController {
	return &ReviewsController{
		reviews:     reviews,
		books:       books,
		pages:       pages,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

// HomePage shows the newest reviews across all books.
func (rc *ReviewsController) HomePage(c *gin.Context) {
	req, err := pagination.ParseRequest(c.Query("page"), c.Query("page_size"), rc.pageSize, rc.maxPageSize)
	if err != nil {
		rc.pages.Error(c, err, "home feed")
		return
	}

	page, err := rc.reviews.ListReviews(req, pagination.ClampToLast)
	if err != nil {
		rc.pages.Error(c, err, "home feed")
		return
	}

	rc.pages.Render(c, http.StatusOK, "home.html", gin.H{
		"Title":    "Home",
		"Page":     page,
		"PageBase": pageLinkBase(c),
	})
}

// Create adds the caller's review to a book. Invalid input redisplays the
// book page with the form errors.
func (rc *ReviewsController) Create(c *gin.Context) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		rc.pages.Error(c, err, "add review")
		return
	}

	form := formFromRequest(c, reviewFields...)
	stars := form.parseStars()
	if len(form.Errors) > 0 {
		renderBookDetail(c, rc.pages, rc.books, bookID, http.StatusOK, form)
		return
	}

	actor := auth.CurrentIdentity(c)
	_, err = rc.reviews.CreateReview(actor, services.ReviewInput{
		BookID:     bookID,
		UserID:     actor.UserID,
		StarsGiven: stars,
		Comment:    form.Values["comment"],
	})
	if err != nil {
		if form.addErrors(err) {
			renderBookDetail(c, rc.pages, rc.books, bookID, http.StatusOK, form)
			return
		}
		rc.pages.Error(c, err, "add review")
		return
	}

	rc.pages.Flash(c, auth.FlashSuccess, MsgReviewAdded)
	c.Redirect(http.StatusFound, bookPath(bookID))
}

// EditPage shows the review form filled with the current rating and comment.
func (rc *ReviewsController) EditPage(c *gin.Context) {
	review, ok := rc.ownReview(c, "edit review")
	if !ok {
		return
	}

	form := newForm()
	form.Values["stars_given"] = strconv.Itoa(review.StarsGiven)
	form.Values["comment"] = review.Comment
	rc.renderEdit(c, http.StatusOK, review, form)
}

// Edit saves a changed rating and comment.
func (rc *ReviewsController) Edit(c *gin.Context) {
	review, ok := rc.ownReview(c, "edit review")
	if !ok {
		return
	}

	form := formFromRequest(c, reviewFields...)
	stars := form.parseStars()
	if len(form.Errors) > 0 {
		rc.renderEdit(c, http.StatusOK, review, form)
		return
	}

	comment := form.Values["comment"]
	_, err := rc.reviews.UpdateReview(auth.CurrentIdentity(c), review.ID, services.ReviewPatch{
		StarsGiven: &stars,
		Comment:    &comment,
	}, services.OwnerOnly)
	if err != nil {
		if form.addErrors(err) {
			rc.renderEdit(c, http.StatusOK, review, form)
			return
		}
		rc.pages.Error(c, err, "edit review")
		return
	}

	rc.pages.Flash(c, auth.FlashSuccess, MsgReviewUpdated)
	c.Redirect(http.StatusFound, bookPath(review.BookID))
}

// DeletePage asks for confirmation before removing a review.
func (rc *ReviewsController) DeletePage(c *gin.Context) {
	review, ok := rc.ownReview(c, "delete review")
	if !ok {
		return
	}

	rc.pages.Render(c, http.StatusOK, "review_delete.html", gin.H{
		"Title":  "Delete review",
		"Book":   &review.Book,
		"Review": review,
	})
}

func (rc *ReviewsController) Delete(c *gin.Context) {
	review, ok := rc.ownReview(c, "delete review")
	if !ok {
		return
	}

	if err := rc.reviews.DeleteReview(auth.CurrentIdentity(c), review.ID, services.OwnerOnly); err != nil {
		rc.pages.Error(c, err, "delete review")
		return
	}

	rc.pages.Flash(c, auth.FlashSuccess, MsgReviewDeleted)
	c.Redirect(http.StatusFound, bookPath(review.BookID))
}

// ownReview loads the review named by the URL. It must belong to the book in
// the URL and to the caller.
func (rc *ReviewsController) ownReview(c *gin.Context, context string) (*entities.BookReview, bool) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		rc.pages.Error(c, err, context)
		return nil, false
	}
	reviewID, err := parseIDParam(c, "reviewId")
	if err != nil {
		rc.pages.Error(c, err, context)
		return nil, false
	}

	review, err := rc.reviews.GetBookReview(bookID, reviewID)
	if err != nil {
		rc.pages.Error(c, err, context)
		return nil, false
	}
	if review.UserID != auth.GetUserID(c) {
		rc.pages.Error(c, apperr.Forbidden("only the author may change this review"), context)
		return nil, false
	}
	return review, true
}

func (rc *ReviewsController) renderEdit(c *gin.Context, status int, review *entities.BookReview, form *formState) {
	rc.pages.Render(c, status, "review_edit.html", gin.H{
		"Title":  "Edit review",
		"Book":   &review.Book,
		"Review": review,
		"Values": form.Values,
		"Errors": form.Errors,
	})
}
