package http

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/pagination"
	"github.com/mrlokans/goodreads/internal/services"
)

const (
	MsgBookUpdated = "Book updated successfully"
	msgWholeNumber = "Enter a whole number."
)

var (
	reviewFields = []string{"stars_given", "comment"}
	bookFields   = []string{"title", "description", "isbn"}
)

// BooksController serves the catalog pages.
type BooksController struct {
	books       *services.BookService
	media       *media.Store
	pages       *Pages
	pageSize    int
	maxPageSize int
}

func NewBooksController(books *services.BookService, store *media.Store, pages *Pages, pageSize, maxPageSize int) *BooksController {
	return &BooksController{
		books:       books,
		media:       store,
		pages:       pages,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
	}
}

// BooksPage lists books, optionally filtered by the q search term.
func (bc *BooksController) BooksPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))

	req, err := pagination.ParseRequest(c.Query("page"), c.Query("page_size"), bc.pageSize, bc.maxPageSize)
	if err != nil {
		bc.pages.Error(c, err, "book list")
		return
	}

	page, err := bc.books.ListBooks(query, req, pagination.ClampToLast)
	if err != nil {
		bc.pages.Error(c, err, "book list")
		return
	}

	bc.pages.Render(c, http.StatusOK, "books.html", gin.H{
		"Title":       "Books",
		"Page":        page,
		"SearchQuery": query,
		"PageBase":    pageLinkBase(c),
	})
}

// BookPage shows a book with its authors, reviews and the review form.
func (bc *BooksController) BookPage(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		bc.pages.Error(c, err, "book detail")
		return
	}
	renderBookDetail(c, bc.pages, bc.books, id, http.StatusOK, newForm())
}

// UpdatePage shows the book edit form. Staff only.
func (bc *BooksController) UpdatePage(c *gin.Context) {
	book, ok := bc.editableBook(c)
	if !ok {
		return
	}

	form := newForm()
	form.Values["title"] = book.Title
	form.Values["description"] = book.Description
	form.Values["isbn"] = book.ISBN
	bc.renderUpdate(c, http.StatusOK, book, form)
}

// Update saves the edited metadata and an optional new cover image.
func (bc *BooksController) Update(c *gin.Context) {
	book, ok := bc.editableBook(c)
	if !ok {
		return
	}

	form := formFromRequest(c, bookFields...)
	in := services.BookInput{
		Title:       form.Values["title"],
		Description: form.Values["description"],
		ISBN:        form.Values["isbn"],
	}

	var uploaded string
	if fh, err := c.FormFile("image"); err == nil && bc.media != nil {
		uploaded, err = bc.media.SaveUpload("image", media.BookImages, fh)
		if err != nil {
			if !form.addErrors(err) {
				bc.pages.Error(c, err, "book image upload")
				return
			}
		} else {
			in.Image = &uploaded
		}
	}

	if len(form.Errors) > 0 {
		bc.renderUpdate(c, http.StatusOK, book, form)
		return
	}

	previousImage := book.Image
	updated, err := bc.books.UpdateBook(auth.CurrentIdentity(c), book.ID, in)
	if err != nil {
		discardUpload(bc.media, uploaded)
		if form.addErrors(err) {
			bc.renderUpdate(c, http.StatusOK, book, form)
			return
		}
		bc.pages.Error(c, err, "book update")
		return
	}
	if uploaded != "" && previousImage != "" && previousImage != updated.Image {
		discardUpload(bc.media, previousImage)
	}

	bc.pages.Flash(c, auth.FlashSuccess, MsgBookUpdated)
	c.Redirect(http.StatusFound, "/books/")
}

// editableBook loads the book named in the URL if the caller is staff.
func (bc *BooksController) editableBook(c *gin.Context) (*entities.Book, bool) {
	if !auth.CurrentIdentity(c).IsStaff {
		bc.pages.Error(c, apperr.Forbidden("staff access required"), "book update")
		return nil, false
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		bc.pages.Error(c, err, "book update")
		return nil, false
	}
	book, err := bc.books.GetBook(id)
	if err != nil {
		bc.pages.Error(c, err, "book update")
		return nil, false
	}
	return book, true
}

func (bc *BooksController) renderUpdate(c *gin.Context, status int, book *entities.Book, form *formState) {
	bc.pages.Render(c, status, "book_update.html", gin.H{
		"Title":  "Edit " + book.Title,
		"Book":   book,
		"Values": form.Values,
		"Errors": form.Errors,
	})
}

// discardUpload removes an image that is no longer referenced.
func discardUpload(store *media.Store, relPath string) {
	if relPath == "" || store == nil {
		return
	}
	if err := store.Remove(relPath); err != nil {
		log.Printf("Failed to remove image %s: %v", relPath, err)
	}
}

// formState carries submitted values and field errors back to a form.
type formState struct {
	Values map[string]string
	Errors map[string]string
}

func newForm() *formState {
	return &formState{Values: map[string]string{}, Errors: map[string]string{}}
}

func formFromRequest(c *gin.Context, fields ...string) *formState {
	return &formState{Values: formValues(c, fields...), Errors: map[string]string{}}
}

// addErrors copies field messages from a ValidationError. It returns false
// for any other error.
func (f *formState) addErrors(err error) bool {
	verr, ok := apperr.AsValidation(err)
	if !ok {
		return false
	}
	for field, msg := range verr.Fields {
		if _, exists := f.Errors[field]; !exists {
			f.Errors[field] = msg
		}
	}
	return true
}

// parseStars reads the rating field. Empty input is left for the service to
// reject as missing.
func (f *formState) parseStars() int {
	raw := strings.TrimSpace(f.Values["stars_given"])
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.Errors["stars_given"] = msgWholeNumber
		if strings.TrimSpace(f.Values["comment"]) == "" {
			f.Errors["comment"] = entities.MsgRequired
		}
		return 0
	}
	return n
}

// renderBookDetail draws the book page, with form holding the review form's
// input and errors.
func renderBookDetail(c *gin.Context, pages *Pages, books *services.BookService, bookID uint, status int, form *formState) {
	book, err := books.GetBook(bookID)
	if err != nil {
		pages.Error(c, err, "book detail")
		return
	}

	pages.Render(c, status, "book_detail.html", gin.H{
		"Title":   book.Title,
		"Book":    book,
		"Authors": book.Authors(),
		"Reviews": book.Reviews,
		"Values":  form.Values,
		"Errors":  form.Errors,
	})
}

func bookPath(id uint) string {
	return fmt.Sprintf("/books/%d", id)
}
