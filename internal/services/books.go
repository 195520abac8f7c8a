package services

import (
	"fmt"
	"strings"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/metrics"
	"github.com/mrlokans/goodreads/internal/pagination"
)

// BookInput holds editable book metadata. A nil Image keeps the current one.
type BookInput struct {
	Title       string
	Description string
	ISBN        string
	Image       *string
}

// BookService serves the catalog.
type BookService struct {
	books   BookRepository
	auditor AuditLogger
}

// NewBookService creates a BookService. auditor may be nil.
func NewBookService(books BookRepository, auditor AuditLogger) *BookService {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &BookService{books: books, auditor: auditor}
}

// GetBook returns a book with its authors and its reviews, newest first.
func (s *BookService) GetBook(id uint) (*entities.Book, error) {
	return s.books.GetBookByID(id)
}

// ListBooks returns one page of books whose title or description contains
// query, ordered by id. An empty query lists everything.
func (s *BookService) ListBooks(query string, req pagination.Request, overflow pagination.Overflow) (*pagination.Page[entities.Book], error) {
	query = strings.TrimSpace(query)
	count := func() (int64, error) { return s.books.CountBooks(query) }
	fetch := func(limit, offset int) ([]entities.Book, error) { return s.books.ListBooks(query, limit, offset) }
	return pagination.Paginate(req, overflow, count, fetch)
}

// UpdateBook changes book metadata. Only staff may edit the catalog.
func (s *BookService) UpdateBook(actor Identity, id uint, in BookInput) (*entities.Book, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	book, err := s.books.GetBookByID(id)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(in.Title)
	book.Description = strings.TrimSpace(in.Description)
	book.ISBN = strings.TrimSpace(in.ISBN)
	if in.Image != nil {
		book.Image = *in.Image
	}
	if err := apperr.FromValidation(book.Validate()); err != nil {
		return nil, err
	}

	err = s.books.UpdateBook(book)
	metrics.RecordBookUpdate(err)
	s.auditor.LogBook(actor.UserID, "book_update", id, fmt.Sprintf("Updated %q", book.Title), err)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// CreateBook adds a catalog entry with its authors. A book whose ISBN is
// already present is left alone and created is false.
func (s *BookService) CreateBook(book *entities.Book, authors []entities.Author) (created bool, err error) {
	book.Title = strings.TrimSpace(book.Title)
	book.Description = strings.TrimSpace(book.Description)
	book.ISBN = strings.TrimSpace(book.ISBN)
	if err := apperr.FromValidation(book.Validate()); err != nil {
		return false, err
	}

	existing, err := s.books.FindBookByISBN(book.ISBN)
	switch {
	case err == nil:
		*book = *existing
		return false, nil
	case !apperr.IsNotFound(err):
		return false, err
	}

	if err := s.books.CreateBook(book, authors); err != nil {
		return false, err
	}
	return true, nil
}
