package services

import "github.com/mrlokans/goodreads/internal/entities"

// BookRepository is the book storage the services need.
// Implemented by database/books.Repository.
type BookRepository interface {
	GetBookByID(id uint) (*entities.Book, error)
	BookExists(id uint) (bool, error)
	CountBooks(query string) (int64, error)
	ListBooks(query string, limit, offset int) ([]entities.Book, error)
	UpdateBook(book *entities.Book) error
	CreateBook(book *entities.Book, authors []entities.Author) error
	FindBookByISBN(isbn string) (*entities.Book, error)
}

// ReviewRepository is implemented by database/reviews.Repository.
type ReviewRepository interface {
	CreateReview(review *entities.BookReview) error
	GetReviewByID(id uint) (*entities.BookReview, error)
	UpdateReview(review *entities.BookReview) error
	DeleteReview(id uint) error
	CountReviews() (int64, error)
	ListReviews(limit, offset int) ([]entities.BookReview, error)
	ListReviewsForBook(bookID uint) ([]entities.BookReview, error)
}

// UserLookup resolves the author of a new review.
type UserLookup interface {
	GetUserByID(id uint) (*entities.User, error)
}

// AuditLogger receives review and book write events. Implemented by
// audit.Service; failures never reach the caller.
type AuditLogger interface {
	LogReview(userID uint, action string, reviewID uint, description string, err error)
	LogBook(userID uint, action string, bookID uint, description string, err error)
}

type nopAuditor struct{}

func (nopAuditor) LogReview(uint, string, uint, string, error) {}
func (nopAuditor) LogBook(uint, string, uint, string, error)   {}
