// Package books provides database operations for the book catalog.
//
// This package implements the services.BookRepository interface.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(123)
//	page, err := repo.ListBooks("dune", 2, 0)
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
)

// Repository handles all book and author database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func preloadAuthors(db *gorm.DB) *gorm.DB {
	return db.Preload("BookAuthors", func(db *gorm.DB) *gorm.DB {
		return db.Order("book_authors.id ASC")
	}).Preload("BookAuthors.Author")
}

// GetBookByID retrieves a book with its authors and reviews, newest review first.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := preloadAuthors(r.db).Preload("Reviews", func(db *gorm.DB) *gorm.DB {
		return db.Order("book_reviews.created_at DESC, book_reviews.id DESC")
	}).Preload("Reviews.User").First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("book", id)
		}
		return nil, err
	}
	return &book, nil
}

// BookExists reports whether a book with id is stored, without loading it.
func (r *Repository) BookExists(id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&entities.Book{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check book %d: %w", id, err)
	}
	return count > 0, nil
}

// searchScope filters by a case-insensitive substring of title or description.
// An empty query matches everything.
func searchScope(query string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		query = strings.TrimSpace(query)
		if query == "" {
			return db
		}
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		return db.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CountBooks returns the number of books matching query.
func (r *Repository) CountBooks(query string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Scopes(searchScope(query)).Count(&count).Error
	return count, err
}

// ListBooks returns one window of books matching query, ordered by id.
func (r *Repository) ListBooks(query string, limit, offset int) ([]entities.Book, error) {
	var books []entities.Book
	q := preloadAuthors(r.db).Scopes(searchScope(query)).Order("books.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&books).Error
	return books, err
}

// UpdateBook persists the editable metadata fields of a book.
func (r *Repository) UpdateBook(book *entities.Book) error {
	result := r.db.Model(book).Select("title", "description", "isbn", "image").Updates(map[string]any{
		"title":       book.Title,
		"description": book.Description,
		"isbn":        book.ISBN,
		"image":       book.Image,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("book", book.ID)
	}
	return nil
}

// CreateBook stores a book and links it to its authors. Authors that already
// exist with the same first and last name are reused.
func (r *Repository) CreateBook(book *entities.Book, authors []entities.Author) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("BookAuthors", "Reviews").Create(book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}

		for _, a := range authors {
			author := a
			err := tx.Where("first_name = ? AND last_name = ?", author.FirstName, author.LastName).
				Attrs(entities.Author{Email: author.Email, Biography: author.Biography}).
				FirstOrCreate(&author).Error
			if err != nil {
				return fmt.Errorf("failed to resolve author %s: %w", author.FullName(), err)
			}

			link := entities.BookAuthor{BookID: book.ID, AuthorID: author.ID}
			if err := tx.Where(&link).FirstOrCreate(&link).Error; err != nil {
				return fmt.Errorf("failed to link author %s: %w", author.FullName(), err)
			}
		}
		return nil
	})
}

// FindBookByISBN returns the first book with the given ISBN.
func (r *Repository) FindBookByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn = ?", isbn).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("book", isbn)
		}
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes a book together with its reviews and author links.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookAuthor{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("book", id)
		}
		return nil
	})
}
