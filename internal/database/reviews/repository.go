// Package reviews provides database operations for book reviews.
//
// This package implements the services.ReviewRepository interface. Reviews
// are always returned with their user and book preloaded, newest first.
package reviews

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
)

const newestFirst = "book_reviews.created_at DESC, book_reviews.id DESC"

// Repository handles all review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withRelations() *gorm.DB {
	return r.db.Preload("User").Preload("Book")
}

// CreateReview inserts a review and loads its user and book snapshots.
func (r *Repository) CreateReview(review *entities.BookReview) error {
	if err := r.db.Omit("User", "Book").Create(review).Error; err != nil {
		return err
	}
	return r.withRelations().First(review, review.ID).Error
}

// GetReviewByID retrieves a review with its user and book.
func (r *Repository) GetReviewByID(id uint) (*entities.BookReview, error) {
	var review entities.BookReview
	err := r.withRelations().First(&review, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("review", id)
		}
		return nil, err
	}
	return &review, nil
}

// UpdateReview persists the rating and comment. The user and book of a review
// never change.
func (r *Repository) UpdateReview(review *entities.BookReview) error {
	result := r.db.Model(&entities.BookReview{ID: review.ID}).Updates(map[string]any{
		"stars_given": review.StarsGiven,
		"comment":     review.Comment,
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("review", review.ID)
	}
	return r.withRelations().First(review, review.ID).Error
}

// DeleteReview removes exactly one review.
func (r *Repository) DeleteReview(id uint) error {
	result := r.db.Delete(&entities.BookReview{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("review", id)
	}
	return nil
}

// CountReviews returns the total number of reviews.
func (r *Repository) CountReviews() (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookReview{}).Count(&count).Error
	return count, err
}

// ListReviews returns one window of all reviews, newest first.
func (r *Repository) ListReviews(limit, offset int) ([]entities.BookReview, error) {
	var reviews []entities.BookReview
	q := r.withRelations().Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&reviews).Error
	return reviews, err
}

// ListReviewsForBook returns every review of a book, newest first.
func (r *Repository) ListReviewsForBook(bookID uint) ([]entities.BookReview, error) {
	var reviews []entities.BookReview
	err := r.withRelations().Where("book_id = ?", bookID).Order(newestFirst).Find(&reviews).Error
	return reviews, err
}
