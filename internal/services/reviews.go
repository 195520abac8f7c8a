package services

import (
	"fmt"
	"strings"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/metrics"
	"github.com/mrlokans/goodreads/internal/pagination"
)

// ReviewInput carries the fields of a new review.
type ReviewInput struct {
	BookID     uint
	UserID     uint
	StarsGiven int
	Comment    string
}

// ReviewPatch holds the fields to change. Nil fields keep their value.
type ReviewPatch struct {
	StarsGiven *int
	Comment    *string
}

// ReviewService owns every read and write of book reviews.
type ReviewService struct {
	reviews ReviewRepository
	books   BookRepository
	users   UserLookup
	auditor AuditLogger
}

// NewReviewService creates a ReviewService. auditor may be nil.
func NewReviewService(reviews ReviewRepository, books BookRepository, users UserLookup, auditor AuditLogger) *ReviewService {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &ReviewService{
		reviews: reviews,
		books:   books,
		users:   users,
		auditor: auditor,
	}
}

// CreateReview stores a new review written by in.UserID and returns it with
// its user and book loaded.
func (s *ReviewService) CreateReview(actor Identity, in ReviewInput) (*entities.BookReview, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	review := &entities.BookReview{
		UserID:     in.UserID,
		BookID:     in.BookID,
		StarsGiven: in.StarsGiven,
		Comment:    strings.TrimSpace(in.Comment),
	}
	if err := apperr.FromValidation(review.Validate()); err != nil {
		return nil, err
	}

	exists, err := s.books.BookExists(review.BookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("book", review.BookID)
	}
	if _, err := s.users.GetUserByID(review.UserID); err != nil {
		return nil, err
	}

	err = s.reviews.CreateReview(review)
	metrics.RecordReviewOperation("create", err)
	if err != nil {
		s.auditor.LogReview(actor.UserID, "review_create", 0, fmt.Sprintf("Review of book %d", review.BookID), err)
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.auditor.LogReview(actor.UserID, "review_create", review.ID,
		fmt.Sprintf("Reviewed %q (%d stars)", review.Book.Title, review.StarsGiven), nil)
	return review, nil
}

// UpdateReview applies patch to an existing review. The review's user and
// book never change.
func (s *ReviewService) UpdateReview(actor Identity, id uint, patch ReviewPatch, policy OwnershipPolicy) (*entities.BookReview, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	review, err := s.reviews.GetReviewByID(id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(actor, review.UserID, policy); err != nil {
		return nil, err
	}

	if patch.StarsGiven != nil {
		review.StarsGiven = *patch.StarsGiven
	}
	if patch.Comment != nil {
		review.Comment = strings.TrimSpace(*patch.Comment)
	}
	if err := apperr.FromValidation(review.Validate()); err != nil {
		return nil, err
	}

	err = s.reviews.UpdateReview(review)
	metrics.RecordReviewOperation("update", err)
	s.auditor.LogReview(actor.UserID, "review_update", id, fmt.Sprintf("Updated review of %q", review.Book.Title), err)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes one review.
func (s *ReviewService) DeleteReview(actor Identity, id uint, policy OwnershipPolicy) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}

	review, err := s.reviews.GetReviewByID(id)
	if err != nil {
		return err
	}
	if err := requireOwner(actor, review.UserID, policy); err != nil {
		return err
	}

	err = s.reviews.DeleteReview(id)
	metrics.RecordReviewOperation("delete", err)
	s.auditor.LogReview(actor.UserID, "review_delete", id, fmt.Sprintf("Deleted review of %q", review.Book.Title), err)
	return err
}

func (s *ReviewService) GetReview(id uint) (*entities.BookReview, error) {
	return s.reviews.GetReviewByID(id)
}

// GetBookReview returns a review only if it belongs to bookID.
func (s *ReviewService) GetBookReview(bookID, reviewID uint) (*entities.BookReview, error) {
	review, err := s.reviews.GetReviewByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review.BookID != bookID {
		return nil, apperr.NotFound("review", reviewID)
	}
	return review, nil
}

// ListReviews returns one page of all reviews, newest first.
func (s *ReviewService) ListReviews(req pagination.Request, overflow pagination.Overflow) (*pagination.Page[entities.BookReview], error) {
	return pagination.Paginate(req, overflow, s.reviews.CountReviews, s.reviews.ListReviews)
}

func (s *ReviewService) ListReviewsForBook(bookID uint) ([]entities.BookReview, error) {
	return s.reviews.ListReviewsForBook(bookID)
}
