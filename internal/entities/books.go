package entities

import (
	"strings"
	"time"
)

// Rating bounds for a review.
const (
	MinStars = 1
	MaxStars = 5
)

type Book struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:100;not null" json:"title"`
	Description string       `gorm:"type:text;not null" json:"description"`
	ISBN        string       `gorm:"column:isbn;size:13;not null" json:"isbn"`
	Image       string       `gorm:"size:255" json:"image"`
	BookAuthors []BookAuthor `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`
	Reviews     []BookReview `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time    `json:"-"`
	UpdatedAt   time.Time    `json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// Authors flattens the preloaded author links.
func (b Book) Authors() []Author {
	authors := make([]Author, 0, len(b.BookAuthors))
	for _, link := range b.BookAuthors {
		authors = append(authors, link.Author)
	}
	return authors
}

type Author struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Email     string `gorm:"size:254" json:"email"`
	Biography string `gorm:"type:text" json:"biography"`
}

func (Author) TableName() string {
	return "authors"
}

func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// BookAuthor links a book to one of its authors.
type BookAuthor struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BookID   uint   `gorm:"not null;uniqueIndex:idx_book_author" json:"book_id"`
	AuthorID uint   `gorm:"not null;uniqueIndex:idx_book_author" json:"author_id"`
	Book     Book   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`
	Author   Author `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
}

func (BookAuthor) TableName() string {
	return "book_authors"
}

// BookReview is one user's rating and comment on a book. UserID and BookID
// are fixed once the review exists.
type BookReview struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	BookID     uint      `gorm:"index;not null" json:"book_id"`
	Book       Book      `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book"`
	StarsGiven int       `gorm:"not null;check:chk_book_reviews_stars,stars_given >= 1 AND stars_given <= 5" json:"stars_given"`
	Comment    string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (BookReview) TableName() string {
	return "book_reviews"
}
