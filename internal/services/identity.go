package services

import "github.com/mrlokans/goodreads/internal/apperr"

// Identity is the caller on whose behalf an operation runs. The zero value is
// the anonymous caller.
type Identity struct {
	UserID   uint
	Username string
	IsStaff  bool
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != 0
}

// OwnershipPolicy selects who may change or remove an existing review.
type OwnershipPolicy int

const (
	// OwnerOnly limits edits to the review's author.
	OwnerOnly OwnershipPolicy = iota
	// AnyAuthenticated lets every logged-in user edit any review.
	AnyAuthenticated
)

func requireAuthenticated(actor Identity) error {
	if !actor.IsAuthenticated() {
		return apperr.LoginRequired()
	}
	return nil
}

func requireStaff(actor Identity) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	if !actor.IsStaff {
		return apperr.Forbidden("staff access required")
	}
	return nil
}

func requireOwner(actor Identity, ownerID uint, policy OwnershipPolicy) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	if policy == OwnerOnly && actor.UserID != ownerID {
		return apperr.Forbidden("only the author may change this review")
	}
	return nil
}
