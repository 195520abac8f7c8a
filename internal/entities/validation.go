package entities

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Messages shown next to form fields and in API error bodies.
const (
	MsgRequired      = "This field is required."
	MsgStarsRange    = "Ensure this value is between 1 and 5."
	MsgInvalidEmail  = "Enter a valid email address."
	MsgInvalidName   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgUsernameTaken = "A user with that username already exists."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

func maxLength(n int) validation.Rule {
	return validation.RuneLength(0, n).Error("Ensure this field has no more than {{.max}} characters.")
}

// Validate checks the rating and comment. Errors are keyed by json name.
func (r BookReview) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required.Error(MsgRequired)),
		validation.Field(&r.BookID, validation.Required.Error(MsgRequired)),
		validation.Field(&r.StarsGiven,
			validation.Required.Error(MsgRequired),
			validation.Min(MinStars).Error(MsgStarsRange),
			validation.Max(MaxStars).Error(MsgStarsRange),
		),
		validation.Field(&r.Comment, validation.Required.Error(MsgRequired)),
	)
}

// Validate checks the editable book metadata.
func (b Book) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required.Error(MsgRequired), maxLength(100)),
		validation.Field(&b.Description, validation.Required.Error(MsgRequired)),
		validation.Field(&b.ISBN, validation.Required.Error(MsgRequired), maxLength(13)),
	)
}

// Validate checks the user-editable account fields. Email is optional.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username,
			validation.Required.Error(MsgRequired),
			maxLength(150),
			validation.Match(usernamePattern).Error(MsgInvalidName),
		),
		validation.Field(&u.FirstName, maxLength(150)),
		validation.Field(&u.LastName, maxLength(150)),
		validation.Field(&u.Email,
			validation.When(u.Email != "", is.EmailFormat.Error(MsgInvalidEmail), maxLength(254)),
		),
	)
}
