// Package apperr defines the error types shared by services and the HTTP
// layer. Handlers map them onto status codes; services never return HTTP
// concerns directly.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NonFieldKey collects messages that do not belong to a single input field.
const NonFieldKey = "non_field_errors"

// ValidationError reports bad or missing input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// FromValidation converts ozzo-validation results into a ValidationError.
// Internal validation errors and nil pass through unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for field, fieldErr := range verrs {
		if fieldErr == nil {
			continue
		}
		out.Fields[field] = fieldErr.Error()
	}
	return out
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AuthenticationError reports bad credentials. The message is deliberately
// generic so callers cannot tell which part was wrong.
type AuthenticationError struct{}

func (e *AuthenticationError) Error() string {
	return "invalid username or password"
}

// ErrInvalidCredentials is returned for unknown users, wrong passwords and
// inactive accounts alike.
var ErrInvalidCredentials error = &AuthenticationError{}

// AuthorizationError reports an action attempted without the required
// identity. Authenticated distinguishes "log in first" from "not allowed".
type AuthorizationError struct {
	Authenticated bool
	Reason        string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// LoginRequired is returned when an anonymous caller attempts a write.
func LoginRequired() *AuthorizationError {
	return &AuthorizationError{Reason: "authentication required"}
}

// Forbidden is returned when an authenticated caller lacks permission.
func Forbidden(reason string) *AuthorizationError {
	return &AuthorizationError{Authenticated: true, Reason: reason}
}

func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	ok := errors.As(err, &target)
	return target, ok
}

func AsAuthorization(err error) (*AuthorizationError, bool) {
	var target *AuthorizationError
	ok := errors.As(err, &target)
	return target, ok
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}
