package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"safasajha-be/store"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrAuthorization     = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadyExists     = errors.New("already exists")
	ErrConflict          = errors.New("version conflict")
	ErrTimeout           = errors.New("timeout")
	ErrServer            = errors.New("server error")
)

type FieldError struct {
	Field   string `json:"param"`
	Message string `json:"msg"`
}

type Error struct {
	Kind    error
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// fromStore translates a storage failure; what names the entity for not-found messages.
func fromStore(err error, what string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrTimeout, "Request timed out")
	case errors.Is(err, store.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, store.ErrVersionConflict):
		return newError(ErrConflict, "%s was modified by someone else, reload and try again", what)
	case errors.Is(err, store.ErrDuplicate):
		return newError(ErrAlreadyExists, "%s already exists", what)
	}
	log.WithError(err).Errorf("store failure on %s", strings.ToLower(what))
	return newError(ErrServer, "Server Error")
}

var fieldMessages = map[string]string{
	"type":             "Waste type is required",
	"description":      "Description is required",
	"location.address": "Address is required",
	"quantity":         "Quantity is required",
	"urgency":          "Urgency level is required",
	"status":           "Invalid status value",
	"assignedTo":       "Staff assignment is required",
	"rating":           "Rating must be between 1 and 5",
	"title":            "Title is required",
	"message":          "Message is required",
	"name":             "Name is required",
	"email":            "Please include a valid email",
	"password":         "Password is required",
	"phone":            "Phone number is required",
	"currentPassword":  "Current password is required",
	"newPassword":      "New password is required",
}

var invalidMessages = map[string]string{
	"rating":      "Rating must be between 1 and 5",
	"email":       "Please include a valid email",
	"password":    "Password must be at least 6 characters",
	"newPassword": "New password must be at least 6 characters",
	"name":        "Name must be at most 50 characters",
}

// validationError renders validator failures with the portal's field messages.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(ErrValidation, "%s", err.Error())
	}
	out := &Error{Kind: ErrValidation}
	for _, fe := range verrs {
		field := jsonPath(fe.Namespace())
		msg, ok := invalidMessages[field]
		if fe.Tag() == "required" {
			msg, ok = fieldMessages[field]
		}
		if !ok {
			msg = fmt.Sprintf("Invalid %s value", field)
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: msg})
	}
	out.Message = out.Fields[0].Message
	return out
}

// jsonPath drops the struct name from a validator namespace ("CreateReportInput.location.address").
func jsonPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
