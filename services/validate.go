package services

import (
	"reflect"
	"strings"
	"time"

	"safasajha-be/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
	Name string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func (a Actor) displayName() string {
	if a.Name == "" {
		return "A user"
	}
	return a.Name
}

// newValidator reports field errors under their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts calendar dates and RFC 3339 timestamps; empty means absent.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, &Error{
		Kind:    ErrValidation,
		Message: "Invalid scheduled date",
		Fields:  []FieldError{{Field: "scheduledDate", Message: "Invalid scheduled date"}},
	}
}
