// Package controllers adapts HTTP requests to the portal services.
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"safasajha-be/middlewares"
	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultTimeout = 5 * time.Second

var statusByKind = []struct {
	kind error
	code int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrUnauthenticated, http.StatusUnauthorized},
	{services.ErrAuthorization, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrInvalidTransition, http.StatusBadRequest},
	{services.ErrInvalidState, http.StatusBadRequest},
	{services.ErrAlreadyExists, http.StatusBadRequest},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrTimeout, http.StatusGatewayTimeout},
}

// respondError writes a service error as {"message", "errors"}. Unknown errors become 500.
func respondError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	for _, s := range statusByKind {
		if errors.Is(err, s.kind) {
			code = s.code
			break
		}
	}

	body := gin.H{"message": "Server Error"}
	var serr *services.Error
	if errors.As(err, &serr) {
		if code != http.StatusInternalServerError {
			body["message"] = serr.Message
		}
		if len(serr.Fields) > 0 {
			body["errors"] = serr.Fields
		}
	}
	c.AbortWithStatusJSON(code, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": message})
}

// bindJSON decodes the body and answers 400 on malformed input.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "Invalid request body")
		return false
	}
	return true
}

// actor builds the caller from the values set by AuthMiddleware.
func actor(c *gin.Context) (services.Actor, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middlewares.UserIDKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return services.Actor{}, false
	}
	role, _ := c.Get(middlewares.RoleKey)
	r, _ := role.(models.Role)
	return services.Actor{ID: id, Role: r, Name: c.GetString(middlewares.UserNameKey)}, true
}

func objectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		badRequest(c, "Invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ifMatch reads an optional expected version from the If-Match header ("3" or "\"3\"").
func ifMatch(c *gin.Context) (*int64, bool) {
	raw := strings.Trim(strings.TrimSpace(c.GetHeader("If-Match")), `"`)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		badRequest(c, "Invalid If-Match version")
		return nil, false
	}
	return &v, true
}

func queryInt(c *gin.Context, key string, fallback int64) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		badRequest(c, "Invalid "+key+" value")
		return 0, false
	}
	return v, true
}

func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "Invalid "+key+" value")
		return nil, false
	}
	return &v, true
}

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request.Context(), d)
}
