package controllers

import (
	"context"
	"net/http"
	"time"

	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type inboxService interface {
	List(ctx context.Context, actor services.Actor, f models.NotificationFilter) (*services.InboxPage, error)
	MarkRead(ctx context.Context, actor services.Actor, id primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor services.Actor) (int64, error)
	Delete(ctx context.Context, actor services.Actor, id primitive.ObjectID) error
}

type NotificationController struct {
	inbox   inboxService
	timeout time.Duration
}

func NewNotificationController(inbox inboxService, timeout time.Duration) *NotificationController {
	return &NotificationController{inbox: inbox, timeout: timeout}
}

// List handles GET /api/notifications?isRead=&type=&category=&page=&limit=
func (nc *NotificationController) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	read, ok := queryBool(c, "isRead")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, nc.timeout)
	defer cancel()

	result, err := nc.inbox.List(ctx, a, models.NotificationFilter{
		IsRead:   read,
		Type:     models.NotificationType(c.Query("type")),
		Category: models.NotificationCategory(c.Query("category")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, nc.timeout)
	defer cancel()

	n, err := nc.inbox.MarkRead(ctx, a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, nc.timeout)
	defer cancel()

	updated, err := nc.inbox.MarkAllRead(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (nc *NotificationController) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, nc.timeout)
	defer cancel()

	if err := nc.inbox.Delete(ctx, a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
