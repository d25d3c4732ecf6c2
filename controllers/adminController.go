package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type analyticsService interface {
	Dashboard(ctx context.Context, actor services.Actor) (*services.DashboardStats, error)
	Analytics(ctx context.Context, actor services.Actor, days int) (*services.AnalyticsReport, error)
}

type userAdmin interface {
	ListUsers(ctx context.Context, actor services.Actor, f models.UserFilter) (*services.UserPage, error)
	GetUser(ctx context.Context, actor services.Actor, id primitive.ObjectID) (*services.UserDetail, error)
	UpdateUser(ctx context.Context, actor services.Actor, id primitive.ObjectID, in services.AdminUserInput) (*models.User, error)
	DeactivateUser(ctx context.Context, actor services.Actor, id primitive.ObjectID) error
}

type feedbackLister interface {
	ListFeedback(ctx context.Context, actor services.Actor) ([]services.FeedbackEntry, error)
}

type broadcaster interface {
	Broadcast(ctx context.Context, actor services.Actor, in services.BroadcastInput) (int, error)
}

type AdminController struct {
	analytics analyticsService
	users     userAdmin
	feedback  feedbackLister
	inbox     broadcaster
	timeout   time.Duration
}

func NewAdminController(analytics analyticsService, users userAdmin, feedback feedbackLister, inbox broadcaster, timeout time.Duration) *AdminController {
	return &AdminController{analytics: analytics, users: users, feedback: feedback, inbox: inbox, timeout: timeout}
}

func (ad *AdminController) Dashboard(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	stats, err := ad.analytics.Dashboard(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Analytics handles GET /api/admin/analytics?period=N (days)
func (ad *AdminController) Analytics(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	period, ok := queryInt(c, "period", services.DefaultAnalyticsPeriod)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	report, err := ad.analytics.Analytics(ctx, a, int(period))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ad *AdminController) Feedback(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	entries, err := ad.feedback.ListFeedback(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": entries})
}

func (ad *AdminController) ListUsers(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	active, ok := queryBool(c, "isActive")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	result, err := ad.users.ListUsers(ctx, a, models.UserFilter{
		Role:     models.Role(c.Query("role")),
		IsActive: active,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ad *AdminController) GetUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	detail, err := ad.users.GetUser(ctx, a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (ad *AdminController) UpdateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var input services.AdminUserInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	user, err := ad.users.UpdateUser(ctx, a, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ad *AdminController) DeactivateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	if err := ad.users.DeactivateUser(ctx, a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}

func (ad *AdminController) Broadcast(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input services.BroadcastInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, ad.timeout)
	defer cancel()

	count, err := ad.inbox.Broadcast(ctx, a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Broadcast notification sent to %d users", count),
		"count":   count,
	})
}
