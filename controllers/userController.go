package controllers

import (
	"context"
	"net/http"
	"time"

	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/gin-gonic/gin"
)

type profileService interface {
	Profile(ctx context.Context, actor services.Actor) (*models.User, error)
	UpdateProfile(ctx context.Context, actor services.Actor, in services.ProfileInput) (*models.User, error)
	UpdatePreferences(ctx context.Context, actor services.Actor, in services.PreferencesInput) (*models.User, error)
}

type statsService interface {
	UserStats(ctx context.Context, actor services.Actor) (*services.UserReportStats, error)
}

type UserController struct {
	accounts profileService
	reports  statsService
	timeout  time.Duration
}

func NewUserController(accounts profileService, reports statsService, timeout time.Duration) *UserController {
	return &UserController{accounts: accounts, reports: reports, timeout: timeout}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, uc.timeout)
	defer cancel()

	user, err := uc.accounts.Profile(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input services.ProfileInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, uc.timeout)
	defer cancel()

	user, err := uc.accounts.UpdateProfile(ctx, a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdatePreferences(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input services.PreferencesInput
	if !bindJSON(c, &input) {
		return
	}
	ctx, cancel := withTimeout(c, uc.timeout)
	defer cancel()

	user, err := uc.accounts.UpdatePreferences(ctx, a, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Stats returns the caller's report totals
func (uc *UserController) Stats(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, uc.timeout)
	defer cancel()

	stats, err := uc.reports.UserStats(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
