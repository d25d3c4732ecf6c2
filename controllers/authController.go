package controllers

import (
	"context"
	"net/http"
	"time"

	"safasajha-be/middlewares"
	"safasajha-be/models"
	"safasajha-be/services"

	"github.com/gin-gonic/gin"
)

type authService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	Profile(ctx context.Context, actor services.Actor) (*models.User, error)
	ChangePassword(ctx context.Context, actor services.Actor, in services.ChangePasswordInput) error
}

// CookieOptions describe the auth_token cookie set on login.
type CookieOptions struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

type AuthController struct {
	accounts authService
	cookie   CookieOptions
	timeout  time.Duration
}

func NewAuthController(accounts authService, cookie CookieOptions, timeout time.Duration) *AuthController {
	return &AuthController{accounts: accounts, cookie: cookie, timeout: timeout}
}

// Register handles user registration
func (ac *AuthController) Register(c *gin.Context) {
	var input services.RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	session, err := ac.accounts.Register(ctx, input)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.setCookie(c, session.Token)
	c.JSON(http.StatusCreated, session)
}

// Login handles user login
func (ac *AuthController) Login(c *gin.Context) {
	var input services.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	session, err := ac.accounts.Login(ctx, input)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.setCookie(c, session.Token)
	c.JSON(http.StatusOK, session)
}

// Me returns the authenticated user's account
func (ac *AuthController) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	user, err := ac.accounts.Profile(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout clears the auth_token cookie
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", ac.cookie.Domain, ac.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var input services.ChangePasswordInput
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := withTimeout(c, ac.timeout)
	defer cancel()

	if err := ac.accounts.ChangePassword(ctx, a, input); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (ac *AuthController) setCookie(c *gin.Context, token string) {
	maxAge := int(ac.cookie.MaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = 3600
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   ac.cookie.Domain,
		Secure:   ac.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}
