package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type accountStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type reportLister interface {
	List(ctx context.Context, f models.ReportFilter) ([]models.WasteReport, error)
}

type tokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

const (
	defaultUserPageSize = 20
	userDetailReports   = 10
)

// Accounts handles registration, sign-in, profiles and user administration.
type Accounts struct {
	users    accountStore
	reports  reportLister
	tokens   tokenIssuer
	validate *validator.Validate
	now      func() time.Time
}

func NewAccounts(users accountStore, reports reportLister, tokens tokenIssuer) *Accounts {
	return &Accounts{users: users, reports: reports, tokens: tokens, validate: newValidator(), now: time.Now}
}

type RegisterInput struct {
	Name     string          `json:"name" validate:"required,max=50"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Phone    string          `json:"phone" validate:"required"`
	Address  *models.Address `json:"address"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if _, err := a.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, newError(ErrAlreadyExists, "User with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fromStore(err, "User")
	}

	now := a.now()
	user := &models.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    in.Password,
		Phone:       in.Phone,
		Role:        models.RoleUser,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
		LastLogin:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	if err := user.HashPassword(); err != nil {
		return nil, newError(ErrServer, "Server Error")
	}
	if err := a.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, newError(ErrAlreadyExists, "User with this email already exists")
		}
		return nil, fromStore(err, "User")
	}

	return a.session(user)
}

func (a *Accounts) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	user, err := a.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	if err != nil {
		return nil, fromStore(err, "User")
	}
	if !user.ComparePassword(in.Password) {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}
	if !user.IsActive {
		return nil, newError(ErrAuthorization, "Account is deactivated")
	}

	user.LastLogin = a.now()
	if err := a.users.TouchLogin(ctx, user.ID, user.LastLogin); err != nil {
		return nil, fromStore(err, "User")
	}
	return a.session(user)
}

func (a *Accounts) session(user *models.User) (*Session, error) {
	token, err := a.tokens.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, newError(ErrServer, "Server Error")
	}
	user.Password = ""
	return &Session{Token: token, User: user}, nil
}

// Profile returns the actor's own account.
func (a *Accounts) Profile(ctx context.Context, actor Actor) (*models.User, error) {
	return a.find(ctx, actor.ID)
}

type ProfileInput struct {
	Name         string          `json:"name" validate:"required,max=50"`
	Email        string          `json:"email" validate:"required,email"`
	Phone        string          `json:"phone" validate:"required"`
	Address      *models.Address `json:"address"`
	ProfileImage *string         `json:"profileImage" validate:"omitempty,url"`
}

func (a *Accounts) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := a.emailAvailable(ctx, in.Email, actor.ID); err != nil {
		return nil, err
	}

	return a.update(ctx, actor.ID, models.UserUpdate{
		Name:         &in.Name,
		Email:        &in.Email,
		Phone:        &in.Phone,
		Address:      in.Address,
		ProfileImage: in.ProfileImage,
	})
}

type PreferencesInput struct {
	Notifications *models.NotificationPreferences `json:"notifications"`
	WasteSchedule *models.WasteSchedule           `json:"wasteSchedule"`
}

// UpdatePreferences merges the supplied preference groups into the stored ones.
func (a *Accounts) UpdatePreferences(ctx context.Context, actor Actor, in PreferencesInput) (*models.User, error) {
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	user, err := a.find(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if in.Notifications != nil {
		prefs.Notifications = *in.Notifications
	}
	if in.WasteSchedule != nil {
		prefs.WasteSchedule = *in.WasteSchedule
	}
	return a.update(ctx, actor.ID, models.UserUpdate{Preferences: &prefs})
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (a *Accounts) ChangePassword(ctx context.Context, actor Actor, in ChangePasswordInput) error {
	if err := a.validate.Struct(in); err != nil {
		return validationError(err)
	}
	user, err := a.users.FindByID(ctx, actor.ID)
	if err != nil {
		return fromStore(err, "User")
	}
	if !user.ComparePassword(in.CurrentPassword) {
		return &Error{
			Kind:    ErrValidation,
			Message: "Current password is incorrect",
			Fields:  []FieldError{{Field: "currentPassword", Message: "Current password is incorrect"}},
		}
	}

	user.Password = in.NewPassword
	if err := user.HashPassword(); err != nil {
		return newError(ErrServer, "Server Error")
	}
	_, err = a.update(ctx, actor.ID, models.UserUpdate{Password: &user.Password})
	return err
}

type UserPage struct {
	Users       []models.User `json:"users"`
	TotalPages  int64         `json:"totalPages"`
	CurrentPage int64         `json:"currentPage"`
	Total       int64         `json:"total"`
}

func (a *Accounts) ListUsers(ctx context.Context, actor Actor, f models.UserFilter) (*UserPage, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, newError(ErrValidation, "Invalid role value")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultUserPageSize
	}

	users, total, err := a.users.List(ctx, f)
	if err != nil {
		return nil, fromStore(err, "User")
	}
	return &UserPage{
		Users:       users,
		TotalPages:  (total + f.Limit - 1) / f.Limit,
		CurrentPage: f.Page,
		Total:       total,
	}, nil
}

type UserDetail struct {
	User    *models.User         `json:"user"`
	Reports []models.WasteReport `json:"reports"`
}

// GetUser returns an account with its latest reports (admin only).
func (a *Accounts) GetUser(ctx context.Context, actor Actor, id primitive.ObjectID) (*UserDetail, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	user, err := a.find(ctx, id)
	if err != nil {
		return nil, err
	}
	reports, err := a.reports.List(ctx, models.ReportFilter{User: &id, Limit: userDetailReports})
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	return &UserDetail{User: user, Reports: reports}, nil
}

type AdminUserInput struct {
	Name        *string             `json:"name" validate:"omitempty,min=1,max=50"`
	Email       *string             `json:"email" validate:"omitempty,email"`
	Phone       *string             `json:"phone"`
	Address     *models.Address     `json:"address"`
	Role        *models.Role        `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive    *bool               `json:"isActive"`
	Preferences *models.Preferences `json:"preferences"`
}

func (a *Accounts) UpdateUser(ctx context.Context, actor Actor, id primitive.ObjectID, in AdminUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if err := a.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if id == actor.ID && ((in.Role != nil && *in.Role != models.RoleAdmin) || (in.IsActive != nil && !*in.IsActive)) {
		return nil, newError(ErrValidation, "Administrators cannot demote or deactivate themselves")
	}
	if in.Email != nil {
		if err := a.emailAvailable(ctx, *in.Email, id); err != nil {
			return nil, err
		}
	}

	return a.update(ctx, id, models.UserUpdate{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
		Role:        in.Role,
		IsActive:    in.IsActive,
		Preferences: in.Preferences,
	})
}

func (a *Accounts) DeactivateUser(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if !actor.IsAdmin() {
		return newError(ErrAuthorization, "Admin access required")
	}
	if id == actor.ID {
		return newError(ErrValidation, "Administrators cannot demote or deactivate themselves")
	}
	inactive := false
	_, err := a.update(ctx, id, models.UserUpdate{IsActive: &inactive})
	return err
}

func (a *Accounts) find(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := a.users.FindByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "User")
	}
	user.Password = ""
	return user, nil
}

func (a *Accounts) update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	user, err := a.users.Update(ctx, id, upd)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, newError(ErrAlreadyExists, "Email is already in use")
	}
	if err != nil {
		return nil, fromStore(err, "User")
	}
	user.Password = ""
	return user, nil
}

func (a *Accounts) emailAvailable(ctx context.Context, email string, owner primitive.ObjectID) error {
	existing, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fromStore(err, "User")
	}
	if existing.ID != owner {
		return newError(ErrAlreadyExists, "Email is already in use")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
