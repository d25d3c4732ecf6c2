package services

import (
	"context"
	"strings"
	"time"

	"safasajha-be/models"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type inboxStore interface {
	List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int64, int64, error)
	MarkRead(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error)
	Delete(ctx context.Context, id, user primitive.ObjectID) error
}

// Inbox serves a user's own notifications and admin broadcasts.
type Inbox struct {
	store    inboxStore
	users    userDirectory
	notify   notifier
	validate *validator.Validate
	now      func() time.Time
}

func NewInbox(store inboxStore, users userDirectory, notify notifier) *Inbox {
	return &Inbox{store: store, users: users, notify: notify, validate: newValidator(), now: time.Now}
}

type InboxPage struct {
	Notifications []models.Notification `json:"notifications"`
	TotalPages    int64                 `json:"totalPages"`
	CurrentPage   int64                 `json:"currentPage"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unreadCount"`
}

func (i *Inbox) List(ctx context.Context, actor Actor, f models.NotificationFilter) (*InboxPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, newError(ErrValidation, "Invalid type value")
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, newError(ErrValidation, "Invalid category value")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	f.User = actor.ID

	ns, total, unread, err := i.store.List(ctx, f)
	if err != nil {
		return nil, fromStore(err, "Notification")
	}

	page := &InboxPage{Notifications: ns, CurrentPage: f.Page, Total: total, UnreadCount: unread, TotalPages: 1}
	if f.Limit > 0 {
		page.TotalPages = (total + f.Limit - 1) / f.Limit
	}
	return page, nil
}

func (i *Inbox) MarkRead(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Notification, error) {
	n, err := i.store.MarkRead(ctx, id, actor.ID, i.now())
	if err != nil {
		return nil, fromStore(err, "Notification")
	}
	return n, nil
}

func (i *Inbox) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := i.store.MarkAllRead(ctx, actor.ID, i.now())
	if err != nil {
		return 0, fromStore(err, "Notification")
	}
	return n, nil
}

func (i *Inbox) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if err := i.store.Delete(ctx, id, actor.ID); err != nil {
		return fromStore(err, "Notification")
	}
	return nil
}

type BroadcastInput struct {
	Title        string                      `json:"title" validate:"required,max=100"`
	Message      string                      `json:"message" validate:"required,max=500"`
	Type         models.NotificationType     `json:"type" validate:"omitempty,oneof=info success warning error reminder"`
	Category     models.NotificationCategory `json:"category" validate:"omitempty,oneof=schedule report system payment general"`
	ScheduledFor string                      `json:"scheduledFor"`
	ActionURL    string                      `json:"actionUrl" validate:"omitempty,max=500"`
}

// Broadcast addresses one notification to every active citizen and returns how many were queued.
func (i *Inbox) Broadcast(ctx context.Context, actor Actor, in BroadcastInput) (int, error) {
	if !actor.IsAdmin() {
		return 0, newError(ErrAuthorization, "Admin access required")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if err := i.validate.Struct(in); err != nil {
		return 0, validationError(err)
	}
	scheduled, err := parseDate(in.ScheduledFor)
	if err != nil {
		return 0, &Error{
			Kind:    ErrValidation,
			Message: "Invalid scheduled time",
			Fields:  []FieldError{{Field: "scheduledFor", Message: "Invalid scheduled time"}},
		}
	}
	if in.Type == "" {
		in.Type = models.NotifyInfo
	}
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}

	recipients, err := i.users.ActiveIDsByRole(ctx, models.RoleUser)
	if err != nil {
		return 0, fromStore(err, "User")
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	now := i.now()
	batch := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		batch = append(batch, models.Notification{
			User:         user,
			Title:        in.Title,
			Message:      in.Message,
			Type:         in.Type,
			Category:     in.Category,
			ScheduledFor: scheduled,
			ActionURL:    in.ActionURL,
			Metadata:     models.NotificationMetadata{Priority: models.PriorityMedium},
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	i.notify.Notify(batch...)
	return len(batch), nil
}
