package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyInfo     NotificationType = "info"
	NotifySuccess  NotificationType = "success"
	NotifyWarning  NotificationType = "warning"
	NotifyError    NotificationType = "error"
	NotifyReminder NotificationType = "reminder"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyInfo, NotifySuccess, NotifyWarning, NotifyError, NotifyReminder:
		return true
	}
	return false
}

type NotificationCategory string

const (
	CategorySchedule NotificationCategory = "schedule"
	CategoryReport   NotificationCategory = "report"
	CategorySystem   NotificationCategory = "system"
	CategoryPayment  NotificationCategory = "payment"
	CategoryGeneral  NotificationCategory = "general"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case CategorySchedule, CategoryReport, CategorySystem, CategoryPayment, CategoryGeneral:
		return true
	}
	return false
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

type NotificationMetadata struct {
	WasteReportID *primitive.ObjectID  `bson:"wasteReportId,omitempty" json:"wasteReportId,omitempty"`
	Priority      NotificationPriority `bson:"priority" json:"priority"`
}

// Notification is addressed to exactly one user.
type Notification struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	User         primitive.ObjectID   `bson:"user" json:"user"`
	Title        string               `bson:"title" json:"title"`
	Message      string               `bson:"message" json:"message"`
	Type         NotificationType     `bson:"type" json:"type"`
	Category     NotificationCategory `bson:"category" json:"category"`
	IsRead       bool                 `bson:"isRead" json:"isRead"`
	ReadAt       *time.Time           `bson:"readAt,omitempty" json:"readAt,omitempty"`
	IsSent       bool                 `bson:"isSent" json:"isSent"`
	SentAt       *time.Time           `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	ScheduledFor *time.Time           `bson:"scheduledFor,omitempty" json:"scheduledFor,omitempty"`
	ActionURL    string               `bson:"actionUrl,omitempty" json:"actionUrl,omitempty"`
	Metadata     NotificationMetadata `bson:"metadata" json:"metadata"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Due reports whether the notification should be delivered now rather than by the scheduler.
func (n Notification) Due(now time.Time) bool {
	return n.ScheduledFor == nil || !n.ScheduledFor.After(now)
}

// Payload is the shape pushed over the real-time channel.
func (n Notification) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"_id":      n.ID,
		"title":    n.Title,
		"message":  n.Message,
		"type":     n.Type,
		"category": n.Category,
		"metadata": n.Metadata,
	}
	if n.ActionURL != "" {
		p["actionUrl"] = n.ActionURL
	}
	return p
}

// NotificationFilter narrows a user's inbox listing. Limit 0 returns everything.
type NotificationFilter struct {
	User     primitive.ObjectID
	IsRead   *bool
	Type     NotificationType
	Category NotificationCategory
	Page     int64
	Limit    int64
}
