package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
}

type NotificationPreferences struct {
	Email bool `bson:"email" json:"email"`
	Push  bool `bson:"push" json:"push"`
	SMS   bool `bson:"sms" json:"sms"`
}

type WasteSchedule struct {
	Frequency     string `bson:"frequency" json:"frequency" validate:"omitempty,oneof=daily weekly biweekly"`
	PreferredDay  string `bson:"preferredDay" json:"preferredDay"`
	PreferredTime string `bson:"preferredTime" json:"preferredTime"`
}

type Preferences struct {
	Notifications NotificationPreferences `bson:"notifications" json:"notifications"`
	WasteSchedule WasteSchedule           `bson:"wasteSchedule" json:"wasteSchedule"`
}

// DefaultPreferences are applied to every new account.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, Push: true},
		WasteSchedule: WasteSchedule{Frequency: "weekly", PreferredDay: "monday", PreferredTime: "09:00"},
	}
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password,omitempty" json:"-"`
	Phone        string             `bson:"phone" json:"phone"`
	Address      Address            `bson:"address" json:"address"`
	Role         Role               `bson:"role" json:"role"`
	ProfileImage string             `bson:"profileImage" json:"profileImage"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Preferences  Preferences        `bson:"preferences" json:"preferences"`
	LastLogin    time.Time          `bson:"lastLogin" json:"lastLogin"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserFilter is used by the admin user listing.
type UserFilter struct {
	Role     Role
	IsActive *bool
	Page     int64
	Limit    int64
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// UserUpdate carries the fields to change; nil fields are left alone.
type UserUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	Address      *Address
	ProfileImage *string
	Role         *Role
	IsActive     *bool
	Preferences  *Preferences
	Password     *string
}
