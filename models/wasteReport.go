package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WasteType enum
type WasteType string

const (
	WasteGeneral    WasteType = "general"
	WasteRecyclable WasteType = "recyclable"
	WasteHazardous  WasteType = "hazardous"
	WasteOrganic    WasteType = "organic"
	WasteElectronic WasteType = "electronic"
)

var WasteTypes = []WasteType{WasteGeneral, WasteRecyclable, WasteHazardous, WasteOrganic, WasteElectronic}

func (t WasteType) Valid() bool {
	for _, v := range WasteTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Quantity enum
type Quantity string

const (
	QuantitySmall  Quantity = "small"
	QuantityMedium Quantity = "medium"
	QuantityLarge  Quantity = "large"
)

func (q Quantity) Valid() bool {
	switch q {
	case QuantitySmall, QuantityMedium, QuantityLarge:
		return true
	}
	return false
}

// Urgency enum
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency}

func (u Urgency) Valid() bool {
	for _, v := range Urgencies {
		if v == u {
			return true
		}
	}
	return false
}

// ReportStatus enum
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusAssigned   ReportStatus = "assigned"
	StatusInProgress ReportStatus = "in-progress"
	StatusCompleted  ReportStatus = "completed"
	StatusCancelled  ReportStatus = "cancelled"
)

var ReportStatuses = []ReportStatus{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled}

func (s ReportStatus) Valid() bool {
	for _, v := range ReportStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports this status as an end state of the lifecycle.
func (s ReportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Location struct {
	Address     string       `bson:"address" json:"address"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Feedback is attached once, after the pickup has been completed.
type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submittedAt" json:"submittedAt"`
}

// WasteReport represents a waste pickup request filed by a citizen
type WasteReport struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	User          primitive.ObjectID  `bson:"user" json:"user"`
	Type          WasteType           `bson:"type" json:"type"`
	Description   string              `bson:"description" json:"description"`
	Location      Location            `bson:"location" json:"location"`
	Quantity      Quantity            `bson:"quantity" json:"quantity"`
	Urgency       Urgency             `bson:"urgency" json:"urgency"`
	Status        ReportStatus        `bson:"status" json:"status"`
	ScheduledDate *time.Time          `bson:"scheduledDate,omitempty" json:"scheduledDate"`
	CompletedDate *time.Time          `bson:"completedDate,omitempty" json:"completedDate,omitempty"`
	AssignedTo    *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AssignedAt    *time.Time          `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	Images        []string            `bson:"images" json:"images"`
	Notes         string              `bson:"notes" json:"notes"`
	Priority      int                 `bson:"priority" json:"priority"`
	EstimatedCost float64             `bson:"estimatedCost" json:"estimatedCost"`
	ActualCost    *float64            `bson:"actualCost,omitempty" json:"actualCost,omitempty"`
	Feedback      *Feedback           `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Version       int64               `bson:"version" json:"version"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ReportFilter narrows report listings. Zero values match everything.
type ReportFilter struct {
	User    *primitive.ObjectID
	Status  ReportStatus
	Type    WasteType
	Urgency Urgency
	Limit   int64
}

// Bucket is one row of a $group-by-field aggregation.
type Bucket struct {
	ID    string `bson:"_id" json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

// MonthlyStat is one row of the per-month report histogram.
type MonthlyStat struct {
	Month int   `bson:"_id" json:"_id"`
	Count int64 `bson:"count" json:"count"`
}
