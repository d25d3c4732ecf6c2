package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reportStore interface {
	Insert(ctx context.Context, r *models.WasteReport) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.WasteReport, error)
	List(ctx context.Context, f models.ReportFilter) ([]models.WasteReport, error)
	Replace(ctx context.Context, r *models.WasteReport, expected int64) error
	Delete(ctx context.Context, id primitive.ObjectID, expected int64) error
	ListFeedback(ctx context.Context, limit int64) ([]models.WasteReport, error)
	Count(ctx context.Context, scope store.Scope, status models.ReportStatus) (int64, error)
	CountBy(ctx context.Context, field string, scope store.Scope) ([]models.Bucket, error)
	AvgRating(ctx context.Context, scope store.Scope) (float64, bool, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ActiveIDsByRole(ctx context.Context, role models.Role) ([]primitive.ObjectID, error)
}

// notifier accepts notifications for best-effort delivery. It must not block.
type notifier interface {
	Notify(ns ...models.Notification)
}

// Lifecycle owns every state change of a waste report and the notifications they trigger.
type Lifecycle struct {
	reports  reportStore
	users    userDirectory
	notify   notifier
	validate *validator.Validate
	now      func() time.Time
}

func NewLifecycle(reports reportStore, users userDirectory, notify notifier) *Lifecycle {
	return &Lifecycle{
		reports:  reports,
		users:    users,
		notify:   notify,
		validate: newValidator(),
		now:      time.Now,
	}
}

type LocationInput struct {
	Address     string              `json:"address" validate:"required"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
}

type CreateReportInput struct {
	Type          models.WasteType `json:"type" validate:"required,oneof=general recyclable hazardous organic electronic"`
	Description   string           `json:"description" validate:"required,max=2000"`
	Location      LocationInput    `json:"location"`
	Quantity      models.Quantity  `json:"quantity" validate:"required,oneof=small medium large"`
	Urgency       models.Urgency   `json:"urgency" validate:"required,oneof=low medium high emergency"`
	ScheduledDate string           `json:"scheduledDate"`
	Notes         string           `json:"notes" validate:"max=2000"`
	Images        []string         `json:"images" validate:"max=10,dive,url"`
}

// Create files a new report owned by actor. The status is always pending.
func (l *Lifecycle) Create(ctx context.Context, actor Actor, in CreateReportInput) (*models.WasteReport, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Location.Address = strings.TrimSpace(in.Location.Address)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := l.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	scheduled, err := parseDate(in.ScheduledDate)
	if err != nil {
		return nil, err
	}

	now := l.now()
	report := &models.WasteReport{
		User:          actor.ID,
		Type:          in.Type,
		Description:   in.Description,
		Location:      models.Location{Address: in.Location.Address, Coordinates: in.Location.Coordinates},
		Quantity:      in.Quantity,
		Urgency:       in.Urgency,
		Status:        models.StatusPending,
		ScheduledDate: scheduled,
		Images:        in.Images,
		Notes:         in.Notes,
		Priority:      1,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if report.Images == nil {
		report.Images = []string{}
	}

	if err := l.reports.Insert(ctx, report); err != nil {
		return nil, fromStore(err, "Report")
	}

	l.notifyAdmins(ctx, report.ID, "New Waste Report Submitted",
		fmt.Sprintf("%s submitted a new %s waste report", actor.displayName(), report.Type))

	return report, nil
}

// Get returns a report visible to its owner and to admins.
func (l *Lifecycle) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.WasteReport, error) {
	report, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, report) {
		return nil, newError(ErrAuthorization, "Not authorized")
	}
	return report, nil
}

// ListOwn lists the actor's reports, newest first.
func (l *Lifecycle) ListOwn(ctx context.Context, actor Actor, status models.ReportStatus, typ models.WasteType) ([]models.WasteReport, error) {
	if err := checkFilter(status, typ, ""); err != nil {
		return nil, err
	}
	reports, err := l.reports.List(ctx, models.ReportFilter{User: &actor.ID, Status: status, Type: typ})
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	return reports, nil
}

// ListCompleted lists the actor's completed reports, the ones that can receive feedback.
func (l *Lifecycle) ListCompleted(ctx context.Context, actor Actor) ([]models.WasteReport, error) {
	return l.ListOwn(ctx, actor, models.StatusCompleted, "")
}

// ListAll lists every report (admin only).
func (l *Lifecycle) ListAll(ctx context.Context, actor Actor, f models.ReportFilter) ([]models.WasteReport, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if err := checkFilter(f.Status, f.Type, f.Urgency); err != nil {
		return nil, err
	}
	f.User = nil
	reports, err := l.reports.List(ctx, f)
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	return reports, nil
}

// ChangeStatus moves a report to status (admin only). Completion is only legal from
// assigned or in-progress; every other target is accepted.
func (l *Lifecycle) ChangeStatus(ctx context.Context, actor Actor, id primitive.ObjectID, status models.ReportStatus, expected *int64) (*models.WasteReport, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if !status.Valid() {
		return nil, &Error{
			Kind:    ErrValidation,
			Message: "Invalid status value",
			Fields:  []FieldError{{Field: "status", Message: "Invalid status value"}},
		}
	}

	report, err := l.loadVersion(ctx, id, expected)
	if err != nil {
		return nil, err
	}
	if status == models.StatusCompleted &&
		report.Status != models.StatusAssigned && report.Status != models.StatusInProgress {
		return nil, newError(ErrInvalidTransition, "Cannot mark as completed from %s status", report.Status)
	}

	now := l.now()
	report.Status = status
	if status == models.StatusCompleted {
		report.CompletedDate = &now
	}
	if status == models.StatusPending || status == models.StatusCancelled {
		report.AssignedTo = nil
		report.AssignedAt = nil
	}
	report.UpdatedAt = now

	if err := l.save(ctx, report); err != nil {
		return nil, err
	}

	l.notifyOwner(report, models.NotifyInfo, "Waste Report Status Updated",
		fmt.Sprintf("Your waste report status changed to %s", status))
	return report, nil
}

// Assign hands a report to a staff member and forces it to assigned (admin only).
func (l *Lifecycle) Assign(ctx context.Context, actor Actor, id, staffID primitive.ObjectID, expected *int64) (*models.WasteReport, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if staffID.IsZero() {
		return nil, staffError("Staff assignment is required")
	}
	staff, err := l.users.FindByID(ctx, staffID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, staffError("Assigned staff member does not exist")
	}
	if err != nil {
		return nil, fromStore(err, "Staff member")
	}
	if !staff.IsActive {
		return nil, staffError("Assigned staff member is not active")
	}

	report, err := l.loadVersion(ctx, id, expected)
	if err != nil {
		return nil, err
	}

	now := l.now()
	report.Status = models.StatusAssigned
	report.AssignedTo = &staffID
	report.AssignedAt = &now
	report.UpdatedAt = now

	if err := l.save(ctx, report); err != nil {
		return nil, err
	}

	l.notifyOwner(report, models.NotifySuccess, "Waste Report Assigned",
		"Your waste report has been assigned to a staff member")
	return report, nil
}

// ReportPatch is a partial edit of a report's descriptive fields. Lifecycle fields are
// captured only so that they can be rejected.
type ReportPatch struct {
	Type          *models.WasteType `json:"type"`
	Description   *string           `json:"description"`
	Location      *LocationInput    `json:"location"`
	Quantity      *models.Quantity  `json:"quantity"`
	Urgency       *models.Urgency   `json:"urgency"`
	ScheduledDate *string           `json:"scheduledDate"`
	Notes         *string           `json:"notes"`
	Images        *[]string         `json:"images"`

	Priority      *int     `json:"priority"`
	EstimatedCost *float64 `json:"estimatedCost"`
	ActualCost    *float64 `json:"actualCost"`

	Version *int64 `json:"version"`

	Status        json.RawMessage `json:"status"`
	Feedback      json.RawMessage `json:"feedback"`
	AssignedTo    json.RawMessage `json:"assignedTo"`
	AssignedAt    json.RawMessage `json:"assignedAt"`
	CompletedDate json.RawMessage `json:"completedDate"`
	User          json.RawMessage `json:"user"`
}

func (p ReportPatch) lifecycleFields() []string {
	var fields []string
	for name, raw := range map[string]json.RawMessage{
		"status":        p.Status,
		"feedback":      p.Feedback,
		"assignedTo":    p.AssignedTo,
		"assignedAt":    p.AssignedAt,
		"completedDate": p.CompletedDate,
		"user":          p.User,
	} {
		if len(raw) > 0 {
			fields = append(fields, name)
		}
	}
	return fields
}

// Edit applies a descriptive patch (owner or admin). Status, assignment and feedback
// only change through their own operations.
func (l *Lifecycle) Edit(ctx context.Context, actor Actor, id primitive.ObjectID, patch ReportPatch) (*models.WasteReport, error) {
	report, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, report) {
		return nil, newError(ErrAuthorization, "Not authorized")
	}
	if !actor.IsAdmin() && (patch.Priority != nil || patch.EstimatedCost != nil || patch.ActualCost != nil) {
		return nil, newError(ErrAuthorization, "Only administrators can change priority or cost")
	}
	if fields := patch.lifecycleFields(); len(fields) > 0 {
		sort.Strings(fields)
		out := &Error{Kind: ErrValidation, Message: "Lifecycle fields cannot be edited directly"}
		for _, f := range fields {
			out.Fields = append(out.Fields, FieldError{Field: f, Message: f + " cannot be edited directly"})
		}
		return nil, out
	}
	if patch.Version != nil && *patch.Version != report.Version {
		return nil, staleError()
	}

	if err := applyPatch(report, patch); err != nil {
		return nil, err
	}
	report.UpdatedAt = l.now()

	if err := l.save(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func applyPatch(r *models.WasteReport, p ReportPatch) error {
	invalid := func(field, msg string) error {
		return &Error{Kind: ErrValidation, Message: msg, Fields: []FieldError{{Field: field, Message: msg}}}
	}

	if p.Type != nil {
		if !p.Type.Valid() {
			return invalid("type", "Invalid type value")
		}
		r.Type = *p.Type
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		if d == "" {
			return invalid("description", "Description is required")
		}
		r.Description = d
	}
	if p.Location != nil {
		addr := strings.TrimSpace(p.Location.Address)
		if addr == "" {
			return invalid("location.address", "Address is required")
		}
		r.Location = models.Location{Address: addr, Coordinates: p.Location.Coordinates}
	}
	if p.Quantity != nil {
		if !p.Quantity.Valid() {
			return invalid("quantity", "Invalid quantity value")
		}
		r.Quantity = *p.Quantity
	}
	if p.Urgency != nil {
		if !p.Urgency.Valid() {
			return invalid("urgency", "Invalid urgency value")
		}
		r.Urgency = *p.Urgency
	}
	if p.ScheduledDate != nil {
		d, err := parseDate(*p.ScheduledDate)
		if err != nil {
			return err
		}
		r.ScheduledDate = d
	}
	if p.Notes != nil {
		r.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.Images != nil {
		r.Images = append([]string{}, (*p.Images)...)
	}
	if p.Priority != nil {
		if *p.Priority < 1 {
			return invalid("priority", "Invalid priority value")
		}
		r.Priority = *p.Priority
	}
	if p.EstimatedCost != nil {
		if *p.EstimatedCost < 0 {
			return invalid("estimatedCost", "Invalid estimatedCost value")
		}
		r.EstimatedCost = *p.EstimatedCost
	}
	if p.ActualCost != nil {
		if *p.ActualCost < 0 {
			return invalid("actualCost", "Invalid actualCost value")
		}
		r.ActualCost = p.ActualCost
	}
	return nil
}

// Delete removes a pending report (owner or admin).
func (l *Lifecycle) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	report, err := l.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, report) {
		return newError(ErrAuthorization, "Not authorized")
	}
	if report.Status != models.StatusPending {
		return newError(ErrInvalidState, "Only pending reports can be deleted")
	}
	if err := l.reports.Delete(ctx, report.ID, report.Version); err != nil {
		return fromStore(err, "Report")
	}
	return nil
}

type FeedbackInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// SubmitFeedback attaches the owner's one-time rating to a completed report.
func (l *Lifecycle) SubmitFeedback(ctx context.Context, actor Actor, id primitive.ObjectID, in FeedbackInput) (*models.WasteReport, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := l.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	report, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.User != actor.ID {
		return nil, newError(ErrAuthorization, "Only the report owner can submit feedback")
	}
	if report.Status != models.StatusCompleted {
		return nil, newError(ErrInvalidState, "Feedback can only be submitted for completed reports")
	}
	if report.Feedback != nil {
		return nil, feedbackExists()
	}

	now := l.now()
	report.Feedback = &models.Feedback{Rating: in.Rating, Comment: in.Comment, SubmittedAt: now}
	report.UpdatedAt = now

	if err := l.save(ctx, report); err != nil {
		if isKind(err, ErrConflict) {
			if fresh, ferr := l.reports.FindByID(ctx, id); ferr == nil && fresh.Feedback != nil {
				return nil, feedbackExists()
			}
		}
		return nil, err
	}

	l.notifyAdmins(ctx, report.ID, "Feedback Received",
		fmt.Sprintf("%s rated a %s waste pickup %d/5", actor.displayName(), report.Type, in.Rating))
	return report, nil
}

// AttachImages appends uploaded image URLs to a report (owner or admin).
func (l *Lifecycle) AttachImages(ctx context.Context, actor Actor, id primitive.ObjectID, urls ...string) (*models.WasteReport, error) {
	report, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, report) {
		return nil, newError(ErrAuthorization, "Not authorized")
	}
	report.Images = append(report.Images, urls...)
	report.UpdatedAt = l.now()
	if err := l.save(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

type FeedbackEntry struct {
	ID          primitive.ObjectID `json:"_id"`
	Rating      int                `json:"rating"`
	Comment     string             `json:"comment"`
	SubmittedAt time.Time          `json:"submittedAt"`
	User        *UserSummary       `json:"user,omitempty"`
	Report      FeedbackReport     `json:"report"`
}

type FeedbackReport struct {
	ID          primitive.ObjectID `json:"_id"`
	Type        models.WasteType   `json:"type"`
	Location    models.Location    `json:"location"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

type UserSummary struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// ListFeedback returns every submitted feedback with its report and author (admin only).
func (l *Lifecycle) ListFeedback(ctx context.Context, actor Actor) ([]FeedbackEntry, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	reports, err := l.reports.ListFeedback(ctx, 0)
	if err != nil {
		return nil, fromStore(err, "Report")
	}

	authors := map[primitive.ObjectID]*UserSummary{}
	entries := make([]FeedbackEntry, 0, len(reports))
	for _, r := range reports {
		if r.Feedback == nil {
			continue
		}
		author, seen := authors[r.User]
		if !seen {
			if u, err := l.users.FindByID(ctx, r.User); err == nil {
				author = &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
			}
			authors[r.User] = author
		}
		completed := r.CompletedDate
		if completed == nil {
			completed = &r.UpdatedAt
		}
		entries = append(entries, FeedbackEntry{
			ID:          r.ID,
			Rating:      r.Feedback.Rating,
			Comment:     r.Feedback.Comment,
			SubmittedAt: r.Feedback.SubmittedAt,
			User:        author,
			Report:      FeedbackReport{ID: r.ID, Type: r.Type, Location: r.Location, CompletedAt: completed},
		})
	}
	return entries, nil
}

type UserReportStats struct {
	TotalReports     int64           `json:"totalReports"`
	PendingReports   int64           `json:"pendingReports"`
	CompletedReports int64           `json:"completedReports"`
	ReportsByType    []models.Bucket `json:"reportsByType"`
	AvgRating        float64         `json:"avgRating"`
}

// UserStats summarises the actor's own reports for the citizen dashboard.
func (l *Lifecycle) UserStats(ctx context.Context, actor Actor) (*UserReportStats, error) {
	scope := store.Scope{User: &actor.ID}
	stats := &UserReportStats{}
	var err error

	if stats.TotalReports, err = l.reports.Count(ctx, scope, ""); err != nil {
		return nil, fromStore(err, "Report")
	}
	if stats.PendingReports, err = l.reports.Count(ctx, scope, models.StatusPending); err != nil {
		return nil, fromStore(err, "Report")
	}
	if stats.CompletedReports, err = l.reports.Count(ctx, scope, models.StatusCompleted); err != nil {
		return nil, fromStore(err, "Report")
	}
	if stats.ReportsByType, err = l.reports.CountBy(ctx, "type", scope); err != nil {
		return nil, fromStore(err, "Report")
	}
	avg, ok, err := l.reports.AvgRating(ctx, scope)
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	if ok {
		stats.AvgRating = math.Round(avg*10) / 10
	}
	return stats, nil
}

func (l *Lifecycle) load(ctx context.Context, id primitive.ObjectID) (*models.WasteReport, error) {
	report, err := l.reports.FindByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	return report, nil
}

// loadVersion loads a report and checks a caller-supplied expected version.
func (l *Lifecycle) loadVersion(ctx context.Context, id primitive.ObjectID, expected *int64) (*models.WasteReport, error) {
	report, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if expected != nil && *expected != report.Version {
		return nil, staleError()
	}
	return report, nil
}

// save writes report iff nobody else wrote it since it was read.
func (l *Lifecycle) save(ctx context.Context, report *models.WasteReport) error {
	if err := l.reports.Replace(ctx, report, report.Version); err != nil {
		return fromStore(err, "Report")
	}
	return nil
}

func (l *Lifecycle) notifyOwner(report *models.WasteReport, typ models.NotificationType, title, message string) {
	l.notify.Notify(reportNotification(report.User, report.ID, typ, title, message, l.now()))
}

// notifyAdmins addresses every active admin. Failures are logged, never returned.
func (l *Lifecycle) notifyAdmins(ctx context.Context, reportID primitive.ObjectID, title, message string) {
	admins, err := l.users.ActiveIDsByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.WithError(err).WithField("reportId", reportID.Hex()).Warn("could not load admins to notify")
		return
	}
	if len(admins) == 0 {
		return
	}
	now := l.now()
	batch := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		batch = append(batch, reportNotification(admin, reportID, models.NotifyInfo, title, message, now))
	}
	l.notify.Notify(batch...)
}

func reportNotification(user, reportID primitive.ObjectID, typ models.NotificationType, title, message string, now time.Time) models.Notification {
	id := reportID
	return models.Notification{
		User:     user,
		Title:    title,
		Message:  message,
		Type:     typ,
		Category: models.CategoryReport,
		Metadata: models.NotificationMetadata{
			WasteReportID: &id,
			Priority:      models.PriorityMedium,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func canManage(actor Actor, report *models.WasteReport) bool {
	return actor.IsAdmin() || report.User == actor.ID
}

func checkFilter(status models.ReportStatus, typ models.WasteType, urgency models.Urgency) error {
	switch {
	case status != "" && !status.Valid():
		return newError(ErrValidation, "Invalid status value")
	case typ != "" && !typ.Valid():
		return newError(ErrValidation, "Invalid type value")
	case urgency != "" && !urgency.Valid():
		return newError(ErrValidation, "Invalid urgency value")
	}
	return nil
}

func staffError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: []FieldError{{Field: "assignedTo", Message: msg}}}
}

func staleError() error {
	return newError(ErrConflict, "Report was modified by someone else, reload and try again")
}

func feedbackExists() error {
	return newError(ErrAlreadyExists, "Feedback already submitted for this report")
}

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}
