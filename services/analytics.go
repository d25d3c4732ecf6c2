package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"
)

type analyticsReports interface {
	List(ctx context.Context, f models.ReportFilter) ([]models.WasteReport, error)
	Count(ctx context.Context, scope store.Scope, status models.ReportStatus) (int64, error)
	CountBy(ctx context.Context, field string, scope store.Scope) ([]models.Bucket, error)
	CountCompletedSince(ctx context.Context, since time.Time) (int64, error)
	AvgCompletionDays(ctx context.Context, since time.Time) (float64, bool, error)
	MonthlyCounts(ctx context.Context, year int) ([]models.MonthlyStat, error)
}

type analyticsUsers interface {
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	RegistrationsPerDay(ctx context.Context, since time.Time) ([]models.Bucket, error)
}

const (
	DefaultAnalyticsPeriod = 30
	maxAnalyticsPeriod     = 365
	recentReportsLimit     = 5
)

// Analytics computes the admin dashboards. Every figure is recomputed per call.
type Analytics struct {
	reports analyticsReports
	users   analyticsUsers
	now     func() time.Time
}

func NewAnalytics(reports analyticsReports, users analyticsUsers) *Analytics {
	return &Analytics{reports: reports, users: users, now: time.Now}
}

type StatusCounts struct {
	Pending    int64 `json:"pending"`
	Assigned   int64 `json:"assigned"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
	Total      int64 `json:"total"`
}

type DashboardStats struct {
	TotalUsers       int64                `json:"totalUsers"`
	Reports          StatusCounts         `json:"reports"`
	ReportsByType    []models.Bucket      `json:"reportsByType"`
	ReportsByUrgency []models.Bucket      `json:"reportsByUrgency"`
	RecentReports    []models.WasteReport `json:"recentReports"`
	MonthlyStats     []models.MonthlyStat `json:"monthlyStats"`
}

func (a *Analytics) Dashboard(ctx context.Context, actor Actor) (*DashboardStats, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}

	out := &DashboardStats{}
	var err error
	if out.TotalUsers, err = a.users.CountByRole(ctx, models.RoleUser); err != nil {
		return nil, fromStore(err, "User")
	}

	byStatus, err := a.reports.CountBy(ctx, "status", store.Scope{})
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	out.Reports = statusCounts(byStatus)

	if out.ReportsByType, err = a.reports.CountBy(ctx, "type", store.Scope{}); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.ReportsByUrgency, err = a.reports.CountBy(ctx, "urgency", store.Scope{}); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.RecentReports, err = a.reports.List(ctx, models.ReportFilter{Limit: recentReportsLimit}); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.MonthlyStats, err = a.reports.MonthlyCounts(ctx, a.now().UTC().Year()); err != nil {
		return nil, fromStore(err, "Report")
	}
	return out, nil
}

func statusCounts(rows []models.Bucket) StatusCounts {
	var c StatusCounts
	for _, row := range rows {
		switch models.ReportStatus(row.ID) {
		case models.StatusPending:
			c.Pending = row.Count
		case models.StatusAssigned:
			c.Assigned = row.Count
		case models.StatusInProgress:
			c.InProgress = row.Count
		case models.StatusCompleted:
			c.Completed = row.Count
		case models.StatusCancelled:
			c.Cancelled = row.Count
		}
		c.Total += row.Count
	}
	return c
}

type AnalyticsReport struct {
	Period            string          `json:"period"`
	ReportsCreated    int64           `json:"reportsCreated"`
	ReportsCompleted  int64           `json:"reportsCompleted"`
	CompletionRate    float64         `json:"completionRate"`
	AvgCompletionTime float64         `json:"avgCompletionTime"`
	UserRegistrations []models.Bucket `json:"userRegistrations"`
	ReportsByStatus   []models.Bucket `json:"reportsByStatus"`
	ReportsByType     []models.Bucket `json:"reportsByType"`
	ReportsByUrgency  []models.Bucket `json:"reportsByUrgency"`
}

// Analytics reports activity over the trailing period of days.
func (a *Analytics) Analytics(ctx context.Context, actor Actor, days int) (*AnalyticsReport, error) {
	if !actor.IsAdmin() {
		return nil, newError(ErrAuthorization, "Admin access required")
	}
	if days == 0 {
		days = DefaultAnalyticsPeriod
	}
	if days < 1 || days > maxAnalyticsPeriod {
		return nil, &Error{
			Kind:    ErrValidation,
			Message: fmt.Sprintf("Period must be between 1 and %d days", maxAnalyticsPeriod),
			Fields:  []FieldError{{Field: "period", Message: "Invalid period value"}},
		}
	}

	since := a.now().AddDate(0, 0, -days)
	scope := store.Scope{Since: &since}
	out := &AnalyticsReport{Period: fmt.Sprintf("%d days", days)}
	var err error

	if out.ReportsCreated, err = a.reports.Count(ctx, scope, ""); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.ReportsCompleted, err = a.reports.CountCompletedSince(ctx, since); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.ReportsCreated > 0 {
		out.CompletionRate = round2(float64(out.ReportsCompleted) / float64(out.ReportsCreated) * 100)
	}

	avg, ok, err := a.reports.AvgCompletionDays(ctx, since)
	if err != nil {
		return nil, fromStore(err, "Report")
	}
	if ok {
		out.AvgCompletionTime = round2(avg)
	}

	if out.UserRegistrations, err = a.users.RegistrationsPerDay(ctx, since); err != nil {
		return nil, fromStore(err, "User")
	}
	if out.ReportsByStatus, err = a.reports.CountBy(ctx, "status", scope); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.ReportsByType, err = a.reports.CountBy(ctx, "type", scope); err != nil {
		return nil, fromStore(err, "Report")
	}
	if out.ReportsByUrgency, err = a.reports.CountBy(ctx, "urgency", scope); err != nil {
		return nil, fromStore(err, "Report")
	}
	return out, nil
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
