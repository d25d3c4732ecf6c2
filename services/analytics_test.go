package services

import (
	"context"
	"testing"
	"time"

	"safasajha-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalytics(reports *memReports, users *memUsers) *Analytics {
	a := NewAnalytics(reports, users)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestAnalytics_EmptyWindow(t *testing.T) {
	a := newTestAnalytics(newMemReports(), newMemUsers())
	admin := Actor{Role: models.RoleAdmin}

	got, err := a.Analytics(context.Background(), admin, 7)
	require.NoError(t, err)
	assert.Equal(t, "7 days", got.Period)
	assert.Zero(t, got.ReportsCreated)
	assert.Zero(t, got.ReportsCompleted)
	assert.Zero(t, got.CompletionRate)
	assert.Zero(t, got.AvgCompletionTime)
	assert.NotNil(t, got.UserRegistrations)
	assert.Empty(t, got.ReportsByStatus)
}

func TestAnalytics_Window(t *testing.T) {
	reports := newMemReports()
	users := newMemUsers()
	day := 24 * time.Hour

	completed := func(created, done time.Time) {
		reports.put(models.WasteReport{
			Type: models.WasteOrganic, Urgency: models.UrgencyHigh, Status: models.StatusCompleted,
			CreatedAt: created, UpdatedAt: done, CompletedDate: &done,
		})
	}
	completed(fixedNow.Add(-5*day), fixedNow.Add(-3*day))
	completed(fixedNow.Add(-6*day), fixedNow.Add(-1*day))
	reports.put(models.WasteReport{Type: models.WasteGeneral, Urgency: models.UrgencyLow, Status: models.StatusPending, CreatedAt: fixedNow.Add(-2 * day)})
	reports.put(models.WasteReport{Type: models.WasteGeneral, Urgency: models.UrgencyLow, Status: models.StatusPending, CreatedAt: fixedNow.Add(-40 * day)})

	users.add(models.User{Role: models.RoleUser, CreatedAt: fixedNow.Add(-1 * day)})
	users.add(models.User{Role: models.RoleUser, CreatedAt: fixedNow.Add(-1 * day)})
	users.add(models.User{Role: models.RoleAdmin, CreatedAt: fixedNow.Add(-1 * day)})

	a := newTestAnalytics(reports, users)
	got, err := a.Analytics(context.Background(), Actor{Role: models.RoleAdmin}, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.ReportsCreated)
	assert.Equal(t, int64(2), got.ReportsCompleted)
	assert.Equal(t, 66.67, got.CompletionRate)
	assert.Equal(t, 3.5, got.AvgCompletionTime)
	assert.Equal(t, []models.Bucket{{ID: fixedNow.Add(-day).Format("2006-01-02"), Count: 2}}, got.UserRegistrations)
	assert.Equal(t, []models.Bucket{{ID: "completed", Count: 2}, {ID: "pending", Count: 1}}, got.ReportsByStatus)
	assert.Equal(t, []models.Bucket{{ID: "general", Count: 1}, {ID: "organic", Count: 2}}, got.ReportsByType)
}

func TestAnalytics_Period(t *testing.T) {
	a := newTestAnalytics(newMemReports(), newMemUsers())
	admin := Actor{Role: models.RoleAdmin}

	got, err := a.Analytics(context.Background(), admin, 0)
	require.NoError(t, err)
	assert.Equal(t, "30 days", got.Period)

	for _, days := range []int{-1, 366} {
		_, err := a.Analytics(context.Background(), admin, days)
		assertKind(t, err, ErrValidation)
	}

	_, err = a.Analytics(context.Background(), Actor{Role: models.RoleUser}, 30)
	assertKind(t, err, ErrAuthorization)
}

func TestAnalytics_Dashboard(t *testing.T) {
	reports := newMemReports()
	for i, s := range []models.ReportStatus{
		models.StatusPending, models.StatusPending, models.StatusAssigned,
		models.StatusInProgress, models.StatusCompleted, models.StatusCancelled, models.StatusPending,
	} {
		reports.put(models.WasteReport{
			Type:      models.WasteRecyclable,
			Urgency:   models.UrgencyMedium,
			Status:    s,
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	users := newMemUsers()
	users.add(models.User{Role: models.RoleUser})
	users.add(models.User{Role: models.RoleAdmin})

	a := newTestAnalytics(reports, users)
	got, err := a.Dashboard(context.Background(), Actor{Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.TotalUsers)
	assert.Equal(t, StatusCounts{Pending: 3, Assigned: 1, InProgress: 1, Completed: 1, Cancelled: 1, Total: 7}, got.Reports)
	assert.Equal(t, []models.Bucket{{ID: "recyclable", Count: 7}}, got.ReportsByType)
	require.Len(t, got.RecentReports, 5)
	assert.True(t, got.RecentReports[0].CreatedAt.Equal(fixedNow))
	assert.Equal(t, []models.MonthlyStat{{Month: 1, Count: 7}}, got.MonthlyStats)

	_, err = a.Dashboard(context.Background(), Actor{Role: models.RoleUser})
	assertKind(t, err, ErrAuthorization)
}
