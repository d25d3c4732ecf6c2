package services

import (
	"context"
	"fmt"
	"time"

	"safasajha-be/models"

	"github.com/apex/log"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type dueStore interface {
	FindDue(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error)
	MarkSent(ctx context.Context, ids []primitive.ObjectID, at time.Time) error
}

type scheduledReports interface {
	FindScheduledBetween(ctx context.Context, from, to time.Time, statuses []models.ReportStatus) ([]models.WasteReport, error)
}

type sender interface {
	Send(ctx context.Context, n models.Notification)
}

const dueBatchSize = 200

// openStatuses are the statuses that still expect a pickup.
var openStatuses = []models.ReportStatus{models.StatusPending, models.StatusAssigned, models.StatusInProgress}

// Scheduler runs the periodic delivery and reminder jobs.
type Scheduler struct {
	cron    *cron.Cron
	due     dueStore
	reports scheduledReports
	sender  sender
	notify  notifier
	timeout time.Duration
	now     func() time.Time
}

func NewScheduler(due dueStore, reports scheduledReports, sender sender, notify notifier, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		due:     due,
		reports: reports,
		sender:  sender,
		notify:  notify,
		timeout: timeout,
		now:     time.Now,
	}
}

// Start registers both jobs. An empty schedule disables its job.
func (s *Scheduler) Start(deliverySpec, reminderSpec string) error {
	if deliverySpec != "" {
		if _, err := s.cron.AddFunc(deliverySpec, s.job("delivery", s.RunDueDeliveries)); err != nil {
			return fmt.Errorf("delivery schedule %q: %w", deliverySpec, err)
		}
	}
	if reminderSpec != "" {
		if _, err := s.cron.AddFunc(reminderSpec, s.job("pickup reminders", s.RunPickupReminders)); err != nil {
			return fmt.Errorf("reminder schedule %q: %w", reminderSpec, err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		n, err := run(ctx)
		if err != nil {
			log.WithError(err).WithField("job", name).Error("scheduled job failed")
			return
		}
		if n > 0 {
			log.WithFields(log.Fields{"job": name, "count": n}).Info("scheduled job done")
		}
	}
}

// RunDueDeliveries sends scheduled notifications whose time has come.
func (s *Scheduler) RunDueDeliveries(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.due.FindDue(ctx, now, dueBatchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(due))
	for _, n := range due {
		s.sender.Send(ctx, n)
		ids = append(ids, n.ID)
	}
	if err := s.due.MarkSent(ctx, ids, now); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// RunPickupReminders reminds owners of open reports scheduled for tomorrow (UTC).
func (s *Scheduler) RunPickupReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	reports, err := s.reports.FindScheduledBetween(ctx, from, to, openStatuses)
	if err != nil {
		return 0, err
	}
	if len(reports) == 0 {
		return 0, nil
	}

	batch := make([]models.Notification, 0, len(reports))
	for _, r := range reports {
		id := r.ID
		batch = append(batch, models.Notification{
			User:     r.User,
			Title:    "Pickup Reminder",
			Message:  fmt.Sprintf("Your %s waste pickup is scheduled for tomorrow, %s", r.Type, from.Format("Jan 2")),
			Type:     models.NotifyReminder,
			Category: models.CategorySchedule,
			Metadata: models.NotificationMetadata{WasteReportID: &id, Priority: models.PriorityHigh},
		})
	}
	s.notify.Notify(batch...)
	return len(batch), nil
}
