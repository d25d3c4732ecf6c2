package services

import (
	"context"
	"sync"
	"time"

	"safasajha-be/models"

	"github.com/apex/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:generate mockgen -source=dispatcher.go -destination=../mocks/services/dispatcher_mock.go -package=mocks

// NotificationWriter persists notification batches.
type NotificationWriter interface {
	InsertMany(ctx context.Context, ns []models.Notification) error
}

// Pusher delivers an event to every live connection of one user. Pushing to a user
// with no open connection is not an error.
type Pusher interface {
	PushToUser(userID string, event string, payload interface{}) error
}

// Mailer sends a plain notification e-mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// Recipients resolves the addresses and preferences of notified users.
type Recipients interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

const NotificationEvent = "notification"

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher persists and pushes notifications on background workers. Delivery is
// attempted once; every failure is logged and dropped.
type Dispatcher struct {
	writer NotificationWriter
	pusher Pusher
	mailer Mailer
	users  Recipients

	cfg   DispatcherConfig
	queue chan []models.Notification
	now   func() time.Time

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(writer NotificationWriter, pusher Pusher, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		writer: writer,
		pusher: pusher,
		cfg:    cfg,
		queue:  make(chan []models.Notification, cfg.QueueSize),
		now:    time.Now,
	}
}

// WithMailer enables the e-mail channel for users that opted into it.
func (d *Dispatcher) WithMailer(m Mailer, users Recipients) *Dispatcher {
	d.mailer = m
	d.users = users
	return d
}

// Start launches the workers. They run until Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for batch := range d.queue {
				d.deliver(ctx, batch)
			}
			log.WithField("worker", worker).Debug("notification worker stopped")
		}(i)
	}
}

// Notify enqueues a batch and returns immediately. A full queue drops the batch.
func (d *Dispatcher) Notify(ns ...models.Notification) {
	if len(ns) == 0 {
		return
	}
	batch := make([]models.Notification, len(ns))
	copy(batch, ns)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.WithField("count", len(batch)).Warn("dispatcher stopped, dropping notifications")
		return
	}
	select {
	case d.queue <- batch:
	default:
		log.WithFields(log.Fields{
			"count": len(batch),
			"title": batch[0].Title,
		}).Warn("notification queue full, dropping notifications")
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// deliver persists, pushes and mails a batch synchronously. Scheduled notifications
// are only persisted; the delivery job sends them once they are due.
func (d *Dispatcher) deliver(parent context.Context, batch []models.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.cfg.Timeout)
	defer cancel()

	now := d.now()
	for i := range batch {
		n := &batch[i]
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
		if n.Type == "" {
			n.Type = models.NotifyInfo
		}
		if n.Category == "" {
			n.Category = models.CategoryGeneral
		}
		if n.Due(now) {
			n.IsSent = true
			n.SentAt = &now
		}
	}

	if err := d.writer.InsertMany(ctx, batch); err != nil {
		log.WithError(err).WithField("count", len(batch)).Error("failed to persist notifications")
		return
	}

	for _, n := range batch {
		if n.Due(now) {
			d.Send(ctx, n)
		}
	}
}

// Send pushes one persisted notification and mails it when the user opted in.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) {
	if d.pusher != nil {
		if err := d.pusher.PushToUser(n.User.Hex(), NotificationEvent, n.Payload()); err != nil {
			log.WithError(err).WithField("user", n.User.Hex()).Warn("failed to push notification")
		}
	}
	if d.mailer == nil || d.users == nil {
		return
	}

	u, err := d.users.FindByID(ctx, n.User)
	if err != nil {
		log.WithError(err).WithField("user", n.User.Hex()).Warn("failed to load notification recipient")
		return
	}
	if !u.Preferences.Notifications.Email || u.Email == "" {
		return
	}
	if err := d.mailer.Send(u.Email, n.Title, n.Message); err != nil {
		log.WithError(err).WithField("user", n.User.Hex()).Warn("failed to e-mail notification")
	}
}
