package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memInbox struct {
	mu   sync.Mutex
	docs []models.Notification
}

func (m *memInbox) InsertMany(_ context.Context, ns []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range ns {
		if ns[i].ID.IsZero() {
			ns[i].ID = primitive.NewObjectID()
		}
	}
	m.docs = append(m.docs, ns...)
	return nil
}

func (m *memInbox) List(_ context.Context, f models.NotificationFilter) ([]models.Notification, int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Notification
	var unread int64
	for _, n := range m.docs {
		if n.User != f.User {
			continue
		}
		if !n.IsRead {
			unread++
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.Category != "" && n.Category != f.Category {
			continue
		}
		matched = append(matched, n)
	}
	total := int64(len(matched))
	page := []models.Notification{}
	if f.Limit == 0 {
		page = append(page, matched...)
	} else {
		start := (f.Page - 1) * f.Limit
		for i := start; i < start+f.Limit && i < total; i++ {
			page = append(page, matched[i])
		}
	}
	return page, total, unread, nil
}

func (m *memInbox) MarkRead(_ context.Context, id, user primitive.ObjectID, at time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		n := &m.docs[i]
		if n.ID == id && n.User == user {
			n.IsRead = true
			if n.ReadAt == nil {
				n.ReadAt = &at
			}
			c := *n
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memInbox) MarkAllRead(_ context.Context, user primitive.ObjectID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.docs {
		if m.docs[i].User == user && !m.docs[i].IsRead {
			m.docs[i].IsRead = true
			m.docs[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memInbox) Delete(_ context.Context, id, user primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.docs {
		if n.ID == id && n.User == user {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memInbox) FindDue(_ context.Context, now time.Time, _ int64) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []models.Notification{}
	for _, n := range m.docs {
		if !n.IsSent && n.ScheduledFor != nil && !n.ScheduledFor.After(now) {
			due = append(due, n)
		}
	}
	return due, nil
}

func (m *memInbox) MarkSent(_ context.Context, ids []primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		for i := range m.docs {
			if m.docs[i].ID == id {
				m.docs[i].IsSent = true
				m.docs[i].SentAt = &at
			}
		}
	}
	return nil
}

func TestInbox_OwnNotificationsOnly(t *testing.T) {
	ctx := context.Background()
	box := &memInbox{}
	me, them := Actor{ID: primitive.NewObjectID()}, Actor{ID: primitive.NewObjectID()}
	mine := models.Notification{User: me.ID, Title: "mine", Category: models.CategoryReport}
	theirs := models.Notification{User: them.ID, Title: "theirs"}
	batch := []models.Notification{mine, theirs, {User: me.ID, Title: "second", Category: models.CategorySystem}}
	require.NoError(t, box.InsertMany(ctx, batch))

	inbox := NewInbox(box, newMemUsers(), &recorder{})
	inbox.now = func() time.Time { return fixedNow }

	page, err := inbox.List(ctx, me, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(2), page.UnreadCount)
	assert.Equal(t, int64(1), page.TotalPages)

	_, err = inbox.MarkRead(ctx, me, batch[1].ID)
	assertKind(t, err, ErrNotFound)
	assertKind(t, inbox.Delete(ctx, me, batch[1].ID), ErrNotFound)

	n, err := inbox.MarkRead(ctx, me, batch[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	first := *n.ReadAt

	inbox.now = func() time.Time { return fixedNow.Add(time.Hour) }
	n, err = inbox.MarkRead(ctx, me, batch[0].ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(*n.ReadAt))

	count, err := inbox.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	page, err = inbox.List(ctx, them, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.UnreadCount)

	require.NoError(t, inbox.Delete(ctx, me, batch[0].ID))
	page, err = inbox.List(ctx, me, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 1)
}

func TestInbox_Paging(t *testing.T) {
	ctx := context.Background()
	box := &memInbox{}
	me := Actor{ID: primitive.NewObjectID()}
	var batch []models.Notification
	for i := 0; i < 5; i++ {
		batch = append(batch, models.Notification{User: me.ID})
	}
	require.NoError(t, box.InsertMany(ctx, batch))

	inbox := NewInbox(box, newMemUsers(), &recorder{})
	page, err := inbox.List(ctx, me, models.NotificationFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 1)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, int64(3), page.CurrentPage)
	assert.Equal(t, int64(5), page.Total)

	_, err = inbox.List(ctx, me, models.NotificationFilter{Category: "billing"})
	assertKind(t, err, ErrValidation)
}

func TestInbox_Broadcast(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	citizen := users.add(models.User{Role: models.RoleUser, IsActive: true})
	users.add(models.User{Role: models.RoleUser, IsActive: false})
	users.add(models.User{Role: models.RoleAdmin, IsActive: true})
	sent := &recorder{}
	inbox := NewInbox(&memInbox{}, users, sent)

	n, err := inbox.Broadcast(ctx, Actor{Role: models.RoleAdmin}, BroadcastInput{
		Title:        "Holiday schedule",
		Message:      "No pickups on Friday",
		ScheduledFor: "2025-01-09T08:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sent.sent, 1)
	got := sent.sent[0]
	assert.Equal(t, citizen.ID, got.User)
	assert.Equal(t, models.NotifyInfo, got.Type)
	assert.Equal(t, models.CategoryGeneral, got.Category)
	require.NotNil(t, got.ScheduledFor)

	_, err = inbox.Broadcast(ctx, Actor{Role: models.RoleUser}, BroadcastInput{Title: "x", Message: "y"})
	assertKind(t, err, ErrAuthorization)

	_, err = inbox.Broadcast(ctx, Actor{Role: models.RoleAdmin}, BroadcastInput{Message: "y"})
	assertKind(t, err, ErrValidation)

	_, err = inbox.Broadcast(ctx, Actor{Role: models.RoleAdmin}, BroadcastInput{Title: "x", Message: "y", Type: "urgent"})
	assertKind(t, err, ErrValidation)
}
