package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memReports is an in-memory report collection with the same compare-and-swap rules as the Mongo store.
type memReports struct {
	mu      sync.Mutex
	docs    map[primitive.ObjectID]models.WasteReport
	failAll error
}

func newMemReports() *memReports {
	return &memReports{docs: map[primitive.ObjectID]models.WasteReport{}}
}

func cloneReport(r models.WasteReport) models.WasteReport {
	r.Images = append([]string{}, r.Images...)
	if r.Feedback != nil {
		fb := *r.Feedback
		r.Feedback = &fb
	}
	return r
}

func (m *memReports) Insert(_ context.Context, r *models.WasteReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	r.ID = primitive.NewObjectID()
	m.docs[r.ID] = cloneReport(*r)
	return nil
}

func (m *memReports) FindByID(_ context.Context, id primitive.ObjectID) (*models.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	r, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneReport(r)
	return &c, nil
}

func (m *memReports) List(_ context.Context, f models.ReportFilter) ([]models.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WasteReport{}
	for _, r := range m.docs {
		if f.User != nil && r.User != *f.User {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Urgency != "" && r.Urgency != f.Urgency {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memReports) Replace(_ context.Context, r *models.WasteReport, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	cur, ok := m.docs[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != expected {
		return store.ErrVersionConflict
	}
	r.Version = expected + 1
	m.docs[r.ID] = cloneReport(*r)
	return nil
}

func (m *memReports) Delete(_ context.Context, id primitive.ObjectID, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != expected || cur.Status != models.StatusPending {
		return store.ErrVersionConflict
	}
	delete(m.docs, id)
	return nil
}

func (m *memReports) ListFeedback(_ context.Context, _ int64) ([]models.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WasteReport{}
	for _, r := range m.docs {
		if r.Feedback != nil {
			out = append(out, cloneReport(r))
		}
	}
	return out, nil
}

func (m *memReports) FindScheduledBetween(_ context.Context, from, to time.Time, statuses []models.ReportStatus) ([]models.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WasteReport{}
	for _, r := range m.docs {
		if r.ScheduledDate == nil || r.ScheduledDate.Before(from) || !r.ScheduledDate.Before(to) {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				out = append(out, cloneReport(r))
				break
			}
		}
	}
	return out, nil
}

func (m *memReports) inScope(r models.WasteReport, scope store.Scope) bool {
	if scope.User != nil && r.User != *scope.User {
		return false
	}
	if scope.Since != nil && r.CreatedAt.Before(*scope.Since) {
		return false
	}
	return true
}

func (m *memReports) Count(_ context.Context, scope store.Scope, status models.ReportStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	var n int64
	for _, r := range m.docs {
		if m.inScope(r, scope) && (status == "" || r.Status == status) {
			n++
		}
	}
	return n, nil
}

func (m *memReports) CountBy(_ context.Context, field string, scope store.Scope) ([]models.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, r := range m.docs {
		if !m.inScope(r, scope) {
			continue
		}
		switch field {
		case "status":
			counts[string(r.Status)]++
		case "type":
			counts[string(r.Type)]++
		case "urgency":
			counts[string(r.Urgency)]++
		}
	}
	out := []models.Bucket{}
	for k, v := range counts {
		out = append(out, models.Bucket{ID: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memReports) CountCompletedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.docs {
		if r.CompletedDate != nil && !r.CompletedDate.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memReports) AvgCompletionDays(_ context.Context, since time.Time) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	var n int
	for _, r := range m.docs {
		if r.Status != models.StatusCompleted {
			continue
		}
		end := r.UpdatedAt
		if r.CompletedDate != nil {
			end = *r.CompletedDate
		}
		if end.Before(since) {
			continue
		}
		sum += end.Sub(r.CreatedAt).Hours() / 24
		n++
	}
	if n == 0 {
		return 0, false, nil
	}
	return sum / float64(n), true, nil
}

func (m *memReports) AvgRating(_ context.Context, scope store.Scope) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum, n int
	for _, r := range m.docs {
		if r.Feedback != nil && m.inScope(r, scope) {
			sum += r.Feedback.Rating
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return float64(sum) / float64(n), true, nil
}

func (m *memReports) MonthlyCounts(_ context.Context, year int) ([]models.MonthlyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int]int64{}
	for _, r := range m.docs {
		if r.CreatedAt.Year() == year {
			counts[int(r.CreatedAt.Month())]++
		}
	}
	out := []models.MonthlyStat{}
	for month := 1; month <= 12; month++ {
		if c, ok := counts[month]; ok {
			out = append(out, models.MonthlyStat{Month: month, Count: c})
		}
	}
	return out, nil
}

func (m *memReports) put(r models.WasteReport) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	m.docs[r.ID] = cloneReport(r)
	return r.ID
}

func (m *memReports) get(id primitive.ObjectID) (models.WasteReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.docs[id]
	return r, ok
}

// memUsers is an in-memory user directory.
type memUsers struct {
	mu       sync.Mutex
	docs     map[primitive.ObjectID]models.User
	adminErr error
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{docs: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		m.docs[u.ID] = u
	}
	return m
}

func (m *memUsers) add(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.docs[u.ID] = u
	return u
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.docs {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	m.docs[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.docs {
		if u.Email == email {
			c := u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) ActiveIDsByRole(_ context.Context, role models.Role) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	ids := []primitive.ObjectID{}
	for _, u := range m.docs {
		if u.Role == role && u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

// recorder collects notifications handed to the dispatcher.
type recorder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recorder) Notify(ns ...models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ns...)
}

func (r *recorder) to(user primitive.ObjectID) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.sent {
		if n.User == user {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func (m *memUsers) CountByRole(_ context.Context, role models.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.docs {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) RegistrationsPerDay(_ context.Context, since time.Time) ([]models.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, u := range m.docs {
		if u.Role == models.RoleUser && !u.CreatedAt.Before(since) {
			counts[u.CreatedAt.UTC().Format("2006-01-02")]++
		}
	}
	out := []models.Bucket{}
	for day, n := range counts {
		out = append(out, models.Bucket{ID: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) List(_ context.Context, f models.UserFilter) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.User
	for _, u := range m.docs {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		u.Password = ""
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.Hex() < matched[j].ID.Hex() })
	total := int64(len(matched))
	page := []models.User{}
	for i := (f.Page - 1) * f.Limit; i < f.Page*f.Limit && i < total; i++ {
		page = append(page, matched[i])
	}
	return page, total, nil
}

func (m *memUsers) Update(_ context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Email != nil {
		for other, existing := range m.docs {
			if other != id && existing.Email == *upd.Email {
				return nil, store.ErrDuplicate
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.ProfileImage != nil {
		u.ProfileImage = *upd.ProfileImage
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.Preferences != nil {
		u.Preferences = *upd.Preferences
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	m.docs[id] = u
	u.Password = ""
	return &u, nil
}

func (m *memUsers) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = at
	m.docs[id] = u
	return nil
}
