package notification

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

type memoryRepo struct {
	mu      sync.Mutex
	items   map[string]Notification
	nextID  int
	failAll error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]Notification{}, nextID: 1}
}

func (r *memoryRepo) Create(_ context.Context, n *Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return false, r.failAll
	}
	for _, existing := range r.items {
		if existing.RecipientUserID == n.RecipientUserID && existing.Type == n.Type &&
			existing.RelatedCommentID != nil && n.RelatedCommentID != nil &&
			*existing.RelatedCommentID == *n.RelatedCommentID {
			return false, nil
		}
	}
	n.ID = strconv.Itoa(r.nextID)
	r.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.items[n.ID] = *n
	return true, nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	n, ok := r.items[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return &n, nil
}

func (r *memoryRepo) ListByRecipient(_ context.Context, recipientID string, page pagination.Params) ([]Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.forRecipient(recipientID)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			a, _ := strconv.Atoi(all[i].ID)
			b, _ := strconv.Atoi(all[j].ID)
			return a > b
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memoryRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.forRecipient(recipientID) {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	n.IsRead = true
	r.items[id] = n
	return nil
}

func (r *memoryRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for id, n := range r.items {
		if n.RecipientUserID == recipientID && !n.IsRead {
			n.IsRead = true
			r.items[id] = n
			updated++
		}
	}
	return updated, nil
}

func (r *memoryRepo) forRecipient(recipientID string) []Notification {
	var out []Notification
	for _, n := range r.items {
		if n.RecipientUserID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func (r *memoryRepo) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n)
	}
	return out
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.to)
	}
	return out
}

var errDatabaseDown = errors.New("database down")
