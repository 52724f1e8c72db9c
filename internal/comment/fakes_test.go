package comment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"forumpipe/internal/events"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

type memoryRepo struct {
	mu       sync.Mutex
	comments map[int64]Comment
	nextID   int64
	failAll  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{comments: map[int64]Comment{}, nextID: 1}
}

func (r *memoryRepo) Create(_ context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.comments[c.ID] = *c
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	c, ok := r.comments[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return &c, nil
}

func (r *memoryRepo) ListByPost(_ context.Context, postID int64, page pagination.Params) ([]Comment, int64, error) {
	return r.filter(page, func(c Comment) bool { return c.PostID == postID })
}

func (r *memoryRepo) ListByAuthor(_ context.Context, authorID string, page pagination.Params) ([]Comment, int64, error) {
	return r.filter(page, func(c Comment) bool { return c.AuthorID == authorID })
}

func (r *memoryRepo) filter(page pagination.Params, keep func(Comment) bool) ([]Comment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []Comment
	for _, c := range r.comments {
		if keep(c) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
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

func (r *memoryRepo) Update(_ context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[c.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	r.comments[c.ID] = *c
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

type stubResolver struct {
	authors map[int64]string
	calls   int
}

func (s *stubResolver) AuthorID(_ context.Context, postID int64) string {
	s.calls++
	return s.authors[postID]
}

type recordingEmitter struct {
	mu       sync.Mutex
	payloads []events.Payload
}

func (e *recordingEmitter) Emit(_ context.Context, payload events.Payload, _ time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, payload)
}

func (e *recordingEmitter) emitted() []events.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.Payload(nil), e.payloads...)
}

var errDatabaseDown = errors.New("database down")
