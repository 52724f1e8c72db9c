package post

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"forumpipe/internal/cache"
	"forumpipe/internal/events"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

type memoryRepo struct {
	mu      sync.Mutex
	posts   map[int64]Post
	nextID  int64
	gets    int
	failAll error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: map[int64]Post{}, nextID: 1}
}

func (r *memoryRepo) Create(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.posts[p.ID] = *p
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.failAll != nil {
		return nil, r.failAll
	}
	p, ok := r.posts[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return &p, nil
}

func (r *memoryRepo) List(ctx context.Context, page pagination.Params) ([]Post, int64, error) {
	return r.ListByAuthor(ctx, "", page)
}

func (r *memoryRepo) ListByAuthor(_ context.Context, authorID string, page pagination.Params) ([]Post, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []Post
	for _, p := range r.posts {
		if authorID == "" || p.AuthorID == authorID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
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

func (r *memoryRepo) UpdateContent(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	stored, ok := r.posts[p.ID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	stored.Title = p.Title
	stored.Content = p.Content
	stored.ImageURLs = p.ImageURLs
	stored.UpdatedAt = time.Now().UTC()
	r.posts[p.ID] = stored
	*p = stored
	return nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	stored, ok := r.posts[p.ID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	stored.Status = p.Status
	stored.UpdatedAt = time.Now().UTC()
	r.posts[p.ID] = stored
	*p = stored
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	if _, ok := r.posts[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
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
