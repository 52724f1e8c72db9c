package cdc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/cache"
	"forumpipe/internal/logger"
)

type memoryStore struct {
	data    map[string][]byte
	deleted []string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		op     string
		id     int64
		hasID  bool
		tomb   bool
		hasErr bool
	}{
		{name: "update", raw: `{"op":"u","before":{"id":7},"after":{"id":7,"title":"x"},"ts_ms":1}`, op: "u", id: 7, hasID: true},
		{name: "delete uses before", raw: `{"op":"d","before":{"id":9},"after":null}`, op: "d", id: 9, hasID: true},
		{name: "string id", raw: `{"op":"u","after":{"id":"12"}}`, op: "u", id: 12, hasID: true},
		{name: "wrapped", raw: `{"schema":{"type":"struct"},"payload":{"op":"d","before":{"id":3}}}`, op: "d", id: 3, hasID: true},
		{name: "no id", raw: `{"op":"u","after":{"title":"x"}}`, op: "u"},
		{name: "tombstone", raw: ``, tomb: true},
		{name: "malformed id", raw: `{"op":"u","after":{"id":"seven"}}`, hasErr: true},
		{name: "not json", raw: `op=u`, hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode([]byte(tt.raw))
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, rec.Op)
			assert.Equal(t, tt.tomb, rec.Tombstone)
			id, ok := rec.ID()
			assert.Equal(t, tt.hasID, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestInvalidator_UpdateDeletesKey(t *testing.T) {
	store := newMemoryStore()
	store.data["post:7"] = []byte(`{"id":7,"title":"old"}`)
	inv := NewInvalidator(store, logger.NopLogger())

	rec, err := Decode([]byte(`{"op":"u","before":{"id":7},"after":{"id":7}}`))
	require.NoError(t, err)
	require.NoError(t, inv.Handle(context.Background(), rec))

	_, err = store.Get(context.Background(), "post:7")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestInvalidator_DeleteFallsBackToBefore(t *testing.T) {
	store := newMemoryStore()
	store.data["post:9"] = []byte(`{}`)
	inv := NewInvalidator(store, logger.NopLogger())

	rec, err := Decode([]byte(`{"op":"d","before":{"id":9},"after":null}`))
	require.NoError(t, err)
	require.NoError(t, inv.Handle(context.Background(), rec))

	assert.Equal(t, []string{"post:9"}, store.deleted)
}

func TestInvalidator_IgnoredRecords(t *testing.T) {
	tests := []struct {
		name string
		rec  ChangeRecord
	}{
		{"create", ChangeRecord{Op: OpCreate, After: &RowImage{ID: 1}}},
		{"snapshot read", ChangeRecord{Op: OpRead, After: &RowImage{ID: 1}}},
		{"missing op", ChangeRecord{After: &RowImage{ID: 1}}},
		{"missing id", ChangeRecord{Op: OpUpdate}},
		{"truncate", ChangeRecord{Op: OpTruncate}},
		{"tombstone", ChangeRecord{Tombstone: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			inv := NewInvalidator(store, logger.NopLogger())
			assert.NoError(t, inv.Handle(context.Background(), tt.rec))
			assert.Empty(t, store.deleted)
		})
	}
}

func TestInvalidator_CacheErrorIsReported(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	inv := NewInvalidator(store, logger.NopLogger())

	err := inv.Handle(context.Background(), ChangeRecord{Op: OpUpdate, After: &RowImage{ID: 4}})
	assert.Error(t, err)
}
