package document

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/firerest/internal/db"
)

// memStore is an in-memory implementation of the consumer interface.
type memStore struct {
	data    map[string][]byte
	scanned []string
	getErr  error
	setErr  error
	scanFn  func(pattern string) ([]string, error)
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.scanned = append(m.scanned, pattern)
	if m.scanFn != nil {
		return m.scanFn(pattern)
	}
	prefix := strings.NewReplacer(`\\`, `\`, `\*`, `*`, `\?`, `?`, `\[`, `[`, `\]`, `]`).
		Replace(strings.TrimSuffix(pattern, "*"))
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	// reverse order so the repo has to sort
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	r := New(ms)
	r.now = func() time.Time { return fixedNow }
	return r, ms
}
