// Package dedupe remembers which feedback events were already applied so
// that redelivered events do not move an interest vector twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records event ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord forgets id so a later delivery is processed again.
	Unrecord(ctx context.Context, id string)
	// Size is the number of ids currently tracked by this instance.
	Size() int64
}

// Memory is a bounded in-process Deduper. When full it forgets the oldest id.
type Memory struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

var _ Deduper = (*Memory)(nil)

// NewMemory creates an in-memory deduper.
func NewMemory(opts ...Option) *Memory {
	c := newConfig(opts)
	return &Memory{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: c.maxSize,
	}
}

func (m *Memory) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; ok {
		return true
	}
	if m.maxSize > 0 && m.order.Len() >= m.maxSize {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.index, oldest.Value.(string))
		m.size.Add(-1)
	}
	m.index[id] = m.order.PushBack(id)
	m.size.Add(1)
	return false
}

func (m *Memory) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.index[id]
	if !ok {
		return
	}
	m.order.Remove(el)
	delete(m.index, id)
	m.size.Add(-1)
}

func (m *Memory) Size() int64 {
	return m.size.Load()
}
