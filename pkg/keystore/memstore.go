package keystore

import (
	"sync"

	"go.uber.org/zap"
)

var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe in-memory Store. With a Persistence attached, every write
// is flushed to disk before the call returns.
type MemStore struct {
	mu        sync.RWMutex
	data      map[string]string
	persister *Persistence
	log       *zap.Logger
}

// NewMemStore initializes a store.
// It accepts existing data (from Persistence.Load) and an optional persister.
func NewMemStore(initialData map[string]string, p *Persistence, log *zap.Logger) *MemStore {
	if initialData == nil {
		initialData = make(map[string]string)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MemStore{
		data:      initialData,
		persister: p,
		log:       log,
	}
}

func (m *MemStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	return val, ok
}

func (m *MemStore) Save(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	m.data[key] = value
	m.flush("save", key)
}

func (m *MemStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		return
	}
	delete(m.data, key)
	m.flush("delete", key)
}

func (m *MemStore) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]string)
	m.flush("clear", "")
}

// Len reports how many keys are held.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// flush writes a copy of the current state. It MUST be called while holding m.mu.Lock
// so that disk order matches memory order.
func (m *MemStore) flush(op, key string) {
	if m.persister == nil {
		return
	}
	snapshot := make(map[string]string, len(m.data))
	for k, v := range m.data {
		snapshot[k] = v
	}
	if err := m.persister.Save(snapshot); err != nil {
		m.log.Warn("keystore: persist failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
	}
}
