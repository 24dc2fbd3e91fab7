package collection

import "sync"

// SyncMap is a map guarded by a RWMutex. Each method holds the lock only for
// the duration of the map operation itself.
type SyncMap[K comparable, V any] struct {
	m   map[K]V
	mux sync.RWMutex
}

func (m *SyncMap[K, V]) Get(k K) (V, bool) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	v, ok := m.m[k]
	return v, ok
}

// PutIfAbsent stores v under k unless k is already present; it reports whether v was stored.
func (m *SyncMap[K, V]) PutIfAbsent(k K, v V) bool {
	m.mux.Lock()
	defer m.mux.Unlock()
	if _, ok := m.m[k]; ok {
		return false
	}
	m.m[k] = v
	return true
}

// DeleteIf removes k only while it still maps to a value accepted by match.
func (m *SyncMap[K, V]) DeleteIf(k K, match func(V) bool) bool {
	m.mux.Lock()
	defer m.mux.Unlock()
	v, ok := m.m[k]
	if !ok || !match(v) {
		return false
	}
	delete(m.m, k)
	return true
}

func (m *SyncMap[K, V]) Len() int {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return len(m.m)
}

func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{m: make(map[K]V)}
}
