// Package concurrency provides keyed mutual exclusion.
package concurrency

import "sync"

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// MutexManager hands out one mutex per key. A key's entry lives only while
// some goroutine holds or waits for it, so the map stays as small as the set
// of keys in flight.
type MutexManager struct {
	mapMu   sync.Mutex
	mutexes map[string]*keyedMutex
}

func NewMutexManager() *MutexManager {
	return &MutexManager{
		mutexes: make(map[string]*keyedMutex),
	}
}

func (m *MutexManager) Lock(key string) {
	m.mapMu.Lock()
	km, exists := m.mutexes[key]
	if !exists {
		km = &keyedMutex{}
		m.mutexes[key] = km
	}
	km.refs++
	m.mapMu.Unlock()

	km.mu.Lock()
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (m *MutexManager) Unlock(key string) {
	m.mapMu.Lock()
	km, exists := m.mutexes[key]
	if !exists {
		m.mapMu.Unlock()
		return
	}
	km.refs--
	if km.refs == 0 {
		delete(m.mutexes, key)
	}
	m.mapMu.Unlock()

	km.mu.Unlock()
}

// Len returns the number of keys currently held or waited on
func (m *MutexManager) Len() int {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	return len(m.mutexes)
}
