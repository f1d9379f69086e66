package settings

import "sync"

// Memory is a process-local store. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	values map[string]bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{values: map[string]bool{}}
}

// GetBool returns the value for key. ok is false when key was never set.
func (m *Memory) GetBool(key string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// SetBool stores value under key.
func (m *Memory) SetBool(key string, value bool) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Exists reports whether key holds a value.
func (m *Memory) Exists(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
