package prefs

import "sync"

// Memory is an in-process Source backed by a plain map. It is the default
// source for the demo binary and the workhorse of the test suite.
type Memory struct {
	mu        sync.Mutex
	values    map[string]bool
	observers []Observer
}

// NewMemory returns a Memory source seeded with the given values. A nil seed
// is fine.
func NewMemory(seed map[string]bool) *Memory {
	m := &Memory{values: make(map[string]bool, len(seed))}
	for k, v := range seed {
		m.values[k] = v
	}
	return m
}

// GetBool implements Source.
func (m *Memory) GetBool(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return false, ErrUnknownPref
	}
	return v, nil
}

// SetDefault records value for key only if the key is unset, without firing
// observers. Used to seed manifest defaults.
func (m *Memory) SetDefault(key string, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		m.values[key] = value
	}
}

// Set records value for key and notifies observers when the effective value
// changed. Observers are invoked on the calling goroutine, matching the
// serialized delivery a pref service provides.
func (m *Memory) Set(key string, value bool) {
	m.mu.Lock()
	prev, had := m.values[key]
	m.values[key] = value
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	if had && prev == value {
		return
	}
	for _, o := range observers {
		o.OnPrefChanged(key, value)
	}
}

// Observe implements Source.
func (m *Memory) Observe(o Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.observers {
		if cur == o {
			return nil
		}
	}
	m.observers = append(m.observers, o)
	return nil
}

// StopObserving implements Source.
func (m *Memory) StopObserving(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.observers {
		if cur == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}
