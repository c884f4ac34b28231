package session

import (
	"sync"
	"time"
)

// Clock abstracts time so session expiry can be tested without
// sleeping.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// mockClock is a manually advanced Clock for tests.
type mockClock struct {
	mu      sync.Mutex
	current time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{current: start}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the mock clock forward by d.
func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
