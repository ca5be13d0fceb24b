package popup

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Session state keys. Values are strings so any key/value backend can hold them.
const (
	KeySessionDisplayCount = "sessionDisplayCount"
	KeyLastInputAt         = "lastInputAt" // epoch millis
	keyLastShownPrefix     = "lastShown:"  // + creative id, RFC 3339
)

func LastShownKey(creativeID int64) string {
	return keyLastShownPrefix + strconv.FormatInt(creativeID, 10)
}

// SessionStateStore is the tab-scoped key/value surface the scheduler persists to.
type SessionStateStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Toucher is implemented by stores that expire idle sessions; Touch
// pushes the expiry out without changing any value.
type Toucher interface {
	Touch(ctx context.Context) error
}

// MemoryStore is an in-process SessionStateStore.
type MemoryStore struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

// Read helpers treat missing, unreadable, or corrupt values as absent.

func readCount(ctx context.Context, s SessionStateStore, key string) int {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func readTimestamp(ctx context.Context, s SessionStateStore, key string) (time.Time, bool) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func readMillis(ctx context.Context, s SessionStateStore, key string) (time.Time, bool) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
