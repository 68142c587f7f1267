package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Expired entries are invisible to
// Load and are dropped by PurgeExpired.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), now: time.Now}
}

func (ms *MemoryStore) Load(ctx context.Context, id string) (map[string]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, ok := ms.sessions[id]
	if !ok || !ms.now().Before(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}

	return copyValues(entry.values), nil
}

func (ms *MemoryStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.sessions[id] = memoryEntry{values: copyValues(values), expiresAt: ms.now().Add(ttl)}
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.sessions, id)
	return nil
}

func (ms *MemoryStore) PurgeExpired(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	purged := 0
	now := ms.now()
	for id, entry := range ms.sessions {
		if !now.Before(entry.expiresAt) {
			delete(ms.sessions, id)
			purged++
		}
	}

	return purged, nil
}

func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

func copyValues(values map[string]string) map[string]string {
	copied := make(map[string]string, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return copied
}
