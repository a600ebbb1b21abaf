package insight

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryEntryStore keeps cache entries in process memory.
type MemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryEntryStore creates an empty in-memory entry store.
func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{entries: make(map[string]Entry)}
}

func (s *MemoryEntryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryEntryStore) Put(ctx context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryEntryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

const redisEntryPrefix = "insight:"

// RedisEntryStore persists cache entries as JSON in Redis so a warmed
// dashboard survives process restarts. Entries carry no TTL; staleness is
// handled by the data version, invalidation by force refresh.
type RedisEntryStore struct {
	client *redis.Client
}

// NewRedisEntryStore wraps an existing Redis client.
func NewRedisEntryStore(client *redis.Client) *RedisEntryStore {
	return &RedisEntryStore{client: client}
}

func (s *RedisEntryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	val, err := s.client.Get(ctx, redisEntryPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (s *RedisEntryStore) Put(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisEntryPrefix+key, data, time.Duration(0)).Err()
}

func (s *RedisEntryStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisEntryPrefix+key).Err()
}
