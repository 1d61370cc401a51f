package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

const (
	activityListKey = "scans:activity"

	// DefaultActivityLimit is how many entries the feed keeps
	DefaultActivityLimit = 100

	pushActivityScriptName = "push_activity"
)

// pushActivityScript prepends an entry and trims the list in one round trip.
// KEYS[1] = list key, ARGV[1] = entry JSON, ARGV[2] = capacity
const pushActivityScript = `
redis.call('LPUSH', KEYS[1], ARGV[1])
redis.call('LTRIM', KEYS[1], 0, tonumber(ARGV[2]) - 1)
return redis.call('LLEN', KEYS[1])
`

// ActivityClient is the subset of the Redis client the feed needs
type ActivityClient interface {
	EvalWithFallback(ctx context.Context, name, script string, keys []string, args ...interface{}) *redis.Cmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisActivityRepository implements ActivityRepository as a capped Redis list
type RedisActivityRepository struct {
	client   ActivityClient
	capacity int
}

// NewRedisActivityRepository creates a new RedisActivityRepository
func NewRedisActivityRepository(client ActivityClient, capacity int) *RedisActivityRepository {
	if capacity <= 0 {
		capacity = DefaultActivityLimit
	}
	return &RedisActivityRepository{client: client, capacity: capacity}
}

// Push records an entry at the head of the feed
func (r *RedisActivityRepository) Push(ctx context.Context, entry *domain.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal activity entry: %w", err)
	}

	err = r.client.EvalWithFallback(ctx, pushActivityScriptName, pushActivityScript,
		[]string{activityListKey}, string(data), r.capacity).Err()
	if err != nil {
		return fmt.Errorf("failed to push activity entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (r *RedisActivityRepository) Recent(ctx context.Context, limit int) ([]*domain.ActivityEntry, error) {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}

	raw, err := r.client.LRange(ctx, activityListKey, 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.ActivityEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read activity feed: %w", err)
	}

	entries := make([]*domain.ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.ActivityEntry
		// Skip entries written by an incompatible version
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// MemoryActivityRepository keeps the feed in process memory
type MemoryActivityRepository struct {
	entries  []*domain.ActivityEntry
	capacity int
	mu       sync.RWMutex
}

// NewMemoryActivityRepository creates a new MemoryActivityRepository
func NewMemoryActivityRepository(capacity int) *MemoryActivityRepository {
	if capacity <= 0 {
		capacity = DefaultActivityLimit
	}
	return &MemoryActivityRepository{capacity: capacity}
}

// Push records an entry at the head of the feed
func (r *MemoryActivityRepository) Push(ctx context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	r.entries = append([]*domain.ActivityEntry{&e}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (r *MemoryActivityRepository) Recent(ctx context.Context, limit int) ([]*domain.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]*domain.ActivityEntry, limit)
	for i := 0; i < limit; i++ {
		e := *r.entries[i]
		out[i] = &e
	}
	return out, nil
}
