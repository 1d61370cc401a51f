package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
)

const (
	eventDetailKeyPrefix = "event:detail:"

	// DefaultEventCacheTTL applies when no TTL is configured
	DefaultEventCacheTTL = 5 * time.Minute
)

// CacheClient is the subset of the Redis client the cache needs
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedEventRepository wraps EventRepository with a Redis detail cache.
// Cache failures never fail a call; the wrapped repository stays authoritative.
type CachedEventRepository struct {
	repo  EventRepository
	cache CacheClient
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache CacheClient, ttl time.Duration) *CachedEventRepository {
	if ttl <= 0 {
		ttl = DefaultEventCacheTTL
	}
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Create creates a new event
func (r *CachedEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.repo.Create(ctx, event)
}

// GetByID retrieves an event by ID with caching
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	cacheKey := eventDetailKeyPrefix + id
	cached, err := r.cache.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		var event domain.Event
		if err := json.Unmarshal([]byte(cached), &event); err == nil {
			return &event, nil
		}
	}

	// Concurrent misses for one event share a single store read
	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		event, err := r.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.cacheEvent(ctx, cacheKey, event)
		return event, nil
	})
	if err != nil {
		return nil, err
	}

	c := *v.(*domain.Event)
	return &c, nil
}

// List is served from the store; ticket counts change too often to cache
func (r *CachedEventRepository) List(ctx context.Context, limit, offset int) ([]*domain.EventWithCount, int, error) {
	return r.repo.List(ctx, limit, offset)
}

// Update updates an event and invalidates its cache entry
func (r *CachedEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := r.repo.Update(ctx, event); err != nil {
		return err
	}
	r.invalidate(ctx, event.ID)
	return nil
}

// Delete deletes an event and invalidates its cache entry
func (r *CachedEventRepository) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedEventRepository) cacheEvent(ctx context.Context, key string, event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, string(data), r.ttl).Err(); err != nil {
		logger.Get().Warn("failed to cache event: " + err.Error())
	}
}

func (r *CachedEventRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Del(ctx, eventDetailKeyPrefix+id).Err(); err != nil {
		logger.Get().Warn("failed to invalidate event cache: " + err.Error())
	}
}
