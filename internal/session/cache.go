package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Profile is the last-known identity of an actor. It is only ever a hint
// for restoring a session quickly; the actor store stays authoritative.
type Profile struct {
	ActorID     uuid.UUID `json:"actor_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CachedAt    time.Time `json:"cached_at"`
}

// ProfileCache stores one Profile per actor. Get returns nil, nil on a miss.
type ProfileCache interface {
	Get(ctx context.Context, actorID uuid.UUID) (*Profile, error)
	Put(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, actorID uuid.UUID) error
}

// ProfileKey is the storage key for an actor's cached profile.
func ProfileKey(actorID uuid.UUID) string {
	return "sitetrack:profile:" + actorID.String()
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// redisKV narrows a go-redis client to plain error returns.
type redisKV struct {
	client redis.Cmdable
}

func (r redisKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// RedisCache keeps profiles as JSON strings with a TTL.
type RedisCache struct {
	kv  kvStore
	ttl time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{kv: redisKV{client: client}, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, actorID uuid.UUID) (*Profile, error) {
	raw, err := c.kv.Get(ctx, ProfileKey(actorID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// A corrupt entry is treated as a miss.
		return nil, nil
	}
	return &p, nil
}

func (c *RedisCache) Put(ctx context.Context, p *Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.kv.Set(ctx, ProfileKey(p.ActorID), string(raw), c.ttl); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, actorID uuid.UUID) error {
	if err := c.kv.Del(ctx, ProfileKey(actorID)); err != nil {
		return fmt.Errorf("delete cached profile: %w", err)
	}
	return nil
}

// MemoryCache is a process-local ProfileCache.
type MemoryCache struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]Profile
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{profiles: make(map[uuid.UUID]Profile)}
}

func (c *MemoryCache) Get(_ context.Context, actorID uuid.UUID) (*Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[actorID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *MemoryCache) Put(_ context.Context, p *Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.ActorID] = *p
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, actorID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, actorID)
	return nil
}
