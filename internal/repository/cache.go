package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"svstudio/internal/models"

	"github.com/redis/go-redis/v9"
)

// BookingStore is an append-only list of bookings.
type BookingStore interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Append(ctx context.Context, b *models.Booking) error
}

// RedisCache keeps every booking as a JSON element of one Redis list.
type RedisCache struct {
	client *redis.Client
	key    string
}

func NewRedisCache(client *redis.Client, key string) *RedisCache {
	return &RedisCache{client: client, key: key}
}

func (c *RedisCache) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	raw, err := c.client.LRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", c.key, err)
	}

	all := make([]models.Booking, 0, len(raw))
	for _, item := range raw {
		var b models.Booking
		if err := json.Unmarshal([]byte(item), &b); err != nil {
			continue
		}
		all = append(all, b)
	}
	return models.FilterBookings(all, filter), nil
}

func (c *RedisCache) Append(ctx context.Context, b *models.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := c.client.RPush(ctx, c.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", c.key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryCache is a process-local booking list, lost on restart.
type MemoryCache struct {
	mu       sync.RWMutex
	bookings []models.Booking
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.FilterBookings(c.bookings, filter), nil
}

func (c *MemoryCache) Append(_ context.Context, b *models.Booking) error {
	c.mu.Lock()
	c.bookings = append(c.bookings, *b)
	c.mu.Unlock()
	return nil
}
