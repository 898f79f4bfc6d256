// Package redisstore stores carts in Redis, so several server instances can share them.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/storage"
)

var _ storage.CartStore = (*CartStore)(nil)

// CartStore implements storage.CartStore with one string key per customer.
type CartStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection and key expiry.
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an untouched cart is kept. Zero keeps carts forever.
	TTL time.Duration
}

// New creates a store backed by Redis.
func New(opts Options) *CartStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(rdb, opts.TTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, prefix: "mealbox:cart:", ttl: ttl}
}

// Ping checks connectivity.
func (s *CartStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *CartStore) key(customer string) string {
	return s.prefix + customer
}

func (s *CartStore) LoadCart(ctx context.Context, key string) ([]models.LineItem, error) {
	blob, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.LineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var items []models.LineItem
	if err := json.Unmarshal(blob, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

func (s *CartStore) SaveCart(ctx context.Context, key string, items []models.LineItem) error {
	if len(items) == 0 {
		return s.DeleteCart(ctx, key)
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *CartStore) DeleteCart(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *CartStore) Close() error {
	return s.client.Close()
}
