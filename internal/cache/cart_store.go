package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"inventory-service/internal/models"
)

// CartStore persistencia de carritos abiertos, una línea por item
type CartStore interface {
	Load(ctx context.Context, cartID string) (map[int64]models.CartLine, error)
	SaveLine(ctx context.Context, cartID string, line models.CartLine) error
	RemoveLine(ctx context.Context, cartID string, itemID int64) error
	Clear(ctx context.Context, cartID string) error
}

// RedisCartStore guarda cada carrito como hash cart:<id> con TTL deslizante
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func (s *RedisCartStore) Load(ctx context.Context, cartID string) (map[int64]models.CartLine, error) {
	fields, err := s.client.HGetAll(ctx, cartKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	lines := make(map[int64]models.CartLine, len(fields))
	for field, raw := range fields {
		itemID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cart field %q: %w", field, err)
		}
		var line models.CartLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("failed to decode cart line %d: %w", itemID, err)
		}
		lines[itemID] = line
	}
	return lines, nil
}

func (s *RedisCartStore) SaveLine(ctx context.Context, cartID string, line models.CartLine) error {
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode cart line: %w", err)
	}

	key := cartKey(cartID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(line.ItemID, 10), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cart line: %w", err)
	}
	return nil
}

func (s *RedisCartStore) RemoveLine(ctx context.Context, cartID string, itemID int64) error {
	if err := s.client.HDel(ctx, cartKey(cartID), strconv.FormatInt(itemID, 10)).Err(); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Clear(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// MemoryCartStore carritos en memoria del proceso, sin expiración
type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string]map[int64]models.CartLine
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]map[int64]models.CartLine)}
}

func (s *MemoryCartStore) Load(_ context.Context, cartID string) (map[int64]models.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make(map[int64]models.CartLine, len(s.carts[cartID]))
	for id, l := range s.carts[cartID] {
		lines[id] = l
	}
	return lines, nil
}

func (s *MemoryCartStore) SaveLine(_ context.Context, cartID string, line models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.carts[cartID] == nil {
		s.carts[cartID] = make(map[int64]models.CartLine)
	}
	s.carts[cartID][line.ItemID] = line
	return nil
}

func (s *MemoryCartStore) RemoveLine(_ context.Context, cartID string, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[cartID], itemID)
	if len(s.carts[cartID]) == 0 {
		delete(s.carts, cartID)
	}
	return nil
}

func (s *MemoryCartStore) Clear(_ context.Context, cartID string) error {
	s.mu.Lock()
	delete(s.carts, cartID)
	s.mu.Unlock()
	return nil
}
