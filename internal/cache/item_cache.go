package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"inventory-service/internal/models"
)

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	TotalRequests int64 `json:"total_requests"`
	TotalKeys     int   `json:"total_keys"`
}

func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}

type l1Entry struct {
	item      *models.Item
	expiresAt time.Time
}

// ItemCache caché multi-nivel de items por part number.
// L1 en memoria local, L2 en Redis cuando hay cliente configurado.
type ItemCache struct {
	l1Cache map[string]l1Entry
	l1Mutex sync.RWMutex

	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration
	now       func() time.Time

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64
}

// NewItemCache redisClient puede ser nil
func NewItemCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ItemCache {
	if maxL1Size <= 0 {
		maxL1Size = 1000
	}
	return &ItemCache{
		l1Cache:     make(map[string]l1Entry),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		now:         time.Now,
		logger:      logger,
	}
}

func cacheKey(partNumber string) string {
	return strings.ToLower(models.NormalizePartNumber(partNumber))
}

func redisItemKey(key string) string {
	return fmt.Sprintf("item:%s", key)
}

func (c *ItemCache) GetStats() CacheStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	c.l1Mutex.RLock()
	totalKeys := len(c.l1Cache)
	c.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: c.hits + c.misses,
		TotalKeys:     totalKeys,
	}
}

// Get busca el item en L1 y luego en L2; false si hay que ir a la base
func (c *ItemCache) Get(ctx context.Context, partNumber string) (*models.Item, bool) {
	start := time.Now()
	key := cacheKey(partNumber)

	if item := c.getFromL1(key); item != nil {
		c.recordHit()
		c.logger.Debug("L1 cache hit",
			zap.String("part_number", key),
			zap.Duration("latency", time.Since(start)))
		return item, true
	}

	if item, err := c.getFromL2(ctx, key); err == nil && item != nil {
		c.setToL1(key, item)
		c.recordHit()
		c.logger.Debug("L2 cache hit",
			zap.String("part_number", key),
			zap.Duration("latency", time.Since(start)))
		return item, true
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("⚠️ Error leyendo caché Redis", zap.String("part_number", key), zap.Error(err))
	}

	c.recordMiss()
	return nil, false
}

// Set almacena el item en ambos niveles
func (c *ItemCache) Set(ctx context.Context, item *models.Item) error {
	key := cacheKey(item.PartNumber)
	c.setToL1(key, item)
	return c.setToL2(ctx, key, item)
}

// Invalidate elimina el part number de ambos niveles
func (c *ItemCache) Invalidate(ctx context.Context, partNumbers ...string) error {
	keys := make([]string, 0, len(partNumbers))
	c.l1Mutex.Lock()
	for _, p := range partNumbers {
		key := cacheKey(p)
		delete(c.l1Cache, key)
		keys = append(keys, redisItemKey(key))
	}
	c.l1Mutex.Unlock()

	if c.redisClient == nil || len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

func (c *ItemCache) recordHit() {
	c.statsMutex.Lock()
	c.hits++
	c.statsMutex.Unlock()
}

func (c *ItemCache) recordMiss() {
	c.statsMutex.Lock()
	c.misses++
	c.statsMutex.Unlock()
}

func (c *ItemCache) getFromL1(key string) *models.Item {
	c.l1Mutex.RLock()
	defer c.l1Mutex.RUnlock()

	entry, ok := c.l1Cache[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	copied := *entry.item
	return &copied
}

func (c *ItemCache) setToL1(key string, item *models.Item) {
	c.l1Mutex.Lock()
	defer c.l1Mutex.Unlock()

	if _, exists := c.l1Cache[key]; !exists && len(c.l1Cache) >= c.maxL1Size {
		c.evictOldest()
	}

	copied := *item
	c.l1Cache[key] = l1Entry{item: &copied, expiresAt: c.now().Add(c.ttl)}
}

// evictOldest saca la entrada que vence primero; requiere l1Mutex tomado
func (c *ItemCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.l1Cache {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.l1Cache, oldestKey)
}

func (c *ItemCache) getFromL2(ctx context.Context, key string) (*models.Item, error) {
	if c.redisClient == nil {
		return nil, nil
	}

	data, err := c.redisClient.Get(ctx, redisItemKey(key)).Bytes()
	if err != nil {
		return nil, err
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *ItemCache) setToL2(ctx context.Context, key string, item *models.Item) error {
	if c.redisClient == nil {
		return nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, redisItemKey(key), data, c.ttl).Err()
}

// PurgeExpired elimina del L1 las entradas vencidas
func (c *ItemCache) PurgeExpired() int {
	c.l1Mutex.Lock()
	defer c.l1Mutex.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.l1Cache {
		if now.After(entry.expiresAt) {
			delete(c.l1Cache, key)
			removed++
		}
	}
	return removed
}

// Run limpia el L1 periódicamente hasta que ctx se cancele
func (c *ItemCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.PurgeExpired()
			c.logger.Debug("L1 cache cleanup", zap.Int("removed", removed), zap.Int("items", c.GetStats().TotalKeys))
		}
	}
}

// Stats estadísticas en formato mapa para el endpoint de métricas
func (c *ItemCache) Stats() map[string]interface{} {
	stats := c.GetStats()
	return map[string]interface{}{
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"total_requests": stats.TotalRequests,
		"total_keys":     stats.TotalKeys,
		"hit_rate":       stats.HitRate(),
	}
}
