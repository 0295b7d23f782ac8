package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kitbuilder587/leadscout/internal/cache"
)

type entry struct {
	value        interface{}
	createdAt    time.Time
	ttl          time.Duration
	accessCount  int
	lastAccessed time.Time
}

// Cache - in-memory LRU+TTL кеш с фиксированной емкостью.
// При вставке нового ключа сверх емкости вылетает запись с самым старым
// lastAccessed (настоящий LRU, не порядок вставки). Перезапись
// существующего ключа емкость не трогает.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*entry
	capacity   int
	defaultTTL time.Duration

	hits      uint64
	misses    uint64
	evictions uint64

	onEviction func()

	stopChan chan struct{}
	stopped  bool

	now func() time.Time // подменяется в тестах
}

type Config struct {
	Capacity   int
	DefaultTTL time.Duration
	OnEviction func() // хук для метрик
}

func New(cfg Config) *Cache {
	return NewWithContext(context.Background(), cfg)
}

func NewWithContext(ctx context.Context, cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	c := &Cache{
		items:      make(map[string]*entry),
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		onEviction: cfg.OnEviction,
		stopChan:   make(chan struct{}),
		now:        time.Now,
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	// просроченная запись логически отсутствует
	if c.now().Sub(e.createdAt) > e.ttl {
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.hits++
	e.accessCount++
	e.lastAccessed = c.now()
	return e.value, true
}

func (c *Cache) Set(key string, value interface{}) {
	c.SetTTL(key, value, c.defaultTTL)
}

func (c *Cache) SetTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.capacity {
		c.evictOldest()
	}

	now := c.now()
	c.items[key] = &entry{
		value:        value,
		createdAt:    now,
		ttl:          ttl,
		lastAccessed: now,
	}
}

// evictOldest убирает запись с самым старым lastAccessed. Линейный скан -
// емкость маленькая, отдельная структура под LRU не окупается.
// Вызывать под мьютексом.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for k, e := range c.items {
		if oldestKey == "" || e.lastAccessed.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.evictions++
		if c.onEviction != nil {
			c.onEviction()
		}
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := "n/a"
	if total := c.hits + c.misses; total > 0 {
		hitRate = fmt.Sprintf("%.2f%%", float64(c.hits)/float64(total)*100)
	}

	return cache.Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Size:      len(c.items),
		Evictions: c.evictions,
		HitRate:   hitRate,
	}
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

// cleanup чистит просроченные записи раз в 5 минут, чтобы память не росла
// даже при низком трафике
// XXX: интервал захардкожен, может стоит вынести в конфиг
func (c *Cache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.items {
		if now.Sub(e.createdAt) > e.ttl {
			delete(c.items, k)
		}
	}
}

var _ cache.Cache = (*Cache)(nil)
