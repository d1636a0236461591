package cache

import (
	"sync"
	"time"
)

// entry элемент кэша
type entry[V any] struct {
	value      V
	expiration int64
}

func (e *entry[V]) expired(now int64) bool {
	return e.expiration != 0 && now > e.expiration
}

// Cache in-memory кэш с TTL
type Cache[V any] struct {
	items             map[string]*entry[V]
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
	maxItems          int
}

// Config конфигурация кэша
type Config struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
	MaxItems          int
}

// New создает новый кэш и запускает фоновую очистку
func New[V any](config Config) *Cache[V] {
	if config.DefaultExpiration == 0 {
		config.DefaultExpiration = 5 * time.Minute
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	if config.MaxItems == 0 {
		config.MaxItems = 10000
	}

	c := &Cache[V]{
		items:             make(map[string]*entry[V]),
		defaultExpiration: config.DefaultExpiration,
		cleanupInterval:   config.CleanupInterval,
		stopCleanup:       make(chan struct{}),
		maxItems:          config.MaxItems,
	}

	go c.cleanupLoop()

	return c
}

// Set добавляет элемент с TTL по умолчанию
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL добавляет элемент с указанным TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value, expirationFor(ttl))
}

// Get получает элемент из кэша
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, found := c.items[key]
	var value V
	var expired bool
	if found {
		// Копия под блокировкой: Update меняет значение на месте
		value = e.value
		expired = e.expired(time.Now().UnixNano())
	}
	c.mu.RUnlock()

	var zero V
	if !found {
		return zero, false
	}
	if expired {
		c.Delete(key)
		return zero, false
	}
	return value, true
}

// Update атомарно заменяет значение через fn. Срок жизни существующего
// элемента сохраняется, новый элемент получает ttl.
func (c *Cache[V]) Update(key string, ttl time.Duration, fn func(old V, found bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	if e, found := c.items[key]; found && !e.expired(now) {
		e.value = fn(e.value, true)
		return e.value
	}

	var zero V
	v := fn(zero, false)
	c.store(key, v, expirationFor(ttl))
	return v
}

// Delete удаляет элемент из кэша
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Count возвращает количество элементов в кэше
func (c *Cache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop останавливает фоновую очистку
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func expirationFor(ttl time.Duration) int64 {
	if ttl > 0 {
		return time.Now().Add(ttl).UnixNano()
	}
	return 0
}

// store требует удержания c.mu
func (c *Cache[V]) store(key string, value V, expiration int64) {
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictOldest()
	}
	c.items[key] = &entry[V]{value: value, expiration: expiration}
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCleanup:
			return
		case <-ticker.C:
			c.deleteExpired()
		}
	}
}

func (c *Cache[V]) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
		}
	}
}

func (c *Cache[V]) evictOldest() {
	// Простая стратегия: удаляем первый найденный просроченный
	// или любой элемент если просроченных нет
	var keyToDelete string
	now := time.Now().UnixNano()

	for key, e := range c.items {
		if e.expired(now) {
			keyToDelete = key
			break
		}
		if keyToDelete == "" {
			keyToDelete = key
		}
	}

	if keyToDelete != "" {
		delete(c.items, keyToDelete)
	}
}
