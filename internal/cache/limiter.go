package cache

import "time"

// Limiter ограничивает количество запросов на ключ (обычно IP клиента)
// в фиксированном окне времени.
type Limiter struct {
	counts *Cache[int]
	limit  int
	window time.Duration
}

// NewLimiter создает лимитер. limit <= 0 отключает ограничение.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{limit: limit, window: window}
	if limit > 0 {
		l.counts = New[int](Config{
			DefaultExpiration: window,
			CleanupInterval:   window,
			MaxItems:          10000,
		})
	}
	return l
}

// Allow регистрирует запрос и сообщает, укладывается ли он в лимит
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.counts == nil {
		return true
	}
	n := l.counts.Update(key, l.window, func(old int, _ bool) int {
		return old + 1
	})
	return n <= l.limit
}

// Stop останавливает фоновую очистку
func (l *Limiter) Stop() {
	if l != nil && l.counts != nil {
		l.counts.Stop()
	}
}
