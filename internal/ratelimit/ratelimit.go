package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	windowStart time.Time
	count       int
}

// Limiter - fixed-window счетчик запросов на юзера. Окно - минута,
// на границе окна счетчик сбрасывается целиком.
type Limiter struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
	limit   int
	window  time.Duration

	now func() time.Time
}

type Config struct {
	RequestsPerMinute int
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}

	l := &Limiter{
		buckets: make(map[int64]*bucket),
		limit:   limit,
		window:  time.Minute,
		now:     time.Now,
	}
	go l.cleanup()
	return l
}

func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[userID]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[userID] = &bucket{windowStart: now, count: 1}
		return true
	}

	if b.count >= l.limit {
		return false
	}

	b.count++
	return true
}

// ResetTime - когда откроется следующее окно
func (l *Limiter) ResetTime(userID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[userID]
	if !ok {
		return l.now()
	}
	return b.windowStart.Add(l.window)
}

// cleanup - фоновая очистка протухших окон
// TODO: добавить graceful shutdown
func (l *Limiter) cleanup() {
	tick := time.NewTicker(5 * time.Minute)
	for range tick.C {
		l.mu.Lock()
		now := l.now()
		for uid, b := range l.buckets {
			if now.Sub(b.windowStart) >= l.window {
				delete(l.buckets, uid)
			}
		}
		l.mu.Unlock()
	}
}
