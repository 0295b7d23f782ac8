package orchestrator

import (
	"sync"
	"time"
)

// healthEntry живет до expiry, после этого считается cache-miss
type healthEntry struct {
	healthy bool
	message string
	expiry  time.Time
}

// HealthCache - мемо доступности провайдеров с TTL. Ограничивает частоту
// проверок: внутри окна отдаем закешированный вердикт, сетевых вызовов нет.
// Результат реального поиска тоже пишется сюда (MarkHealthy/MarkUnhealthy),
// так что только что упавший провайдер скипается сразу, без повторной пробы.
type HealthCache struct {
	mu      sync.Mutex
	entries map[string]healthEntry
	ttl     time.Duration

	now func() time.Time // подменяется в тестах
}

func NewHealthCache(ttl time.Duration) *HealthCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HealthCache{
		entries: make(map[string]healthEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Check возвращает закешированный вердикт, либо делает ровно одну свежую
// проверку через probe и запоминает результат.
func (h *HealthCache) Check(name string, probe func() error) (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.entries[name]; ok && h.now().Before(e.expiry) {
		return e.healthy, e.message
	}

	var msg string
	healthy := true
	if err := probe(); err != nil {
		healthy = false
		msg = err.Error()
	}

	h.entries[name] = healthEntry{
		healthy: healthy,
		message: msg,
		expiry:  h.now().Add(h.ttl),
	}
	return healthy, msg
}

func (h *HealthCache) MarkHealthy(name string) {
	h.mu.Lock()
	h.entries[name] = healthEntry{healthy: true, expiry: h.now().Add(h.ttl)}
	h.mu.Unlock()
}

func (h *HealthCache) MarkUnhealthy(name, message string) {
	h.mu.Lock()
	h.entries[name] = healthEntry{healthy: false, message: message, expiry: h.now().Add(h.ttl)}
	h.mu.Unlock()
}
