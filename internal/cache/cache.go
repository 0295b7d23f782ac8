package cache

import "time"

// Cache - кеш результатов анализа (LRU + TTL)
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Stats() Stats
	Stop()
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Size      int
	Evictions uint64
	HitRate   string // "n/a" пока не было ни одного запроса
}
