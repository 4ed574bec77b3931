// Пакет service — бизнес-логика DRS-сервера: Resolver и Access Resolver.
// CacheService — LRU-кэш метаданных DrsObject с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drs_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных объектов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drs_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных объектов.",
	})
)

// CacheService — LRU-кэш метаданных DrsObject с автоматическим TTL.
// Кэшируются только нераскрытые объекты из Object Store (expand выполняется
// поверх кэша); каждый экземпляр сервера имеет собственный in-memory кэш.
type CacheService struct {
	cache *expirable.LRU[string, *model.DrsObject]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей в кэше.
// ttl — время жизни записи после добавления.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.DrsObject](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает DrsObject из кэша по objectID.
// Возвращает (объект, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(objectID string) (*model.DrsObject, bool) {
	val, ok := c.cache.Get(objectID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(objectID string, object *model.DrsObject) {
	c.cache.Add(objectID, object)
}

// Delete удаляет запись из кэша.
func (c *CacheService) Delete(objectID string) {
	c.cache.Remove(objectID)
}
