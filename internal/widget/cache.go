package widget

import (
	"time"

	"github.com/mmeshcher/account-overlay/internal/model"
)

// cacheKey обозначает единственный ресурс, который кеширует виджет.
const cacheKey = "account-overlay"

type cacheEntry struct {
	data      model.OverlayPayload
	timestamp time.Time
}

// Cache хранит ответы оверлея с отметкой времени. Не безопасен для конкурентного использования:
// виджет обращается к нему только под своей блокировкой.
type Cache struct {
	clock   Clock
	entries map[string]cacheEntry
}

// NewCache создаёт пустой кеш.
func NewCache(clock Clock) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get возвращает запись, если с момента её сохранения прошло меньше timeout.
func (c *Cache) Get(key string, timeout time.Duration) (model.OverlayPayload, bool) {
	e, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(e.timestamp) >= timeout {
		return model.OverlayPayload{}, false
	}
	return e.data, true
}

// Set сохраняет запись с текущим временем.
func (c *Cache) Set(key string, data model.OverlayPayload) {
	c.entries[key] = cacheEntry{data: data, timestamp: c.clock.Now()}
}

// Clear удаляет все записи.
func (c *Cache) Clear() {
	clear(c.entries)
}

// Len возвращает количество записей, включая просроченные.
func (c *Cache) Len() int {
	return len(c.entries)
}
