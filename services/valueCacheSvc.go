package services

import (
	"sync"
	"time"

	"github.com/amine-amaach/uafacade/services/models"
)

// CachedValue is the last value observed or set for a property.
type CachedValue struct {
	Value           any
	SourceTimestamp time.Time
	ServerTimestamp time.Time
}

// ValueCache holds the last observed value of each property of one object.
// It is never filled in the background.
type ValueCache struct {
	mu     sync.RWMutex
	values map[models.KeyID]CachedValue
}

func NewValueCache() *ValueCache {
	return &ValueCache{values: make(map[models.KeyID]CachedValue)}
}

func (c *ValueCache) Get(id models.KeyID) (CachedValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[id]
	return v, ok
}

func (c *ValueCache) Set(id models.KeyID, v CachedValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[id] = v
}

func (c *ValueCache) Delete(id models.KeyID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, id)
}

func (c *ValueCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
