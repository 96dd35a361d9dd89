// Package servicecache provides the per-context singleton table.
//
// Services are memoized by constructor identity: the first call for a
// given constructor runs it, later calls return the cached instance. A
// cache belongs to exactly one workspace context and is never shared
// across clones, so cached services live exactly as long as their context.
package servicecache

import (
	"reflect"
	"sync"
)

// Cache memoizes service instances by constructor identity.
type Cache struct {
	mu       sync.Mutex
	services map[uintptr]any
}

// New creates an empty service cache.
func New() *Cache {
	return &Cache{services: make(map[uintptr]any)}
}

// GetOrCreate returns the cached instance for the constructor, running it
// on first use. The construct callback receives no arguments: callers
// close over whatever the service needs.
func (c *Cache) GetOrCreate(constructor any, construct func() any) any {
	key := reflect.ValueOf(constructor).Pointer()

	c.mu.Lock()
	defer c.mu.Unlock()

	if service, ok := c.services[key]; ok {
		return service
	}
	service := construct()
	c.services[key] = service
	return service
}

// Len returns the number of cached services.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.services)
}
