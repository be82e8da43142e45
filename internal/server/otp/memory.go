package otp

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
)

const defaultJanitorInterval = time.Minute

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local Cache. Expired entries are invisible to Get
// immediately and physically removed by a janitor goroutine that runs until
// Close.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache starts a MemoryCache whose janitor sweeps every interval
// (one minute when interval <= 0).
func NewMemoryCache(interval time.Duration) *MemoryCache {
	return newMemoryCache(interval, time.Now)
}

func newMemoryCache(interval time.Duration, now func() time.Time) *MemoryCache {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	c := &MemoryCache{
		items: make(map[string]memoryItem),
		now:   now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.janitor(interval)
	return c
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	c.items[key] = memoryItem{value: buf, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || !c.now().Before(it.expires) {
		return nil, common.ErrorNotFound
	}
	buf := make([]byte, len(it.value))
	copy(buf, it.value)
	return buf, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Close stops the janitor and waits for it to exit. It is safe to call more
// than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, it := range c.items {
		if !now.Before(it.expires) {
			delete(c.items, k)
		}
	}
}
