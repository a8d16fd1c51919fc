package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCounter keeps counters in process memory.
// Only suitable for a single instance: replicas do not share counts.
type MemoryCounter struct {
	c *gocache.Cache
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{c: gocache.New(DefaultWindow, time.Minute)}
}

func (m *MemoryCounter) IncrementAndCheck(_ context.Context, key string, window time.Duration, ceiling int) (bool, error) {
	for {
		// Add only succeeds when no live window exists for key.
		if err := m.c.Add(key, int64(1), window); err == nil {
			return ceiling >= 1, nil
		}

		n, err := m.c.IncrementInt64(key, 1)
		if err == nil {
			return n <= int64(ceiling), nil
		}
		// The window expired between Add and Increment; start a new one.
	}
}
