package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/okian/fitbert/internal/domain/model"
)

// Memory is a process-local cache with expiring entries.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a memory cache whose entries live for ttl by default.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := 2 * ttl
	if ttl == gocache.NoExpiration {
		cleanup = 0
	}
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) (model.Result, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return model.Result{}, false, nil
	}
	res, ok := v.(model.Result)
	return res, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, res model.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, res, ttl)
	return nil
}

func (m *Memory) Name() string { return "memory" }

// Len returns the number of stored entries, expired ones included until swept.
func (m *Memory) Len() int { return m.c.ItemCount() }
