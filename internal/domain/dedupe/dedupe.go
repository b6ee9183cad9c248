// Package dedupe removes repeated option strings and tracks idempotency keys.
package dedupe

import (
	"context"
	"sync"
)

// Strings returns values with exact duplicates removed, keeping the first
// occurrence of each. The input is not modified.
func Strings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Keys maps client supplied idempotency keys to the id of the job they
// created, so a retried submission returns the original job.
type Keys interface {
	// Claim records id under key unless key is already known.
	// It returns the stored id and whether key was already present.
	Claim(ctx context.Context, key, id string) (string, bool)

	// Release forgets key, letting a failed submission be retried.
	Release(ctx context.Context, key string)

	Size() int
}

// inMemoryKeys keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryKeys struct {
	mu      sync.Mutex
	ids     map[string]string
	order   []string
	maxSize int
}

// NewInMemoryKeys creates an in-memory key tracker.
func NewInMemoryKeys(opts ...Option) Keys {
	k := &inMemoryKeys{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(k)
	}
	k.ids = make(map[string]string)
	return k
}

func (k *inMemoryKeys) Claim(_ context.Context, key, id string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if existing, ok := k.ids[key]; ok {
		return existing, true
	}
	if k.maxSize > 0 {
		for len(k.ids) >= k.maxSize && len(k.order) > 0 {
			k.evictOldest()
		}
	}
	k.ids[key] = id
	k.order = append(k.order, key)
	return id, false
}

func (k *inMemoryKeys) Release(_ context.Context, key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.ids[key]; !ok {
		return
	}
	delete(k.ids, key)
	for i, o := range k.order {
		if o == key {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
}

// evictOldest must be called with k.mu held.
func (k *inMemoryKeys) evictOldest() {
	oldest := k.order[0]
	k.order = k.order[1:]
	delete(k.ids, oldest)
}

func (k *inMemoryKeys) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.ids)
}
