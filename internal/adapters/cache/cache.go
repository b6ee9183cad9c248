// Package cache stores ranking results keyed by their inputs.
package cache

import (
	"context"
	"crypto/sha1" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/okian/fitbert/internal/domain/model"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache keeps ranking results for identical requests.
type Cache interface {
	// Get returns the cached result and whether it was found.
	Get(ctx context.Context, key string) (model.Result, bool, error)
	// Set stores res under key for ttl; zero ttl uses the backend default.
	Set(ctx context.Context, key string, res model.Result, ttl time.Duration) error
	Name() string
}

// Key derives a cache key from everything that determines a ranking,
// including the reduction since it sets the scale of the scores.
func Key(modelID, reduction, placeholder, sentence string, options []string) string {
	h := sha1.New() //nolint:gosec // content addressing, not security
	for _, part := range []string{modelID, reduction, placeholder, sentence} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write([]byte(strings.Join(options, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (model.Result, bool, error) {
	return model.Result{}, false, nil
}

func (Noop) Set(context.Context, string, model.Result, time.Duration) error { return nil }

func (Noop) Name() string { return "none" }
