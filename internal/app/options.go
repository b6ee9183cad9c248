package service

import (
	"strings"
	"time"

	"github.com/okian/fitbert/internal/adapters/cache"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOracle sets the masked language model.
func WithOracle(o oracle.Oracle) Option {
	return func(s *Service) {
		s.oracle = o
	}
}

// WithCache sets the ranking result cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets how long cached results live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithWorkerCount sets the number of job workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobTTL sets how long finished jobs stay retrievable.
func WithJobTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.jobTTL = ttl
		}
	}
}

// WithParallelism bounds concurrent oracle calls per multi-token ranking.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithReduction selects the per-token probability reduction by name.
func WithReduction(name string) Option {
	return func(s *Service) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			name = "product"
		}
		s.reduction = name
	}
}

// WithMaskToken sets the placeholder callers put in sentences.
func WithMaskToken(mask string) Option {
	return func(s *Service) {
		if mask != "" {
			s.maskToken = mask
		}
	}
}

// WithNormalization toggles NFC normalization of inputs.
func WithNormalization(enabled bool) Option {
	return func(s *Service) {
		s.normalize = enabled
	}
}

// WithModelID names the model in cache keys and stats.
func WithModelID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.modelID = id
		}
	}
}
