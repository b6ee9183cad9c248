package ranker

import (
	"github.com/okian/fitbert/internal/domain/scoring"
	"github.com/okian/fitbert/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPlaceholder sets the blank marker; the default is scoring.DefaultPlaceholder.
func WithPlaceholder(p string) Option {
	return func(e *Engine) {
		if p != "" {
			e.placeholder = p
		}
	}
}

// WithParallelism bounds concurrent oracle calls on the multi-token pathway.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithReduction sets how multi-token position probabilities are combined.
func WithReduction(r scoring.Reduction) Option {
	return func(e *Engine) {
		if r != nil {
			e.reduce = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}
