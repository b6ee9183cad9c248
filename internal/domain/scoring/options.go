package scoring

import "github.com/okian/fitbert/pkg/logger"

// DefaultPlaceholder marks the blank in caller sentences.
const DefaultPlaceholder = "***mask***"

type settings struct {
	placeholder string
	reduce      Reduction
	parallelism int
	log         logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		placeholder: DefaultPlaceholder,
		reduce:      ReduceProduct,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a scorer.
type Option func(*settings)

// WithPlaceholder sets the blank marker searched for in sentences.
func WithPlaceholder(p string) Option {
	return func(s *settings) {
		if p != "" {
			s.placeholder = p
		}
	}
}

// WithReduction sets how per-position probabilities fold into one score.
func WithReduction(r Reduction) Option {
	return func(s *settings) {
		if r != nil {
			s.reduce = r
		}
	}
}

// WithParallelism bounds concurrent oracle calls per candidate sentence.
// Values below 2 keep calls strictly sequential.
func WithParallelism(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}
