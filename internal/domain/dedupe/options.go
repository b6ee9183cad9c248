package dedupe

const defaultMaxSize = 10000

// Option applies a configuration option to the in-memory key tracker.
type Option func(*inMemoryKeys)

// WithMaxSize sets how many keys are remembered before the oldest is evicted.
// Zero or negative disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(k *inMemoryKeys) {
		k.maxSize = maxSize
	}
}
