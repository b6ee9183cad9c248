// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"regexp"
	"runtime"
	"time"
)

var metricName = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)?$`)

// Oracle backends.
const (
	OracleRemote = "remote"
	OracleONNX   = "onnx"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaskToken is the placeholder callers put in sentences.
	MaskToken string `koanf:"mask_token"`

	// OracleBackend selects the masked language model: remote or onnx.
	OracleBackend   string `koanf:"oracle_backend"`
	OracleEndpoint  string `koanf:"oracle_endpoint"`
	OracleTimeoutMS int    `koanf:"oracle_timeout_ms"`

	// ModelID names the model in logs and cache keys.
	ModelID        string `koanf:"model_id"`
	ModelPath      string `koanf:"model_path"`
	TokenizerPath  string `koanf:"tokenizer_path"`
	ORTLibraryPath string `koanf:"ort_library_path"`
	MaxSeqLen      int    `koanf:"max_seq_len"`

	// Parallelism bounds concurrent oracle calls per multi-token ranking.
	Parallelism int `koanf:"parallelism"`

	// Reduction combines per-token probabilities: product or logsum.
	Reduction string `koanf:"reduction"`

	// NormalizeInput applies NFC normalization to sentences and options.
	NormalizeInput bool `koanf:"normalize_input"`

	// CacheBackend selects the result cache: none, memory or redis.
	CacheBackend  string `koanf:"cache_backend"`
	CacheTTLSec   int    `koanf:"cache_ttl_sec"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// WorkerCount sets the number of job workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the job queue.
	QueueSize int `koanf:"queue_size"`

	// JobTTLSec is how long finished jobs stay retrievable.
	JobTTLSec int `koanf:"job_ttl_sec"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// LatencyBucketsMS overrides the latency histogram buckets. Set it from
	// the YAML file; env values are not split into lists.
	LatencyBucketsMS []float64 `koanf:"latency_buckets_ms"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		MaskToken:       "***mask***",
		OracleBackend:   OracleRemote,
		OracleEndpoint:  "http://localhost:8500",
		OracleTimeoutMS: 30_000,
		ModelID:         "bert-large-uncased",
		MaxSeqLen:       512,
		Parallelism:     4,
		Reduction:       "product",
		NormalizeInput:  true,
		CacheBackend:    "memory",
		CacheTTLSec:     600,
		RedisAddr:       "localhost:6379",
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       1024,
		JobTTLSec:       900,

		MetricsNamespace: "fitbert",
		MetricsSubsystem: "ranker",
	}
}

// OracleTimeout returns OracleTimeoutMS as a duration.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSec as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// JobTTL returns JobTTLSec as a duration.
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.JobTTLSec) * time.Second
}

// Validate checks field values and cross-field requirements.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaskToken == "":
		return fmt.Errorf("%w: mask_token must not be empty", ErrInvalidConfig)
	case c.Parallelism < 0:
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.CacheTTLSec < 0 || c.JobTTLSec < 0 || c.OracleTimeoutMS < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	if !metricName.MatchString(c.MetricsNamespace) || !metricName.MatchString(c.MetricsSubsystem) {
		return fmt.Errorf("%w: metrics_namespace and metrics_subsystem must be metric name fragments", ErrInvalidConfig)
	}
	for i := 1; i < len(c.LatencyBucketsMS); i++ {
		if c.LatencyBucketsMS[i] <= c.LatencyBucketsMS[i-1] {
			return fmt.Errorf("%w: latency_buckets_ms must be strictly increasing", ErrInvalidConfig)
		}
	}

	switch c.Reduction {
	case "", "product", "logsum":
	default:
		return fmt.Errorf("%w: unknown reduction %q", ErrInvalidConfig, c.Reduction)
	}

	switch c.OracleBackend {
	case OracleRemote:
		if c.OracleEndpoint == "" {
			return fmt.Errorf("%w: oracle_endpoint is required for the remote backend", ErrInvalidConfig)
		}
	case OracleONNX:
		if c.ModelPath == "" || c.TokenizerPath == "" {
			return fmt.Errorf("%w: model_path and tokenizer_path are required for the onnx backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown oracle_backend %q", ErrInvalidConfig, c.OracleBackend)
	}

	switch c.CacheBackend {
	case "", "none", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}
	return nil
}
