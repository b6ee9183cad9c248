package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/okian/fitbert/internal/adapters/cache"
	"github.com/okian/fitbert/internal/adapters/oracle/onnx"
	"github.com/okian/fitbert/internal/adapters/oracle/remote"
	"github.com/okian/fitbert/internal/config"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewOracle builds the backend named by cfg.OracleBackend. The returned
// closer releases backend resources.
func NewOracle(ctx context.Context, cfg *config.Config, log logger.Logger) (oracle.Oracle, io.Closer, error) {
	switch cfg.OracleBackend {
	case config.OracleRemote:
		client, err := remote.New(cfg.OracleEndpoint,
			remote.WithTimeout(cfg.OracleTimeout()),
			remote.WithModel(cfg.ModelID),
			remote.WithLogger(log.Named("remote")),
		)
		if err != nil {
			return nil, nil, err
		}
		if _, err := client.Info(ctx); err != nil {
			log.Warn(ctx, "oracle info unavailable, using default special tokens",
				logger.String("endpoint", cfg.OracleEndpoint),
				logger.Error(err),
			)
		}
		return client, closerFunc(func() error { return nil }), nil

	case config.OracleONNX:
		o, err := onnx.Open(onnx.Config{
			ModelPath:      cfg.ModelPath,
			TokenizerPath:  cfg.TokenizerPath,
			LibraryPath:    cfg.ORTLibraryPath,
			ModelID:        cfg.ModelID,
			MaxSeqLen:      cfg.MaxSeqLen,
			IncludeTypeIDs: true,
		}, onnx.WithLogger(log.Named("onnx")))
		if err != nil {
			return nil, nil, err
		}
		return o, closerFunc(func() error {
			return errors.Join(o.Close(), onnx.Shutdown())
		}), nil
	}
	return nil, nil, fmt.Errorf("%w: unknown oracle_backend %q", config.ErrInvalidConfig, cfg.OracleBackend)
}

// NewCache builds the result cache named by cfg.CacheBackend.
func NewCache(cfg *config.Config) (cache.Cache, error) {
	return cache.New(cache.Settings{
		Backend:       cfg.CacheBackend,
		TTL:           cfg.CacheTTL(),
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
}

// FromConfig builds an unstarted Service with its oracle and cache. The
// returned closer releases both once the service is stopped.
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, io.Closer, error) {
	o, oracleCloser, err := NewOracle(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("oracle: %w", err)
	}
	c, err := NewCache(cfg)
	if err != nil {
		_ = oracleCloser.Close()
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	svc := New(
		WithLogger(log.Named("service")),
		WithOracle(o),
		WithCache(c),
		WithCacheTTL(cfg.CacheTTL()),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithJobTTL(cfg.JobTTL()),
		WithParallelism(cfg.Parallelism),
		WithReduction(cfg.Reduction),
		WithMaskToken(cfg.MaskToken),
		WithNormalization(cfg.NormalizeInput),
		WithModelID(cfg.ModelID),
	)
	return svc, closerFunc(func() error {
		var cacheErr error
		if cl, ok := c.(io.Closer); ok {
			cacheErr = cl.Close()
		}
		return errors.Join(oracleCloser.Close(), cacheErr)
	}), nil
}
