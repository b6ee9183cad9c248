package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/fitbert/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaskToken, convey.ShouldEqual, "***mask***")
			convey.So(cfg.OracleBackend, convey.ShouldEqual, config.OracleRemote)
			convey.So(cfg.Reduction, convey.ShouldEqual, "product")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.NormalizeInput, convey.ShouldBeTrue)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations are derived from the numeric fields", func() {
			convey.So(cfg.OracleTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.JobTTL(), convey.ShouldEqual, 15*time.Minute)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }, "addr must not be empty"},
		{"empty mask token", func(c *config.Config) { c.MaskToken = "" }, "mask_token"},
		{"negative parallelism", func(c *config.Config) { c.Parallelism = -1 }, "parallelism"},
		{"zero queue", func(c *config.Config) { c.QueueSize = 0 }, "queue_size"},
		{"negative ttl", func(c *config.Config) { c.JobTTLSec = -5 }, "durations"},
		{"unknown reduction", func(c *config.Config) { c.Reduction = "mean" }, "unknown reduction"},
		{"unknown backend", func(c *config.Config) { c.OracleBackend = "gpt" }, "unknown oracle_backend"},
		{"remote without endpoint", func(c *config.Config) { c.OracleEndpoint = "" }, "oracle_endpoint"},
		{"onnx without paths", func(c *config.Config) { c.OracleBackend = config.OracleONNX }, "model_path"},
		{"unknown cache", func(c *config.Config) { c.CacheBackend = "disk" }, "unknown cache_backend"},
		{"bad metrics namespace", func(c *config.Config) { c.MetricsNamespace = "fit-bert" }, "metrics_namespace"},
		{"unsorted latency buckets", func(c *config.Config) { c.LatencyBucketsMS = []float64{10, 5} }, "latency_buckets_ms"},
		{"redis without addr", func(c *config.Config) {
			c.CacheBackend = "redis"
			c.RedisAddr = ""
		}, "redis_addr"},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
				})
			})
		}

		convey.Convey("When onnx paths are provided", func() {
			cfg := config.New()
			cfg.OracleBackend = config.OracleONNX
			cfg.ModelPath = "/models/bert.onnx"
			cfg.TokenizerPath = "/models/tokenizer.json"

			convey.Convey("Then validation passes", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
