package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fitbert/pkg/logger"
)

const percentageMultiplier = 100

// ErrUnhealthy is returned when the service health check fails.
var ErrUnhealthy = errors.New("service unhealthy")

type submitted struct {
	req Request
	id  string
}

// Run submits cfg.Requests generated jobs, waits for them and verifies each
// finished answer is one of the submitted options.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 2 * time.Minute
	}
	stats := &Stats{StartTime: time.Now()}
	c := newClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout)

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
	)

	status, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}

	jobs, err := submit(ctx, c, cfg, Generate(cfg.Requests, cfg.Mask), stats)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "jobs submitted",
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()
	if err := verify(waitCtx, c, cfg, jobs, stats); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	var successRate float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Completed) / float64(stats.Submitted) * percentageMultiplier
	}
	log.Info(ctx, "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("completed", stats.Completed),
		logger.Int("jobFailures", stats.JobFailures),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
	)
	return stats, nil
}

func submit(ctx context.Context, c *client, cfg Config, reqs []Request, stats *Stats) ([]submitted, error) {
	var (
		mu   sync.Mutex
		jobs = make([]submitted, 0, len(reqs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			var out submitResponse
			status, err := c.do(gctx, http.MethodPost, "/jobs", req, map[string]string{"Idempotency-Key": req.Key}, &out)

			mu.Lock()
			defer mu.Unlock()
			stats.Submitted++
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				stats.Failed++
			case status == http.StatusAccepted:
				stats.Accepted++
				jobs = append(jobs, submitted{req: req, id: out.ID})
			case status == http.StatusTooManyRequests:
				stats.Rejected++
			default:
				stats.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func verify(ctx context.Context, c *client, cfg Config, jobs []submitted, stats *Stats) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			job, err := poll(gctx, c, cfg.PollInterval, j.id)
			if err != nil {
				return fmt.Errorf("job %s: %w", j.id, err)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case job.Status == "failed":
				stats.JobFailures++
			case !answered(j.req, job, cfg.Mask):
				stats.Mismatches++
			default:
				stats.Completed++
			}
			return nil
		})
	}
	return g.Wait()
}

func poll(ctx context.Context, c *client, interval time.Duration, id string) (jobResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var job jobResponse
		status, err := c.do(ctx, http.MethodGet, "/jobs/"+id, nil, nil, &job)
		if err != nil {
			return jobResponse{}, err
		}
		if status != http.StatusOK {
			return jobResponse{}, fmt.Errorf("unexpected status %d", status)
		}
		if job.Status == "done" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return jobResponse{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// answered checks that a finished job produced one of its own options.
func answered(req Request, job jobResponse, mask string) bool {
	if mask == "" {
		mask = defaultMask
	}
	for _, o := range req.Options {
		switch req.Mode {
		case "fitb":
			if job.Sentence == strings.Replace(req.Sentence, mask, o, 1) {
				return true
			}
		default:
			if job.Result != nil && len(job.Result.Ranked) == len(req.Options) && job.Result.Ranked[0].Option == o {
				return true
			}
		}
	}
	return false
}
