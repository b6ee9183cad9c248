// Package service wires the ranking engine, result cache and asynchronous
// job pipeline behind the operations the HTTP API and CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/fitbert/internal/adapters/cache"
	"github.com/okian/fitbert/internal/adapters/mq/queue"
	"github.com/okian/fitbert/internal/adapters/mq/worker"
	"github.com/okian/fitbert/internal/adapters/repository"
	"github.com/okian/fitbert/internal/domain/dedupe"
	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/internal/domain/ranker"
	"github.com/okian/fitbert/internal/domain/scoring"
	"github.com/okian/fitbert/pkg/logger"
	"github.com/okian/fitbert/pkg/metrics"
)

const defaultIdempotencyKeys = 10_000

// Service implements the operations behind the HTTP API and CLI.
type Service struct {
	mu sync.RWMutex

	oracle oracle.Oracle
	cache  cache.Cache

	engine *ranker.Engine
	jobs   *repository.MemoryStore
	queue  *queue.InMemoryQueue
	pool   *worker.Pool
	keys   dedupe.Keys
	cancel context.CancelFunc

	workerCount int
	queueSize   int
	jobTTL      time.Duration
	cacheTTL    time.Duration
	parallelism int
	reduction   string
	maskToken   string
	normalize   bool
	modelID     string

	started bool
	logger  logger.Logger
}

// New constructs a Service. Start must run before any operation.
func New(opts ...Option) *Service {
	s := &Service{
		cache:       cache.Noop{},
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		jobTTL:      15 * time.Minute,
		cacheTTL:    10 * time.Minute,
		parallelism: 1,
		reduction:   "product",
		maskToken:   scoring.DefaultPlaceholder,
		normalize:   true,
		modelID:     "default",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine and launches the job workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.oracle == nil {
		return ErrNoOracle
	}
	reduce, ok := scoring.ReductionByName(s.reduction)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReduction, s.reduction)
	}

	s.logger.Info(ctx, "starting ranking service...")

	s.engine = ranker.New(instrument(s.oracle),
		ranker.WithPlaceholder(s.maskToken),
		ranker.WithParallelism(s.parallelism),
		ranker.WithReduction(reduce),
		ranker.WithLogger(s.logger.Named("ranker")),
	)

	// Workers outlive the Start call, so they get their own context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.jobs = repository.NewMemoryStore(runCtx, repository.WithTTL(s.jobTTL))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.keys = dedupe.NewInMemoryKeys(dedupe.WithMaxSize(defaultIdempotencyKeys))
	s.pool = worker.NewPool(s.workerCount, s.queue, jobRunner{s: s, engine: s.engine}, s.jobs)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("model", s.modelID),
		logger.String("cache", s.cache.Name()),
		logger.String("reduction", s.reduction),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop drains the job queue and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.jobs.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

func (s *Service) ready() (*ranker.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

func (s *Service) normalizedSentence(sentence string) string {
	if !s.normalize {
		return sentence
	}
	return norm.NFC.String(sentence)
}

// modelOptions returns the options the engine sees. Normalization is skipped
// for the whole call when it would merge options that differ as sent.
func (s *Service) modelOptions(options []string) []string {
	if !s.normalize {
		return options
	}
	out := make([]string, len(options))
	origin := make(map[string]string, len(options))
	for i, o := range options {
		n := norm.NFC.String(o)
		if prev, ok := origin[n]; ok && prev != o {
			return options
		}
		origin[n] = o
		out[i] = n
	}
	return out
}

// restoreOptions rewrites the ranked options of res to the strings the
// caller sent. sent and raw are index aligned.
func restoreOptions(res *model.Result, sent, raw []string) {
	toRaw := make(map[string]string, len(sent))
	for i, o := range sent {
		if _, ok := toRaw[o]; !ok {
			toRaw[o] = raw[i]
		}
	}

	simp := res.Simplification
	byRanked := make(map[string][]string, len(simp.Options))
	for i, o := range dedupe.Strings(sent) {
		if i >= len(simp.Options) {
			break
		}
		key := simp.Options[i]
		if !res.Trivial {
			key = simp.Reattach(key)
		}
		byRanked[key] = append(byRanked[key], toRaw[o])
	}

	for i, so := range res.Ranked {
		if queue := byRanked[so.Option]; len(queue) > 0 {
			res.Ranked[i].Option = queue[0]
			byRanked[so.Option] = queue[1:]
		}
	}
}

// Rank orders options for the blank in sentence, consulting the cache first.
func (s *Service) Rank(ctx context.Context, sentence string, options []string) (model.Result, error) {
	engine, err := s.ready()
	if err != nil {
		return model.Result{}, err
	}
	return s.rank(ctx, engine, sentence, options)
}

func (s *Service) rank(ctx context.Context, engine *ranker.Engine, sentence string, options []string) (model.Result, error) {
	sentence = s.normalizedSentence(sentence)
	start := time.Now()

	key := cache.Key(s.modelID, s.reduction, s.maskToken, sentence, options)
	if res, ok, err := s.cache.Get(ctx, key); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "cache get failed", logger.String("cache", s.cache.Name()), logger.Error(err))
	} else if ok {
		metrics.RecordCacheHit()
		return res, nil
	} else {
		metrics.RecordCacheMiss()
	}

	sent := s.modelOptions(options)
	res, err := engine.RankScored(ctx, sentence, sent)
	if err != nil {
		metrics.RecordRankError(errorKind(err))
		return model.Result{}, err
	}
	restoreOptions(&res, sent, options)
	metrics.RecordRank(res.Pathway.String(), float64(time.Since(start).Milliseconds()))

	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "cache set failed", logger.String("cache", s.cache.Name()), logger.Error(err))
	}
	s.logger.Debug(ctx, "ranked",
		logger.String("pathway", res.Pathway.String()),
		logger.Int("options", len(res.Ranked)),
		logger.Bool("trivial", res.Trivial),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// Fitb returns sentence with its blank filled by the best ranked option.
func (s *Service) Fitb(ctx context.Context, sentence string, options []string) (string, error) {
	engine, err := s.ready()
	if err != nil {
		return "", err
	}
	return s.fitb(ctx, engine, sentence, options)
}

func (s *Service) fitb(ctx context.Context, engine *ranker.Engine, sentence string, options []string) (string, error) {
	res, err := s.rank(ctx, engine, sentence, options)
	if err != nil {
		return "", err
	}
	best, ok := res.Best()
	if !ok {
		return "", ranker.ErrEmptyOptionSet
	}
	return strings.Replace(sentence, s.maskToken, best, 1), nil
}

// Guess returns the model's most probable single token for the blank.
func (s *Service) Guess(ctx context.Context, sentence string) (string, error) {
	engine, err := s.ready()
	if err != nil {
		return "", err
	}
	token, err := engine.Guess(ctx, s.normalizedSentence(sentence))
	if err != nil {
		metrics.RecordRankError(errorKind(err))
		return "", err
	}
	return token, nil
}

// SubmitJob queues a rank or fitb request and returns its job id. A repeated
// non-empty idempotency key returns the id of the job it first created.
func (s *Service) SubmitJob(ctx context.Context, mode model.JobMode, req model.RankRequest, idempotencyKey string) (string, error) {
	if _, err := s.ready(); err != nil {
		return "", err
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if len(req.Options) == 0 {
		return "", ranker.ErrEmptyOptionSet
	}
	if n := strings.Count(req.Sentence, s.maskToken); n != 1 {
		return "", fmt.Errorf("%w: found %d", ranker.ErrPlaceholder, n)
	}

	id := uuid.NewString()
	if idempotencyKey != "" {
		if existing, seen := s.keys.Claim(ctx, idempotencyKey, id); seen {
			s.logger.Debug(ctx, "duplicate submission", logger.String("key", idempotencyKey), logger.String("job_id", existing))
			return existing, nil
		}
	}

	job := model.Job{ID: id, Mode: mode, Request: req, Status: model.JobPending}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.release(ctx, idempotencyKey)
		return "", err
	}
	if !s.queue.Enqueue(ctx, job) {
		s.release(ctx, idempotencyKey)
		_ = s.jobs.Update(ctx, id, func(j *model.Job) {
			j.Status = model.JobFailed
			j.Err = ErrBackpressure.Error()
		})
		return "", ErrBackpressure
	}
	metrics.RecordJobSubmitted()
	return id, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key != "" {
		s.keys.Release(ctx, key)
	}
}

// Job returns the current state of a submitted job.
func (s *Service) Job(ctx context.Context, id string) (model.Job, error) {
	if _, err := s.ready(); err != nil {
		return model.Job{}, err
	}
	return s.jobs.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"model":       s.modelID,
		"cache":       s.cache.Name(),
		"reduction":   s.reduction,
		"parallelism": s.parallelism,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"maskToken":   s.maskToken,
	}
	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["jobsStored"] = s.jobs.Count(ctx)
		stats["idempotencyKeys"] = s.keys.Size()
	}
	if c, ok := s.cache.(interface{ Len() int }); ok {
		stats["cacheEntries"] = c.Len()
	}
	return stats
}

// jobRunner executes queued jobs on the engine captured at Start, without
// taking the service lock Stop holds while draining workers.
type jobRunner struct {
	s      *Service
	engine *ranker.Engine
}

func (r jobRunner) Rank(ctx context.Context, sentence string, options []string) (model.Result, error) {
	return r.s.rank(ctx, r.engine, sentence, options)
}

func (r jobRunner) Fitb(ctx context.Context, sentence string, options []string) (string, error) {
	return r.s.fitb(ctx, r.engine, sentence, options)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ranker.ErrEmptyOptionSet):
		return "empty_options"
	case errors.Is(err, ranker.ErrPlaceholder):
		return "placeholder"
	case errors.Is(err, ranker.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, oracle.ErrOracle):
		return "oracle"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "other"
}
