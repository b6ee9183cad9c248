// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/fitbert/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Ranker runs the synchronous engine operations.
type Ranker interface {
	Rank(ctx context.Context, sentence string, options []string) (model.Result, error)
	Fitb(ctx context.Context, sentence string, options []string) (string, error)
	Guess(ctx context.Context, sentence string) (string, error)
}

// Jobs submits and reads asynchronous ranking jobs.
type Jobs interface {
	SubmitJob(ctx context.Context, mode model.JobMode, req model.RankRequest, idempotencyKey string) (string, error)
	Job(ctx context.Context, id string) (model.Job, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Ranker
	Jobs
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	rankHandler   *RankHandler
	jobsHandler   *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		rankHandler:   NewRankHandler(deps),
		jobsHandler:   NewJobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rank", MetricsMiddleware(RequestIDMiddleware(s.rankHandler.HandleRank), "rank"))
	mux.HandleFunc("/fitb", MetricsMiddleware(RequestIDMiddleware(s.rankHandler.HandleFitb), "fitb"))
	mux.HandleFunc("/guess", MetricsMiddleware(RequestIDMiddleware(s.rankHandler.HandleGuess), "guess"))
	mux.HandleFunc("/jobs", MetricsMiddleware(RequestIDMiddleware(s.jobsHandler.HandleSubmit), "jobs"))
	mux.HandleFunc("/jobs/", MetricsMiddleware(RequestIDMiddleware(s.jobsHandler.HandleGet), "job"))
}

// rankRequest mirrors the OpenAPI schema for POST /rank, /fitb and /jobs.
type rankRequest struct {
	Sentence string   `json:"sentence"`
	Options  []string `json:"options"`
	Mode     string   `json:"mode,omitempty"`
}

func (r rankRequest) validate() error {
	if strings.TrimSpace(r.Sentence) == "" {
		return errors.New("missing sentence")
	}
	return nil
}

type rankResponse struct {
	Ranked     []model.ScoredOption `json:"ranked"`
	Pathway    string               `json:"pathway"`
	StartWords string               `json:"start_words"`
	EndWords   string               `json:"end_words"`
	Trivial    bool                 `json:"trivial"`
}

func newRankResponse(res model.Result) rankResponse { //nolint:gocritic // hugeParam: read-only conversion
	ranked := make([]model.ScoredOption, len(res.Ranked))
	for i, so := range res.Ranked {
		ranked[i] = model.ScoredOption{Option: so.Option, Score: finite(so.Score)}
	}
	return rankResponse{
		Ranked:     ranked,
		Pathway:    res.Pathway.String(),
		StartWords: res.Simplification.StartWords,
		EndWords:   res.Simplification.EndWords,
		Trivial:    res.Trivial,
	}
}

// finite clamps scores JSON cannot carry; log-sum scores reach -Inf when a
// token has zero probability.
func finite(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	case math.IsInf(f, 1):
		return math.MaxFloat64
	}
	return f
}

type fitbResponse struct {
	Sentence string `json:"sentence"`
}

type guessResponse struct {
	Token string `json:"token"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type jobResponse struct {
	ID        string        `json:"id"`
	Mode      string        `json:"mode"`
	Status    string        `json:"status"`
	Result    *rankResponse `json:"result,omitempty"`
	Sentence  string        `json:"sentence,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newJobResponse(job model.Job) jobResponse { //nolint:gocritic // hugeParam: read-only conversion
	out := jobResponse{
		ID:        job.ID,
		Mode:      string(job.Mode),
		Status:    string(job.Status),
		Sentence:  job.Filled,
		Error:     job.Err,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Result != nil {
		res := newRankResponse(*job.Result)
		out.Result = &res
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
