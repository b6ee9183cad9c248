package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/fitbert/internal/app"
	"github.com/okian/fitbert/internal/config"
	"github.com/okian/fitbert/internal/domain/dedupe"
	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/simplify"
	"github.com/okian/fitbert/internal/loadtest"
	"github.com/okian/fitbert/pkg/logger"
)

var (
	sentence string
	options  []string
)

// newService builds a started service from configuration; tests swap it.
var newService = func(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, io.Closer, error) {
	svc, closer, err := service.FromConfig(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Start(ctx); err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return svc, closer, nil
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank options for the masked sentence, best first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			res, err := svc.Rank(ctx, sentence, options)
			if err != nil {
				return nil, err
			}
			return newRankOutput(res), nil
		})
	},
}

var fitbCmd = &cobra.Command{
	Use:   "fitb",
	Short: "Fill the blank with the best option",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			filled, err := svc.Fitb(ctx, sentence, options)
			return map[string]string{"sentence": filled}, err
		})
	},
}

var guessCmd = &cobra.Command{
	Use:   "guess",
	Short: "Print the model's most likely token for the mask",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
			token, err := svc.Guess(ctx, sentence)
			return map[string]string{"token": token}, err
		})
	},
}

var multiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Report the pathway and simplification for a set of options",
	Long: `multi runs the option simplification without calling the model and
reports whether ranking would take the single-token or multi-token pathway.`,
	RunE: runMulti,
}

var (
	ltURL      string
	ltRequests int
	ltWorkers  int
	ltTimeout  time.Duration
	ltDeadline time.Duration
	ltPoll     time.Duration
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Submit generated jobs to a running server and verify the answers",
	RunE:  runLoadtest,
}

func init() {
	for _, c := range []*cobra.Command{rankCmd, fitbCmd, guessCmd, multiCmd} {
		c.Flags().StringVarP(&sentence, "sentence", "s", "", "sentence containing the mask placeholder")
		_ = c.MarkFlagRequired("sentence")
	}
	for _, c := range []*cobra.Command{rankCmd, fitbCmd, multiCmd} {
		c.Flags().StringArrayVarP(&options, "option", "o", nil, "candidate option (repeatable)")
		_ = c.MarkFlagRequired("option")
	}

	f := loadtestCmd.Flags()
	f.StringVar(&ltURL, "url", "http://localhost:9080", "server base URL")
	f.IntVarP(&ltRequests, "requests", "n", 100, "number of jobs to submit")
	f.IntVarP(&ltWorkers, "workers", "w", 10, "concurrent clients")
	f.DurationVar(&ltTimeout, "timeout", 30*time.Second, "per-request timeout")
	f.DurationVar(&ltDeadline, "deadline", 2*time.Minute, "time allowed for all jobs to finish")
	f.DurationVar(&ltPoll, "poll", 100*time.Millisecond, "job status poll interval")
}

// withService loads configuration, runs fn against a started service and
// prints its result as JSON.
func withService(cmd *cobra.Command, fn func(context.Context, *service.Service) (any, error)) error {
	ctx := commandContext(cmd)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	svc, closer, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		svc.Stop()
		if err := closer.Close(); err != nil {
			log.Warn(ctx, "closing oracle", logger.Error(err))
		}
	}()

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

type rankOutput struct {
	Ranked  []model.ScoredOption `json:"ranked"`
	Pathway string               `json:"pathway"`
	Trivial bool                 `json:"trivial"`
}

func newRankOutput(res model.Result) rankOutput { //nolint:gocritic // hugeParam: read-only conversion
	ranked := make([]model.ScoredOption, len(res.Ranked))
	for i, so := range res.Ranked {
		score := so.Score
		// JSON has no infinities; log-sum scores reach -Inf on zero probabilities.
		if math.IsInf(score, -1) {
			score = -math.MaxFloat64
		}
		ranked[i] = model.ScoredOption{Option: so.Option, Score: score}
	}
	return rankOutput{Ranked: ranked, Pathway: res.Pathway.String(), Trivial: res.Trivial}
}

type multiReport struct {
	Pathway    string   `json:"pathway"`
	Multi      bool     `json:"multi"`
	Options    []string `json:"options"`
	Sentence   string   `json:"sentence"`
	StartWords string   `json:"start_words"`
	EndWords   string   `json:"end_words"`
}

func runMulti(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return errors.New("at least one option is required")
	}
	simp := simplify.Options(sentence, cfg.MaskToken, dedupe.Strings(options))
	pathway := model.SelectPathway(simp.Options)
	return printJSON(cmd.OutOrStdout(), multiReport{
		Pathway:    pathway.String(),
		Multi:      pathway == model.PathwayMulti,
		Options:    simp.Options,
		Sentence:   simp.Sentence,
		StartWords: simp.StartWords,
		EndWords:   simp.EndWords,
	})
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	stats, err := loadtest.Run(ctx, loadtest.Config{
		BaseURL:      ltURL,
		Requests:     ltRequests,
		Workers:      ltWorkers,
		Timeout:      ltTimeout,
		PollInterval: ltPoll,
		Deadline:     ltDeadline,
		Mask:         cfg.MaskToken,
	})
	if err != nil {
		return err
	}
	if bad := stats.JobFailures + stats.Mismatches; bad > 0 {
		return fmt.Errorf("%d of %d jobs did not produce a valid answer", bad, stats.Accepted)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
