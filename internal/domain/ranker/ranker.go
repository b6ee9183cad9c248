// Package ranker orders candidate phrases for the blank in a sentence using
// a masked language model.
package ranker

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/fitbert/internal/domain/dedupe"
	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/internal/domain/scoring"
	"github.com/okian/fitbert/internal/domain/simplify"
	"github.com/okian/fitbert/pkg/logger"
)

// Engine ranks options. It holds no per-call state and is safe for
// concurrent use when its oracle is.
type Engine struct {
	oracle      oracle.Oracle
	placeholder string
	parallelism int
	reduce      scoring.Reduction
	log         logger.Logger

	single *scoring.SingleToken
	multi  *scoring.MultiToken
}

// New creates an engine over o.
func New(o oracle.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:      o,
		placeholder: scoring.DefaultPlaceholder,
		parallelism: 1,
		reduce:      scoring.ReduceProduct,
	}
	for _, opt := range opts {
		opt(e)
	}

	common := []scoring.Option{scoring.WithPlaceholder(e.placeholder)}
	if e.log != nil {
		common = append(common, scoring.WithLogger(e.log))
	}
	e.single = scoring.NewSingleToken(o, common...)
	e.multi = scoring.NewMultiToken(o, append(common,
		scoring.WithParallelism(e.parallelism),
		scoring.WithReduction(e.reduce),
	)...)
	return e
}

// Placeholder returns the blank marker the engine looks for.
func (e *Engine) Placeholder() string { return e.placeholder }

// IsMulti reports whether options would be ranked on the multi-token pathway.
func (e *Engine) IsMulti(options []string) bool { return model.IsMulti(options) }

// Rank returns the distinct options ordered from best to worst fit.
func (e *Engine) Rank(ctx context.Context, sentence string, options []string) ([]string, error) {
	res, err := e.RankScored(ctx, sentence, options)
	if err != nil {
		return nil, err
	}
	return res.Options(), nil
}

// RankScored is Rank with scores, the chosen pathway and the simplification.
func (e *Engine) RankScored(ctx context.Context, sentence string, options []string) (model.Result, error) {
	if len(options) == 0 {
		return model.Result{}, ErrEmptyOptionSet
	}
	if n := strings.Count(sentence, e.placeholder); n != 1 {
		return model.Result{}, fmt.Errorf("%w: found %d", ErrPlaceholder, n)
	}

	distinct := dedupe.Strings(options)
	if len(distinct) == 1 {
		return model.Result{
			Ranked:         []model.ScoredOption{{Option: distinct[0], Score: 1}},
			Pathway:        model.SelectPathway(distinct),
			Simplification: model.Simplification{Options: distinct, Sentence: sentence},
			Trivial:        true,
		}, nil
	}

	simp := simplify.Options(sentence, e.placeholder, distinct)
	pathway := model.SelectPathway(simp.Options)

	var scorer scoring.Scorer = e.single
	if pathway == model.PathwayMulti {
		scorer = e.multi
	}
	scored, err := scorer.Score(ctx, simp.Sentence, simp.Options)
	if err != nil {
		return model.Result{}, fmt.Errorf("rank %s: %w", pathway, err)
	}
	// Reattach skips empty parts, so an option consumed by its affixes comes
	// back as "to car" rather than the double-spaced "to  car" a plain
	// start + " " + option + " " + end join would give.
	for i := range scored {
		scored[i].Option = simp.Reattach(scored[i].Option)
	}

	if e.log != nil {
		e.log.Debug(ctx, "ranked options",
			logger.String("pathway", pathway.String()),
			logger.Int("options", len(scored)),
			logger.String("start_words", simp.StartWords),
			logger.String("end_words", simp.EndWords),
		)
	}
	return model.Result{Ranked: scored, Pathway: pathway, Simplification: simp}, nil
}

// Fitb fills the blank of sentence with the best ranked option.
func (e *Engine) Fitb(ctx context.Context, sentence string, options []string) (string, error) {
	res, err := e.RankScored(ctx, sentence, options)
	if err != nil {
		return "", err
	}
	best, ok := res.Best()
	if !ok {
		return "", ErrEmptyOptionSet
	}
	return strings.Replace(sentence, e.placeholder, best, 1), nil
}

// Guess returns the oracle's most probable single token for the blank.
func (e *Engine) Guess(ctx context.Context, sentence string) (string, error) {
	if n := strings.Count(sentence, e.placeholder); n != 1 {
		return "", fmt.Errorf("%w: found %d", ErrPlaceholder, n)
	}
	return e.single.Guess(ctx, sentence)
}

// Mask replaces the byte span [start, end) of s with placeholder and returns
// the masked string together with the removed text.
func Mask(s string, start, end int, placeholder string) (string, string, error) {
	if start < 0 || end < start || end > len(s) {
		return "", "", fmt.Errorf("%w: [%d, %d) of %d bytes", ErrInvalidSpan, start, end, len(s))
	}
	return s[:start] + placeholder + s[end:], s[start:end], nil
}
