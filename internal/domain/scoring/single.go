package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

// SingleToken scores every option by the probability the oracle assigns to
// its first subword at the blank. Options spanning several subwords are
// judged by their first piece only.
type SingleToken struct {
	oracle oracle.Oracle
	settings
}

// NewSingleToken creates a single-token scorer over o.
func NewSingleToken(o oracle.Oracle, opts ...Option) *SingleToken {
	return &SingleToken{oracle: o, settings: newSettings(opts)}
}

// Score runs one oracle prediction and ranks options by it.
func (s *SingleToken) Score(ctx context.Context, sentence string, options []string) ([]model.ScoredOption, error) {
	ids, maskIdx, err := s.maskedSentence(ctx, sentence)
	if err != nil {
		return nil, err
	}

	optionIDs := make([]int, len(options))
	for i, opt := range options {
		toks, err := s.oracle.Tokenize(ctx, opt)
		if err != nil {
			return nil, oracle.Wrap("tokenize option", err)
		}
		if len(toks) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOption, opt)
		}
		first, err := s.oracle.IDs(ctx, toks[:1])
		if err != nil {
			return nil, oracle.Wrap("ids", err)
		}
		optionIDs[i] = first[0]
	}

	dists, err := s.oracle.Predict(ctx, ids, []int{maskIdx})
	if err != nil {
		return nil, oracle.Wrap("predict", err)
	}

	scored := make([]model.ScoredOption, len(options))
	for i, opt := range options {
		p, err := oracle.ProbabilityAt(dists, maskIdx, optionIDs[i])
		if err != nil {
			return nil, err
		}
		scored[i] = model.ScoredOption{Option: opt, Score: p}
	}
	Sort(scored)

	if s.log != nil && len(scored) > 0 {
		s.log.Debug(ctx, "single-token ranking",
			logger.Int("options", len(options)),
			logger.String("best", scored[0].Option),
			logger.Float64("score", scored[0].Score),
		)
	}
	return scored, nil
}

// Guess returns the most probable vocabulary token at the blank.
func (s *SingleToken) Guess(ctx context.Context, sentence string) (string, error) {
	ids, maskIdx, err := s.maskedSentence(ctx, sentence)
	if err != nil {
		return "", err
	}
	dists, err := s.oracle.Predict(ctx, ids, []int{maskIdx})
	if err != nil {
		return "", oracle.Wrap("predict", err)
	}
	dist, ok := dists[maskIdx]
	if !ok || len(dist) == 0 {
		return "", fmt.Errorf("%w: no distribution for position %d", oracle.ErrOracle, maskIdx)
	}
	best := 0
	for i, p := range dist {
		if p > dist[best] {
			best = i
		}
	}
	toks, err := s.oracle.Tokens(ctx, []int{best})
	if err != nil {
		return "", oracle.Wrap("tokens", err)
	}
	return toks[0], nil
}

// maskedSentence builds [start] pre [mask] post [end] and returns its ids
// with the index of the mask.
func (s *SingleToken) maskedSentence(ctx context.Context, sentence string) ([]int, int, error) {
	if strings.Count(sentence, s.placeholder) != 1 {
		return nil, 0, ErrPlaceholder
	}
	pre, post, _ := strings.Cut(sentence, s.placeholder)

	preToks, err := s.oracle.Tokenize(ctx, pre)
	if err != nil {
		return nil, 0, oracle.Wrap("tokenize", err)
	}
	postToks, err := s.oracle.Tokenize(ctx, post)
	if err != nil {
		return nil, 0, oracle.Wrap("tokenize", err)
	}

	tokens := make([]string, 0, len(preToks)+len(postToks)+1)
	tokens = append(tokens, preToks...)
	tokens = append(tokens, s.oracle.Specials().Mask)
	tokens = append(tokens, postToks...)

	ids, err := boundedIDs(ctx, s.oracle, tokens)
	if err != nil {
		return nil, 0, err
	}
	return ids, len(preToks) + 1, nil
}
