package scoring

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

// MultiToken scores every option by the pseudo-likelihood of the sentence
// it produces: each subword is masked in turn and the oracle's probability
// of the true subword is folded into a joint score.
type MultiToken struct {
	oracle oracle.Oracle
	settings
}

// NewMultiToken creates a multi-token scorer over o.
func NewMultiToken(o oracle.Oracle, opts ...Option) *MultiToken {
	return &MultiToken{oracle: o, settings: newSettings(opts)}
}

// Score fills the blank with each option and ranks by sentence probability.
func (m *MultiToken) Score(ctx context.Context, sentence string, options []string) ([]model.ScoredOption, error) {
	if strings.Count(sentence, m.placeholder) != 1 {
		return nil, ErrPlaceholder
	}

	scored := make([]model.ScoredOption, len(options))
	for i, opt := range options {
		p, err := m.SentenceProbability(ctx, strings.Replace(sentence, m.placeholder, opt, 1))
		if err != nil {
			return nil, err
		}
		scored[i] = model.ScoredOption{Option: opt, Score: p}
	}
	Sort(scored)

	if m.log != nil && len(scored) > 0 {
		m.log.Debug(ctx, "multi-token ranking",
			logger.Int("options", len(options)),
			logger.String("best", scored[0].Option),
			logger.Float64("score", scored[0].Score),
		)
	}
	return scored, nil
}

// SentenceProbability returns the reduced pseudo-likelihood of text.
func (m *MultiToken) SentenceProbability(ctx context.Context, text string) (float64, error) {
	probs, err := m.PositionProbabilities(ctx, text)
	if err != nil {
		return 0, err
	}
	return m.reduce(probs), nil
}

// PositionProbabilities masks every subword of text in turn and returns the
// probability of the true subword at each position.
func (m *MultiToken) PositionProbabilities(ctx context.Context, text string) ([]float64, error) {
	tokens, err := m.oracle.Tokenize(ctx, text)
	if err != nil {
		return nil, oracle.Wrap("tokenize", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	trueIDs, err := m.oracle.IDs(ctx, tokens)
	if err != nil {
		return nil, oracle.Wrap("ids", err)
	}

	probs := make([]float64, len(tokens))
	position := func(ctx context.Context, i int) error {
		masked := make([]string, len(tokens))
		copy(masked, tokens)
		masked[i] = m.oracle.Specials().Mask

		ids, err := boundedIDs(ctx, m.oracle, masked)
		if err != nil {
			return err
		}
		dists, err := m.oracle.Predict(ctx, ids, []int{i + 1})
		if err != nil {
			return oracle.Wrap("predict", err)
		}
		p, err := oracle.ProbabilityAt(dists, i+1, trueIDs[i])
		if err != nil {
			return err
		}
		probs[i] = p
		return nil
	}

	if m.parallelism < 2 {
		for i := range tokens {
			if err := position(ctx, i); err != nil {
				return nil, err
			}
		}
		return probs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallelism)
	for i := range tokens {
		i := i
		g.Go(func() error { return position(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return probs, nil
}
