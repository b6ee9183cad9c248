// Package oracle defines the masked language model contract the ranking
// engine consumes. Implementations live under internal/adapters/oracle.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// ErrOracle marks any failure surfaced by a masked language model backend.
// Callers match it with errors.Is; the backend cause stays wrapped.
var ErrOracle = errors.New("oracle failure")

// Default special tokens used by BERT-style vocabularies.
const (
	DefaultStartToken = "[CLS]"
	DefaultEndToken   = "[SEP]"
	DefaultMaskToken  = "[MASK]"
)

// Specials names the boundary and mask tokens of the model vocabulary.
type Specials struct {
	Start string
	End   string
	Mask  string
}

// DefaultSpecials returns the BERT special token layout.
func DefaultSpecials() Specials {
	return Specials{
		Start: DefaultStartToken,
		End:   DefaultEndToken,
		Mask:  DefaultMaskToken,
	}
}

// Oracle tokenizes text and predicts vocabulary distributions at masked
// positions. Predict must be deterministic for identical input.
type Oracle interface {
	// Tokenize splits text into subword tokens without boundary tokens.
	Tokenize(ctx context.Context, text string) ([]string, error)

	// IDs maps tokens to vocabulary ids, preserving order.
	IDs(ctx context.Context, tokens []string) ([]int, error)

	// Tokens maps vocabulary ids back to tokens, preserving order.
	Tokens(ctx context.Context, ids []int) ([]string, error)

	// Predict returns, for every requested position, a probability
	// distribution over the vocabulary.
	Predict(ctx context.Context, ids []int, positions []int) (map[int][]float64, error)

	// Specials reports the boundary and mask tokens.
	Specials() Specials
}

// Wrap marks err as an oracle failure unless it already is one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOracle) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrOracle, err)
}

// ProbabilityAt reads the probability of id from the distribution predicted
// at position.
func ProbabilityAt(dists map[int][]float64, position, id int) (float64, error) {
	dist, ok := dists[position]
	if !ok {
		return 0, fmt.Errorf("%w: no distribution for position %d", ErrOracle, position)
	}
	if id < 0 || id >= len(dist) {
		return 0, fmt.Errorf("%w: token id %d outside vocabulary of %d", ErrOracle, id, len(dist))
	}
	return dist[id], nil
}
