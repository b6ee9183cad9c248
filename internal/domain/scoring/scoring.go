// Package scoring ranks candidate options with a masked language model.
package scoring

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
)

// Scorer orders options for the blank in sentence, best first.
type Scorer interface {
	Score(ctx context.Context, sentence string, options []string) ([]model.ScoredOption, error)
}

// Reduction folds per-position probabilities into a joint score.
// It must be monotone in each argument.
type Reduction func(probs []float64) float64

// ReduceProduct multiplies the probabilities. An empty slice scores 1.
func ReduceProduct(probs []float64) float64 {
	p := 1.0
	for _, v := range probs {
		p *= v
	}
	return p
}

// ReduceLogSum sums log probabilities. It orders like ReduceProduct but
// keeps long candidates apart where the product underflows to zero.
func ReduceLogSum(probs []float64) float64 {
	s := 0.0
	for _, v := range probs {
		s += math.Log(v)
	}
	return s
}

// ReductionByName maps "product" and "logsum" to their reductions.
func ReductionByName(name string) (Reduction, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "product":
		return ReduceProduct, true
	case "logsum":
		return ReduceLogSum, true
	}
	return nil, false
}

// Sort orders scored options by descending score, keeping input order on ties.
func Sort(scored []model.ScoredOption) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// boundedIDs wraps tokens in the start and end specials and maps them to ids.
func boundedIDs(ctx context.Context, o oracle.Oracle, tokens []string) ([]int, error) {
	sp := o.Specials()
	seq := make([]string, 0, len(tokens)+2)
	seq = append(seq, sp.Start)
	seq = append(seq, tokens...)
	seq = append(seq, sp.End)
	ids, err := o.IDs(ctx, seq)
	if err != nil {
		return nil, oracle.Wrap("ids", err)
	}
	return ids, nil
}
