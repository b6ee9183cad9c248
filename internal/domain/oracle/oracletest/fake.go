// Package oracletest provides a deterministic in-memory oracle for tests.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/okian/fitbert/internal/domain/oracle"
)

// UnknownToken is the id-0-after-specials fallback token.
const UnknownToken = "[UNK]"

// Fake is a context-free masked LM. The probability of a vocabulary entry at
// any masked position is its weight divided by the sum of all weights; entries
// without an explicit weight weigh 1, special tokens weigh 0.
type Fake struct {
	mu sync.Mutex

	specials oracle.Specials
	vocab    []string
	index    map[string]int
	weights  map[string]float64
	subwords map[string][]string
	failWith error

	tokenizeCalls int
	predictCalls  int
}

// New builds a fake whose vocabulary holds the BERT specials, [UNK] and words.
func New(words ...string) *Fake {
	f := &Fake{
		specials: oracle.DefaultSpecials(),
		index:    make(map[string]int),
		weights:  make(map[string]float64),
		subwords: make(map[string][]string),
	}
	for _, w := range []string{f.specials.Start, f.specials.End, f.specials.Mask, UnknownToken} {
		f.add(w)
	}
	for _, w := range words {
		f.add(strings.ToLower(w))
	}
	return f
}

func (f *Fake) add(token string) {
	if _, ok := f.index[token]; ok {
		return
	}
	f.index[token] = len(f.vocab)
	f.vocab = append(f.vocab, token)
}

// WithWeights sets per-token weights; tokens missing from the vocabulary are added.
func (f *Fake) WithWeights(weights map[string]float64) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, w := range weights {
		token = strings.ToLower(token)
		f.add(token)
		f.weights[token] = w
	}
	return f
}

// WithSubwords makes word tokenize into pieces instead of itself.
func (f *Fake) WithSubwords(word string, pieces ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subwords[strings.ToLower(word)] = pieces
	for _, p := range pieces {
		f.add(p)
	}
	return f
}

// FailWith makes every subsequent Predict call return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// PredictCalls reports how many times Predict ran.
func (f *Fake) PredictCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.predictCalls
}

// TokenizeCalls reports how many times Tokenize ran.
func (f *Fake) TokenizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenizeCalls
}

// Probability returns the probability the fake assigns to token at any mask.
func (f *Fake) Probability(token string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	dist := f.distribution()
	id, ok := f.index[strings.ToLower(token)]
	if !ok {
		id = f.index[UnknownToken]
	}
	return dist[id]
}

// Specials implements oracle.Oracle.
func (f *Fake) Specials() oracle.Specials { return f.specials }

// Tokenize lowercases text, splits it on whitespace and peels trailing
// punctuation into separate tokens.
func (f *Fake) Tokenize(_ context.Context, text string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenizeCalls++

	var out []string
	for _, field := range strings.Fields(text) {
		if field == f.specials.Mask {
			out = append(out, field)
			continue
		}
		word := strings.ToLower(field)
		var tail []string
		for word != "" {
			last, size := utf8.DecodeLastRuneInString(word)
			if !unicode.IsPunct(last) {
				break
			}
			tail = append([]string{string(last)}, tail...)
			word = word[:len(word)-size]
		}
		if word != "" {
			if pieces, ok := f.subwords[word]; ok {
				out = append(out, pieces...)
			} else {
				out = append(out, word)
			}
		}
		out = append(out, tail...)
	}
	return out, nil
}

// IDs implements oracle.Oracle. Unknown tokens map to [UNK].
func (f *Fake) IDs(_ context.Context, tokens []string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, len(tokens))
	for i, t := range tokens {
		id, ok := f.index[t]
		if !ok {
			id = f.index[UnknownToken]
		}
		ids[i] = id
	}
	return ids, nil
}

// Tokens implements oracle.Oracle.
func (f *Fake) Tokens(_ context.Context, ids []int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(f.vocab) {
			return nil, fmt.Errorf("fake: id %d out of range", id)
		}
		out[i] = f.vocab[id]
	}
	return out, nil
}

// Predict implements oracle.Oracle. Every requested position must hold the
// mask id and the sequence must be bounded by the start and end tokens.
func (f *Fake) Predict(ctx context.Context, ids []int, positions []int) (map[int][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	if len(ids) < 2 || ids[0] != f.index[f.specials.Start] || ids[len(ids)-1] != f.index[f.specials.End] {
		return nil, errors.New("fake: sequence is not bounded by start/end tokens")
	}
	dist := f.distribution()
	out := make(map[int][]float64, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(ids) {
			return nil, fmt.Errorf("fake: position %d out of range", p)
		}
		if ids[p] != f.index[f.specials.Mask] {
			return nil, fmt.Errorf("fake: position %d is not masked", p)
		}
		cp := make([]float64, len(dist))
		copy(cp, dist)
		out[p] = cp
	}
	return out, nil
}

// distribution must be called with f.mu held.
func (f *Fake) distribution() []float64 {
	dist := make([]float64, len(f.vocab))
	total := 0.0
	for i, token := range f.vocab {
		if token == f.specials.Start || token == f.specials.End || token == f.specials.Mask {
			continue
		}
		w, ok := f.weights[token]
		if !ok {
			w = 1
		}
		dist[i] = w
		total += w
	}
	if total == 0 {
		return dist
	}
	for i := range dist {
		dist[i] /= total
	}
	return dist
}

var _ oracle.Oracle = (*Fake)(nil)
