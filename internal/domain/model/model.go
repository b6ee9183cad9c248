// Package model contains domain models passed between layers.
package model

import "strings"

// Pathway selects the ranking strategy for one call.
type Pathway int

const (
	// PathwaySingle ranks by mask probability of each option's first subword.
	PathwaySingle Pathway = iota
	// PathwayMulti ranks by pseudo-likelihood of each filled sentence.
	PathwayMulti
)

// String returns the wire name of the pathway.
func (p Pathway) String() string {
	if p == PathwayMulti {
		return "multi"
	}
	return "single"
}

// SelectPathway returns PathwayMulti if any option splits into a whitespace
// token count other than one; the empty string counts as zero tokens.
func SelectPathway(options []string) Pathway {
	for _, o := range options {
		if len(strings.Fields(o)) != 1 {
			return PathwayMulti
		}
	}
	return PathwaySingle
}

// IsMulti reports whether options require the multi-token pathway.
func IsMulti(options []string) bool {
	return SelectPathway(options) == PathwayMulti
}

// ScoredOption pairs a candidate with its oracle score. Scores are
// non-negative and only comparable within one call.
type ScoredOption struct {
	Option string  `json:"option"`
	Score  float64 `json:"score"`
}

// Simplification is the result of stripping the words shared by every option.
type Simplification struct {
	Options    []string // options with the common affixes removed, may be empty strings
	Sentence   string   // sentence with the shared words moved around the placeholder
	StartWords string   // common leading words joined by single spaces
	EndWords   string   // common trailing words joined by single spaces
}

// Reattach rebuilds a full option from a simplified one. Empty parts are
// skipped so an option consumed by its affixes keeps single spacing.
func (s Simplification) Reattach(option string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.StartWords, strings.TrimSpace(option), s.EndWords} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Result is a full ranking outcome. Ranked holds reconstructed options,
// best first.
type Result struct {
	Ranked         []ScoredOption
	Pathway        Pathway
	Simplification Simplification
	// Trivial is set when a single distinct option was returned without
	// consulting the oracle.
	Trivial bool
}

// Options returns the ranked option strings in order.
func (r Result) Options() []string {
	out := make([]string, len(r.Ranked))
	for i, s := range r.Ranked {
		out[i] = s.Option
	}
	return out
}

// Best returns the top ranked option; ok is false when nothing was ranked.
func (r Result) Best() (string, bool) {
	if len(r.Ranked) == 0 {
		return "", false
	}
	return r.Ranked[0].Option, true
}
