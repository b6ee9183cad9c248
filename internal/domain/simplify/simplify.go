// Package simplify strips the whitespace-delimited words every option shares
// at its start and end, moving them into the sentence around the placeholder.
package simplify

import (
	"strings"

	"github.com/okian/fitbert/internal/domain/model"
)

// Options computes the common-affix simplification of options.
//
// The prefix is the longest run of leading words on which every option
// agrees; the suffix is then taken the same way from the end of what each
// option has left, so the two never overlap.
func Options(sentence, placeholder string, options []string) model.Simplification {
	split := make([][]string, len(options))
	for i, o := range options {
		split[i] = strings.Fields(o)
	}

	start := commonRun(split, func(words []string, i int) string { return words[i] })

	rest := make([][]string, len(split))
	for i, words := range split {
		rest[i] = words[len(start):]
	}
	end := commonRun(rest, func(words []string, i int) string { return words[len(words)-1-i] })
	reverse(end)

	simplified := make([]string, len(split))
	for i, words := range split {
		simplified[i] = strings.TrimSpace(strings.Join(words[len(start):len(words)-len(end)], " "))
	}

	startWords := strings.Join(start, " ")
	endWords := strings.Join(end, " ")
	sub := strings.TrimSpace(startWords + " " + placeholder + " " + endWords)

	return model.Simplification{
		Options:    simplified,
		Sentence:   strings.Replace(sentence, placeholder, sub, 1),
		StartWords: startWords,
		EndWords:   endWords,
	}
}

// commonRun walks every word list in lock step, reading the i-th word through
// at, and stops at the first position where a list runs out or the words
// disagree.
func commonRun(lists [][]string, at func(words []string, i int) string) []string {
	if len(lists) == 0 {
		return nil
	}
	shortest := len(lists[0])
	for _, words := range lists[1:] {
		shortest = min(shortest, len(words))
	}

	var run []string
	for i := 0; i < shortest; i++ {
		w := at(lists[0], i)
		for _, words := range lists[1:] {
			if at(words, i) != w {
				return run
			}
		}
		run = append(run, w)
	}
	return run
}

func reverse(words []string) {
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
}
