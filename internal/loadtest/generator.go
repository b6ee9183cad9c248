package loadtest

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const defaultMask = "***mask***"

var templates = []struct {
	sentence string
	options  []string
}{
	{"Why Bert, you're looking %s today!", []string{"buff", "handsome", "strong"}},
	{"She likes to %s in the park.", []string{"run", "walk", "jump", "read"}},
	{"I would like to drive %s.", []string{"a red car", "a blue car", "a green car"}},
	{"The cat sat on the %s.", []string{"mat", "chair", "roof", "keyboard"}},
	{"He went %s to buy some bread.", []string{"to the bakery", "to the store", "home"}},
	{"It was %s night.", []string{"a dark and stormy", "a quiet", "a cold"}},
}

// Generate returns n job requests drawn from the built-in templates. Every
// request carries a unique idempotency key.
func Generate(n int, mask string) []Request {
	if mask == "" {
		mask = defaultMask
	}
	out := make([]Request, n)
	for i := range out {
		t := templates[rand.Intn(len(templates))]
		options := append([]string(nil), t.options...)
		rand.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })

		mode := "rank"
		if rand.Intn(2) == 0 {
			mode = "fitb"
		}
		out[i] = Request{
			Sentence: strings.Replace(t.sentence, "%s", mask, 1),
			Options:  options,
			Mode:     mode,
			Key:      uuid.NewString(),
		}
	}
	return out
}
