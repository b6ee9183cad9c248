package ranker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/okian/fitbert/internal/domain/dedupe"
	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/internal/domain/oracle/oracletest"
	"github.com/okian/fitbert/internal/domain/ranker"
	"github.com/okian/fitbert/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const ph = scoring.DefaultPlaceholder

func verbs() *oracletest.Fake {
	return oracletest.New("she", "likes", "to", "i", "want", "drive", "a", "car", "eat", "drink").
		WithWeights(map[string]float64{"run": 5, "walk": 3, "jump": 1, "red": 4, "blue": 2})
}

func TestEngineRank(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine over a deterministic oracle", t, func() {
		fake := verbs()
		e := ranker.New(fake)

		Convey("When ranking single words", func() {
			got, err := e.Rank(ctx, "She likes to "+ph+".", []string{"walk", "jump", "run"})

			Convey("Then the most probable word comes first", func() {
				So(err, ShouldBeNil)
				So(cmp.Diff([]string{"run", "walk", "jump"}, got), ShouldBeEmpty)
			})
		})

		Convey("When options share a leading word", func() {
			res, err := e.RankScored(ctx, "I want "+ph+".", []string{"to drink", "to eat"})

			Convey("Then the shared word is stripped before ranking and restored after", func() {
				So(err, ShouldBeNil)
				So(res.Pathway, ShouldEqual, model.PathwaySingle)
				So(res.Simplification.StartWords, ShouldEqual, "to")
				So(res.Simplification.Sentence, ShouldEqual, "I want to "+ph+".")
				So(cmp.Diff([]string{"to drink", "to eat"}, res.Options(), cmpopts.SortSlices(func(a, b string) bool { return a < b })), ShouldBeEmpty)
			})
		})

		Convey("When options share both ends", func() {
			res, err := e.RankScored(ctx, "I drive "+ph+".", []string{"a blue car", "a red car"})

			Convey("Then only the differing word is ranked on the single pathway", func() {
				So(err, ShouldBeNil)
				So(res.Pathway, ShouldEqual, model.PathwaySingle)
				So(res.Simplification.Options, ShouldResemble, []string{"blue", "red"})
				So(res.Options(), ShouldResemble, []string{"a red car", "a blue car"})
				So(fake.PredictCalls(), ShouldEqual, 1)
			})
		})

		Convey("When one option shrinks to nothing", func() {
			res, err := e.RankScored(ctx, "I want "+ph+".", []string{"to", "to eat"})

			Convey("Then the multi pathway ranks the full sentences", func() {
				So(err, ShouldBeNil)
				So(res.Pathway, ShouldEqual, model.PathwayMulti)
				So(res.Options(), ShouldHaveLength, 2)
				So(cmp.Diff([]string{"to", "to eat"}, res.Options(), cmpopts.SortSlices(func(a, b string) bool { return a < b })), ShouldBeEmpty)
			})
		})

		Convey("When options hold duplicates", func() {
			got, err := e.Rank(ctx, "She likes to "+ph+".", []string{"walk", "run", "walk", "run", "jump"})

			Convey("Then each distinct option appears once", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []string{"run", "walk", "jump"})
			})
		})

		Convey("When only one distinct option remains", func() {
			res, err := e.RankScored(ctx, "She likes to "+ph+".", []string{"run", "run"})

			Convey("Then it is returned without consulting the oracle", func() {
				So(err, ShouldBeNil)
				So(res.Trivial, ShouldBeTrue)
				So(res.Options(), ShouldResemble, []string{"run"})
				So(fake.PredictCalls(), ShouldEqual, 0)
				So(fake.TokenizeCalls(), ShouldEqual, 0)
			})
		})

		Convey("When the option set is empty", func() {
			_, err := e.Rank(ctx, "She likes to "+ph+".", nil)

			Convey("Then ErrEmptyOptionSet is returned before any oracle call", func() {
				So(errors.Is(err, ranker.ErrEmptyOptionSet), ShouldBeTrue)
				So(fake.TokenizeCalls(), ShouldEqual, 0)
			})
		})

		Convey("When the placeholder is missing or repeated", func() {
			_, err1 := e.Rank(ctx, "She likes to run.", []string{"run", "walk"})
			_, err2 := e.Rank(ctx, ph+" and "+ph, []string{"run", "walk"})
			_, err3 := e.Rank(ctx, "no blank", []string{"run"})

			Convey("Then ErrPlaceholder is returned", func() {
				So(errors.Is(err1, ranker.ErrPlaceholder), ShouldBeTrue)
				So(errors.Is(err2, ranker.ErrPlaceholder), ShouldBeTrue)
				So(errors.Is(err3, ranker.ErrPlaceholder), ShouldBeTrue)
				So(fake.PredictCalls(), ShouldEqual, 0)
			})
		})

		Convey("When the oracle fails", func() {
			boom := errors.New("model offline")
			fake.FailWith(boom)
			got, err := e.Rank(ctx, "She likes to "+ph+".", []string{"run", "walk"})

			Convey("Then nothing is returned and the cause is kept", func() {
				So(got, ShouldBeNil)
				So(errors.Is(err, oracle.ErrOracle), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
			})
		})
	})

	Convey("Given an option consumed entirely by the shared affixes", t, func() {
		e := ranker.New(verbs())
		got, err := e.Rank(ctx, "I drive "+ph+".", []string{"a car", "a red car"})

		Convey("Then it is rebuilt with single spacing", func() {
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got, ShouldContain, "a car")
			So(got, ShouldContain, "a red car")
			So(got, ShouldNotContain, "a  car")
		})
	})

	Convey("Given options the oracle scores equally", t, func() {
		e := ranker.New(oracletest.New("alpha", "beta", "gamma"))

		Convey("Then ties keep input order", func() {
			got, err := e.Rank(ctx, ph+" wins", []string{"beta", "gamma", "alpha"})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"beta", "gamma", "alpha"})
		})
	})
}

func TestEngineProperties(t *testing.T) {
	ctx := context.Background()
	sets := [][]string{
		{"run", "walk", "jump"},
		{"to eat", "to drink", "to eat"},
		{"a red car", "a blue car", "a car"},
		{"very big", "quite big", "big", "big"},
		{"in the morning", "at night"},
	}

	Convey("Given a range of option sets", t, func() {
		seq := ranker.New(verbs())
		par := ranker.New(verbs(), ranker.WithParallelism(4))
		byString := cmpopts.SortSlices(func(a, b string) bool { return a < b })

		for _, set := range sets {
			first, err := seq.Rank(ctx, "I like "+ph+" today.", set)
			So(err, ShouldBeNil)

			// permutation of the distinct inputs
			So(cmp.Diff(dedupe.Strings(set), first, byString), ShouldBeEmpty)

			// same output on a second call
			again, err := seq.Rank(ctx, "I like "+ph+" today.", set)
			So(err, ShouldBeNil)
			So(cmp.Diff(first, again), ShouldBeEmpty)

			// parallel fan-out does not change the order
			parallel, err := par.Rank(ctx, "I like "+ph+" today.", set)
			So(err, ShouldBeNil)
			So(cmp.Diff(first, parallel), ShouldBeEmpty)
		}
	})
}

func TestEngineFitb(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine over a deterministic oracle", t, func() {
		e := ranker.New(verbs())

		Convey("Then the best option fills the blank", func() {
			got, err := e.Fitb(ctx, "She likes to "+ph+".", []string{"jump", "run", "walk"})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "She likes to run.")
		})

		Convey("Then the filled group includes the shared words", func() {
			got, err := e.Fitb(ctx, "I drive "+ph+".", []string{"a blue car", "a red car"})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "I drive a red car.")
		})

		Convey("Then an empty option set is an error", func() {
			_, err := e.Fitb(ctx, "She likes to "+ph+".", []string{})
			So(errors.Is(err, ranker.ErrEmptyOptionSet), ShouldBeTrue)
		})
	})

	Convey("Given a custom placeholder", t, func() {
		e := ranker.New(verbs(), ranker.WithPlaceholder("[BLANK]"))
		So(e.Placeholder(), ShouldEqual, "[BLANK]")

		got, err := e.Fitb(ctx, "She likes to [BLANK].", []string{"walk", "run"})
		So(err, ShouldBeNil)
		So(got, ShouldEqual, "She likes to run.")
	})
}

func TestEngineGuess(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine over a deterministic oracle", t, func() {
		e := ranker.New(verbs())

		tok, err := e.Guess(ctx, "She likes to "+ph+".")
		So(err, ShouldBeNil)
		So(tok, ShouldEqual, "run")

		_, err = e.Guess(ctx, "She likes to run.")
		So(errors.Is(err, ranker.ErrPlaceholder), ShouldBeTrue)
	})
}

func TestEngineIsMulti(t *testing.T) {
	Convey("IsMulti follows the word count of the options", t, func() {
		e := ranker.New(verbs())
		So(e.IsMulti([]string{"run", "walk"}), ShouldBeFalse)
		So(e.IsMulti([]string{"run", "go home"}), ShouldBeTrue)
		So(e.IsMulti([]string{"run", ""}), ShouldBeTrue)
	})
}

func TestMask(t *testing.T) {
	Convey("Given a sentence and a span", t, func() {
		s := "She likes to run."

		Convey("When the span is valid", func() {
			masked, removed, err := ranker.Mask(s, 13, 16, ph)

			Convey("Then it is replaced by the placeholder", func() {
				So(err, ShouldBeNil)
				So(masked, ShouldEqual, "She likes to "+ph+".")
				So(removed, ShouldEqual, "run")
			})
		})

		Convey("When the span is empty", func() {
			masked, removed, err := ranker.Mask(s, 0, 0, ph)
			So(err, ShouldBeNil)
			So(masked, ShouldEqual, ph+s)
			So(removed, ShouldEqual, "")
		})

		Convey("When the span is out of range", func() {
			for _, span := range [][2]int{{-1, 2}, {5, 3}, {0, 100}} {
				_, _, err := ranker.Mask(s, span[0], span[1], ph)
				So(errors.Is(err, ranker.ErrInvalidSpan), ShouldBeTrue)
			}
		})
	})
}
