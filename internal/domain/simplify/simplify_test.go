package simplify_test

import (
	"testing"

	"github.com/okian/fitbert/internal/domain/simplify"
	. "github.com/smartystreets/goconvey/convey"
)

const ph = "***mask***"

func TestOptions(t *testing.T) {
	Convey("Given options sharing a leading word", t, func() {
		s := simplify.Options("I want "+ph+".", ph, []string{"to eat", "to drink"})

		Convey("Then the word moves into the sentence", func() {
			So(s.StartWords, ShouldEqual, "to")
			So(s.EndWords, ShouldEqual, "")
			So(s.Options, ShouldResemble, []string{"eat", "drink"})
			So(s.Sentence, ShouldEqual, "I want to "+ph+".")
		})
	})

	Convey("Given options sharing both ends", t, func() {
		s := simplify.Options("I drive "+ph+" to work.", ph, []string{"a red car", "a blue car"})

		Convey("Then both affixes are stripped", func() {
			So(s.StartWords, ShouldEqual, "a")
			So(s.EndWords, ShouldEqual, "car")
			So(s.Options, ShouldResemble, []string{"red", "blue"})
			So(s.Sentence, ShouldEqual, "I drive a "+ph+" car to work.")
		})

		Convey("And reattaching restores the originals", func() {
			So(s.Reattach(s.Options[0]), ShouldEqual, "a red car")
			So(s.Reattach(s.Options[1]), ShouldEqual, "a blue car")
		})
	})

	Convey("Given options sharing nothing", t, func() {
		s := simplify.Options("She likes to "+ph+".", ph, []string{"run", "walk", "jump"})

		Convey("Then everything is left as is", func() {
			So(s.StartWords, ShouldEqual, "")
			So(s.EndWords, ShouldEqual, "")
			So(s.Options, ShouldResemble, []string{"run", "walk", "jump"})
			So(s.Sentence, ShouldEqual, "She likes to "+ph+".")
		})
	})

	Convey("Given one option that is a prefix of another", t, func() {
		s := simplify.Options(ph+" now", ph, []string{"to", "to eat"})

		Convey("Then the shorter one simplifies to the empty string", func() {
			So(s.StartWords, ShouldEqual, "to")
			So(s.EndWords, ShouldEqual, "")
			So(s.Options, ShouldResemble, []string{"", "eat"})
			So(s.Sentence, ShouldEqual, "to "+ph+" now")
		})
	})

	Convey("Given options sharing only a trailing word", t, func() {
		s := simplify.Options("It is "+ph+".", ph, []string{"very big", "quite big"})

		Convey("Then only the suffix moves", func() {
			So(s.StartWords, ShouldEqual, "")
			So(s.EndWords, ShouldEqual, "big")
			So(s.Options, ShouldResemble, []string{"very", "quite"})
			So(s.Sentence, ShouldEqual, "It is "+ph+" big.")
		})
	})

	Convey("Given a suffix that would overlap the prefix", t, func() {
		s := simplify.Options(ph, ph, []string{"a b", "a b a b"})

		Convey("Then the suffix is taken from the remainder only", func() {
			So(s.StartWords, ShouldEqual, "a b")
			So(s.EndWords, ShouldEqual, "")
			So(s.Options, ShouldResemble, []string{"", "a b"})
		})
	})

	Convey("Given options with irregular whitespace", t, func() {
		s := simplify.Options(ph, ph, []string{"  the  cat ", "the dog"})

		Convey("Then words are compared after splitting", func() {
			So(s.StartWords, ShouldEqual, "the")
			So(s.Options, ShouldResemble, []string{"cat", "dog"})
			So(s.Sentence, ShouldEqual, "the "+ph)
		})
	})

	Convey("Given options that differ only in case", t, func() {
		s := simplify.Options(ph, ph, []string{"The cat", "the cat"})

		Convey("Then nothing is shared at the start", func() {
			So(s.StartWords, ShouldEqual, "")
			So(s.EndWords, ShouldEqual, "cat")
			So(s.Options, ShouldResemble, []string{"The", "the"})
		})
	})

	Convey("Given an empty option set", t, func() {
		s := simplify.Options("x "+ph, ph, nil)

		Convey("Then the sentence is unchanged", func() {
			So(s.Options, ShouldBeEmpty)
			So(s.Sentence, ShouldEqual, "x "+ph)
		})
	})
}

func TestOptionsRoundTrip(t *testing.T) {
	sets := [][]string{
		{"to eat", "to drink"},
		{"a red car", "a blue car"},
		{"very big", "quite big", "big"},
		{"in the morning", "in the evening", "at night"},
		{"one", "one two", "one two three"},
	}

	Convey("Every option is rebuilt by reattaching the shared words", t, func() {
		for _, set := range sets {
			s := simplify.Options(ph, ph, set)
			for i, o := range set {
				So(s.Reattach(s.Options[i]), ShouldEqual, o)
			}
		}
	})
}
