package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	service "github.com/okian/fitbert/internal/app"
	"github.com/okian/fitbert/internal/config"
	"github.com/okian/fitbert/internal/domain/oracle/oracletest"
	"github.com/okian/fitbert/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func useFakeService(t *testing.T) {
	t.Helper()
	orig := newService
	newService = func(ctx context.Context, _ *config.Config, log logger.Logger) (*service.Service, io.Closer, error) {
		fake := oracletest.New("she", "likes", "to", "in", "the", "park").
			WithWeights(map[string]float64{"run": 5, "walk": 3, "jump": 1})
		svc := service.New(service.WithOracle(fake), service.WithLogger(log), service.WithWorkerCount(1))
		if err := svc.Start(ctx); err != nil {
			return nil, nil, err
		}
		return svc, io.NopCloser(nil), nil
	}
	t.Cleanup(func() { newService = orig })
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	options = nil
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	Convey("Given the CLI with a fake model", t, func() {
		useFakeService(t)

		Convey("rank prints options best first", func() {
			out, err := execute("rank", "-s", "She likes to ***mask*** in the park.", "-o", "walk", "-o", "jump", "-o", "run")
			So(err, ShouldBeNil)

			var got rankOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Pathway, ShouldEqual, "single")
			So(got.Ranked, ShouldHaveLength, 3)
			So(got.Ranked[0].Option, ShouldEqual, "run")
			So(got.Ranked[2].Option, ShouldEqual, "jump")
		})

		Convey("fitb prints the filled sentence", func() {
			out, err := execute("fitb", "-s", "She likes to ***mask*** in the park.", "-o", "walk", "-o", "run")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"sentence": "She likes to run in the park."`)
		})

		Convey("guess prints the top token", func() {
			out, err := execute("guess", "-s", "She likes to ***mask*** in the park.")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"token": "run"`)
		})

		Convey("a sentence without the placeholder fails", func() {
			_, err := execute("rank", "-s", "no blank here", "-o", "a", "-o", "b")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMultiCommand(t *testing.T) {
	Convey("Given the multi subcommand", t, func() {
		Convey("single-word options take the single pathway", func() {
			out, err := execute("multi", "-s", "I ***mask*** here.", "-o", "ran", "-o", "walked")
			So(err, ShouldBeNil)

			var got multiReport
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Multi, ShouldBeFalse)
			So(got.Pathway, ShouldEqual, "single")
		})

		Convey("common affixes are stripped before choosing the pathway", func() {
			out, err := execute("multi", "-s", "I drive ***mask***.", "-o", "a red car", "-o", "a blue car")
			So(err, ShouldBeNil)

			var got multiReport
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Multi, ShouldBeFalse)
			So(got.Options, ShouldResemble, []string{"red", "blue"})
			So(got.StartWords, ShouldEqual, "a")
			So(got.EndWords, ShouldEqual, "car")
		})

		Convey("multi-word differences take the multi pathway", func() {
			out, err := execute("multi", "-s", "I went ***mask***.", "-o", "to the bakery", "-o", "home")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"multi": true`)
		})
	})
}
