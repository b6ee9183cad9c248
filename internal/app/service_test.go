package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/fitbert/internal/adapters/cache"
	service "github.com/okian/fitbert/internal/app"
	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/internal/domain/oracle/oracletest"
	"github.com/okian/fitbert/internal/domain/ranker"
	"github.com/okian/fitbert/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const ph = "***mask***"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func verbs() *oracletest.Fake {
	return oracletest.New("she", "likes", "to", "i", "drive", "a", "car", "coffee").
		WithWeights(map[string]float64{"run": 5, "walk": 3, "jump": 1, "caf\u00e9": 2})
}

func started(opts ...service.Option) (*service.Service, *oracletest.Fake) {
	fake := verbs()
	svc := service.New(append([]service.Option{
		service.WithOracle(fake),
		service.WithWorkerCount(2),
		service.WithQueueSize(8),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc, fake
}

func waitJob(ctx context.Context, svc *service.Service, id string) model.Job {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Job(ctx, id)
		if err == nil && job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := svc.Job(ctx, id)
	return job
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()

		Convey("When no oracle is configured", func() {
			err := service.New().Start(ctx)

			Convey("Then Start fails", func() {
				So(errors.Is(err, service.ErrNoOracle), ShouldBeTrue)
			})
		})

		Convey("When the reduction name is unknown", func() {
			err := service.New(service.WithOracle(verbs()), service.WithReduction("mean")).Start(ctx)

			Convey("Then Start fails", func() {
				So(errors.Is(err, service.ErrUnknownReduction), ShouldBeTrue)
			})
		})

		Convey("When operations run before Start", func() {
			svc := service.New(service.WithOracle(verbs()))
			_, err := svc.Rank(ctx, "She likes to "+ph+".", []string{"run"})

			Convey("Then they report ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When starting and stopping", func() {
			svc, _ := started()
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats reflect the lifecycle", func() {
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.GetStats()["jobsStored"], ShouldEqual, 0)
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Rank(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, fake := started(service.WithCache(cache.NewMemory(time.Minute)))
		defer svc.Stop()

		Convey("When ranking options", func() {
			res, err := svc.Rank(ctx, "She likes to "+ph+".", []string{"walk", "jump", "run"})

			Convey("Then they are ordered by probability", func() {
				So(err, ShouldBeNil)
				So(res.Options(), ShouldResemble, []string{"run", "walk", "jump"})
				So(res.Pathway, ShouldEqual, model.PathwaySingle)
			})

			Convey("Then a repeated request is served from the cache", func() {
				calls := fake.PredictCalls()
				again, err := svc.Rank(ctx, "She likes to "+ph+".", []string{"walk", "jump", "run"})
				So(err, ShouldBeNil)
				So(again.Options(), ShouldResemble, res.Options())
				So(fake.PredictCalls(), ShouldEqual, calls)
				So(svc.GetStats()["cacheEntries"], ShouldEqual, 1)
			})
		})

		Convey("When filling the blank", func() {
			filled, err := svc.Fitb(ctx, "She likes to "+ph+".", []string{"walk", "run"})

			Convey("Then the best option replaces the placeholder", func() {
				So(err, ShouldBeNil)
				So(filled, ShouldEqual, "She likes to run.")
			})
		})

		Convey("When guessing", func() {
			token, err := svc.Guess(ctx, "She likes to "+ph+".")

			Convey("Then the most probable vocabulary token is returned", func() {
				So(err, ShouldBeNil)
				So(token, ShouldEqual, "run")
			})
		})

		Convey("When options arrive in decomposed Unicode", func() {
			res, err := svc.Rank(ctx, "I drive to "+ph+".", []string{"cafe\u0301", "coffee"})

			Convey("Then the model sees the composed form but the caller's bytes come back", func() {
				So(err, ShouldBeNil)
				So(res.Options(), ShouldResemble, []string{"cafe\u0301", "coffee"})
			})
		})

		Convey("When two options differ only in Unicode composition", func() {
			calls := fake.PredictCalls()
			res, err := svc.Rank(ctx, "I drive to "+ph+".", []string{"caf\u00e9", "cafe\u0301"})

			Convey("Then both are ranked as distinct options", func() {
				So(err, ShouldBeNil)
				So(res.Trivial, ShouldBeFalse)
				So(res.Options(), ShouldHaveLength, 2)
				So(res.Options(), ShouldContain, "caf\u00e9")
				So(res.Options(), ShouldContain, "cafe\u0301")
				So(fake.PredictCalls(), ShouldBeGreaterThan, calls)
			})
		})

		Convey("When the sentence carries decomposed text", func() {
			filled, err := svc.Fitb(ctx, "Cafe\u0301 fans like to "+ph+".", []string{"walk", "run"})

			Convey("Then the filled sentence keeps the caller's bytes", func() {
				So(err, ShouldBeNil)
				So(filled, ShouldEqual, "Cafe\u0301 fans like to run.")
			})
		})

		Convey("When options differ only in spacing", func() {
			res, err := svc.Rank(ctx, "She likes to "+ph+".", []string{"run  fast", "run fast"})

			Convey("Then each caller string appears exactly once", func() {
				So(err, ShouldBeNil)
				So(res.Options(), ShouldHaveLength, 2)
				So(res.Options(), ShouldContain, "run  fast")
				So(res.Options(), ShouldContain, "run fast")
			})
		})

		Convey("When the request is invalid", func() {
			_, errEmpty := svc.Rank(ctx, "She likes to "+ph+".", nil)
			_, errMask := svc.Fitb(ctx, "She likes to run.", []string{"a", "b"})

			Convey("Then the engine errors surface unchanged", func() {
				So(errors.Is(errEmpty, ranker.ErrEmptyOptionSet), ShouldBeTrue)
				So(errors.Is(errMask, ranker.ErrPlaceholder), ShouldBeTrue)
			})
		})

		Convey("When the oracle fails", func() {
			fake.FailWith(errors.New("gpu on fire"))
			_, err := svc.Rank(ctx, "She likes to "+ph+"!", []string{"walk", "run"})

			Convey("Then the failure is an oracle error", func() {
				So(errors.Is(err, oracle.ErrOracle), ShouldBeTrue)
			})
		})
	})
}

func TestService_SharedCache(t *testing.T) {
	Convey("Given two services sharing one cache with different reductions", t, func() {
		ctx := context.Background()
		shared := cache.NewMemory(time.Minute)
		product, _ := started(service.WithCache(shared))
		defer product.Stop()
		logsum, fake := started(service.WithCache(shared), service.WithReduction("logsum"))
		defer logsum.Stop()

		options := []string{"drive a car", "drink coffee"}
		want, err := product.Rank(ctx, "I "+ph+".", options)
		So(err, ShouldBeNil)

		Convey("When the second service ranks the same request", func() {
			calls := fake.PredictCalls()
			got, err := logsum.Rank(ctx, "I "+ph+".", options)

			Convey("Then it scores with its own reduction instead of reading the other's entry", func() {
				So(err, ShouldBeNil)
				So(fake.PredictCalls(), ShouldBeGreaterThan, calls)
				So(got.Ranked[0].Score, ShouldBeLessThan, 0.0)
				So(want.Ranked[0].Score, ShouldBeGreaterThan, 0.0)
				So(shared.Len(), ShouldEqual, 2)
			})
		})
	})
}

func TestService_Jobs(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, fake := started()
		defer svc.Stop()

		Convey("When submitting a rank job", func() {
			id, err := svc.SubmitJob(ctx, model.JobModeRank,
				model.RankRequest{Sentence: "She likes to " + ph + ".", Options: []string{"jump", "run"}}, "")
			So(err, ShouldBeNil)
			job := waitJob(ctx, svc, id)

			Convey("Then the job completes with the ranking", func() {
				So(job.Status, ShouldEqual, model.JobDone)
				So(job.Result, ShouldNotBeNil)
				So(job.Result.Options(), ShouldResemble, []string{"run", "jump"})
			})
		})

		Convey("When submitting a fitb job", func() {
			id, err := svc.SubmitJob(ctx, model.JobModeFitb,
				model.RankRequest{Sentence: "She likes to " + ph + ".", Options: []string{"walk", "run"}}, "")
			So(err, ShouldBeNil)
			job := waitJob(ctx, svc, id)

			Convey("Then the job holds the filled sentence", func() {
				So(job.Status, ShouldEqual, model.JobDone)
				So(job.Filled, ShouldEqual, "She likes to run.")
			})
		})

		Convey("When the oracle fails during a job", func() {
			fake.FailWith(errors.New("timeout"))
			id, err := svc.SubmitJob(ctx, model.JobModeRank,
				model.RankRequest{Sentence: "She likes to " + ph + ".", Options: []string{"walk", "run"}}, "")
			So(err, ShouldBeNil)
			job := waitJob(ctx, svc, id)

			Convey("Then the job fails with the cause", func() {
				So(job.Status, ShouldEqual, model.JobFailed)
				So(job.Err, ShouldContainSubstring, "timeout")
			})
		})

		Convey("When the same idempotency key is reused", func() {
			req := model.RankRequest{Sentence: "She likes to " + ph + ".", Options: []string{"walk", "run"}}
			first, err1 := svc.SubmitJob(ctx, model.JobModeRank, req, "key-1")
			second, err2 := svc.SubmitJob(ctx, model.JobModeRank, req, "key-1")

			Convey("Then the first job id is returned", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldEqual, first)
			})
		})

		Convey("When the submission is invalid", func() {
			_, errMode := svc.SubmitJob(ctx, model.JobMode("shout"), model.RankRequest{Sentence: ph, Options: []string{"a"}}, "")
			_, errEmpty := svc.SubmitJob(ctx, model.JobModeRank, model.RankRequest{Sentence: ph}, "")
			_, errMask := svc.SubmitJob(ctx, model.JobModeRank, model.RankRequest{Sentence: "none", Options: []string{"a"}}, "")

			Convey("Then it is rejected before queueing", func() {
				So(errors.Is(errMode, service.ErrInvalidMode), ShouldBeTrue)
				So(errors.Is(errEmpty, ranker.ErrEmptyOptionSet), ShouldBeTrue)
				So(errors.Is(errMask, ranker.ErrPlaceholder), ShouldBeTrue)
			})
		})

		Convey("When looking up an unknown job", func() {
			_, err := svc.Job(ctx, "does-not-exist")

			Convey("Then ErrJobNotFound is returned", func() {
				So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
			})
		})
	})
}
