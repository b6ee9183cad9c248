package service

import (
	"context"
	"time"

	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/metrics"
)

// instrumentedOracle records latency and failures of every oracle call.
type instrumentedOracle struct {
	next oracle.Oracle
}

func instrument(o oracle.Oracle) oracle.Oracle {
	if _, ok := o.(*instrumentedOracle); ok {
		return o
	}
	return &instrumentedOracle{next: o}
}

func observe(op string, start time.Time, err error) {
	metrics.RecordOracleCall(op, float64(time.Since(start).Microseconds())/1000, err != nil)
}

func (o *instrumentedOracle) Tokenize(ctx context.Context, text string) (tokens []string, err error) {
	defer func(start time.Time) { observe("tokenize", start, err) }(time.Now())
	return o.next.Tokenize(ctx, text)
}

func (o *instrumentedOracle) IDs(ctx context.Context, tokens []string) (ids []int, err error) {
	defer func(start time.Time) { observe("ids", start, err) }(time.Now())
	return o.next.IDs(ctx, tokens)
}

func (o *instrumentedOracle) Tokens(ctx context.Context, ids []int) (tokens []string, err error) {
	defer func(start time.Time) { observe("tokens", start, err) }(time.Now())
	return o.next.Tokens(ctx, ids)
}

func (o *instrumentedOracle) Predict(ctx context.Context, ids, positions []int) (dists map[int][]float64, err error) {
	defer func(start time.Time) { observe("predict", start, err) }(time.Now())
	return o.next.Predict(ctx, ids, positions)
}

func (o *instrumentedOracle) Specials() oracle.Specials {
	return o.next.Specials()
}
