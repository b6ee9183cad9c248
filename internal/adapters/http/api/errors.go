package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/fitbert/internal/app"
	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/internal/domain/ranker"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// NewKind tags kind with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with op and kind, keeping both matchable.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ranker.ErrEmptyOptionSet),
		errors.Is(err, ranker.ErrPlaceholder),
		errors.Is(err, ranker.ErrInvalidOption),
		errors.Is(err, service.ErrInvalidMode):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, oracle.ErrOracle):
		return http.StatusBadGateway, "oracle_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}
