package service

import (
	"errors"

	"github.com/okian/fitbert/internal/adapters/repository"
)

var (
	// ErrNotStarted is returned by operations called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoOracle is returned by Start when no oracle was configured.
	ErrNoOracle = errors.New("no oracle configured")
	// ErrBackpressure is returned by SubmitJob when the job queue is full.
	ErrBackpressure = errors.New("job queue is full")
	// ErrInvalidMode is returned by SubmitJob for an unknown job mode.
	ErrInvalidMode = errors.New("invalid job mode")
	// ErrUnknownReduction is returned by Start for an unknown reduction name.
	ErrUnknownReduction = errors.New("unknown reduction")
	// ErrJobNotFound is returned by Job for unknown or expired ids.
	ErrJobNotFound = repository.ErrNotFound
)
