// Package repository stores asynchronous ranking jobs.
package repository

import (
	"context"

	"github.com/okian/fitbert/internal/domain/model"
)

// Store provides read/write access to jobs.
type Store interface {
	// Create stores a new job. Returns ErrExists if the id is taken.
	Create(ctx context.Context, job model.Job) error

	// Get returns a copy of the job. Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (model.Job, error)

	// Update applies fn to the stored job under the store lock.
	// Returns ErrNotFound for unknown ids.
	Update(ctx context.Context, id string, fn func(*model.Job)) error

	// Count returns the number of stored jobs.
	Count(ctx context.Context) int
}
