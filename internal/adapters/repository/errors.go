package repository

import "errors"

// Sentinel kinds for job store errors.
var (
	ErrNotFound = errors.New("job not found")
	ErrExists   = errors.New("job already exists")
)
