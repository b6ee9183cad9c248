package scoring

import "errors"

var (
	// ErrInvalidOption is returned when an option tokenizes to no subwords.
	ErrInvalidOption = errors.New("option has no subword tokens")
	// ErrPlaceholder is returned when the sentence does not hold exactly one placeholder.
	ErrPlaceholder = errors.New("sentence must contain exactly one placeholder")
)
