package ranker

import (
	"errors"

	"github.com/okian/fitbert/internal/domain/scoring"
)

var (
	// ErrEmptyOptionSet is returned when no options are supplied.
	ErrEmptyOptionSet = errors.New("option set is empty")
	// ErrPlaceholder is returned when the sentence does not hold exactly one placeholder.
	ErrPlaceholder = scoring.ErrPlaceholder
	// ErrInvalidOption is returned when a single-word option has no subwords.
	ErrInvalidOption = scoring.ErrInvalidOption
	// ErrInvalidSpan is returned by Mask for a span outside the string.
	ErrInvalidSpan = errors.New("span is outside the sentence")
)
