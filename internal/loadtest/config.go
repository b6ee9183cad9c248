// Package loadtest drives a running service with generated ranking jobs and
// verifies their outcomes.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL      string        // service base URL
	Requests     int           // number of jobs to submit
	Workers      int           // concurrent HTTP clients
	Timeout      time.Duration // per-request timeout
	PollInterval time.Duration // delay between job status polls
	Deadline     time.Duration // how long to wait for all jobs to finish
	Mask         string        // placeholder the service expects
	Verbose      bool
}

// Request is a generated job submission.
type Request struct {
	Sentence string   `json:"sentence"`
	Options  []string `json:"options"`
	Mode     string   `json:"mode"`
	Key      string   `json:"-"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted   int
	Accepted    int
	Rejected    int // 429 backpressure
	Failed      int // transport or unexpected status
	Completed   int
	JobFailures int
	Mismatches  int // finished job whose answer is not one of its options
	StartTime   time.Time
	Duration    time.Duration
}
