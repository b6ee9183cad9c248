package model

import "time"

// JobMode selects which engine operation an asynchronous job runs.
type JobMode string

const (
	// JobModeRank ranks the options.
	JobModeRank JobMode = "rank"
	// JobModeFitb fills the blank with the best option.
	JobModeFitb JobMode = "fitb"
)

// Valid reports whether m names a known mode.
func (m JobMode) Valid() bool {
	return m == JobModeRank || m == JobModeFitb
}

// JobStatus tracks the lifecycle of an asynchronous job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether no further transitions happen.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// RankRequest is the input of a rank or fitb operation.
type RankRequest struct {
	Sentence string   `json:"sentence"`
	Options  []string `json:"options"`
}

// Job is an asynchronous ranking request and its outcome.
type Job struct {
	ID        string
	Mode      JobMode
	Request   RankRequest
	Status    JobStatus
	Result    *Result // set for rank jobs once done
	Filled    string  // set for fitb jobs once done
	Err       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
