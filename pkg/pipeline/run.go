// pkg/pipeline/run.go
package pipeline

import (
	"fmt"
	"time"
)

// RunMode distinguishes operator-triggered from scheduled execution
type RunMode int

const (
	// ModeManual is an operator-triggered run; chunk failures do not stop it
	ModeManual RunMode = iota
	// ModeScheduled is an unattended run; it halts on the first chunk failure
	ModeScheduled
)

// String returns a string representation of the run mode
func (m RunMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeScheduled:
		return "scheduled"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// RunState tracks where a run is in its lifecycle
type RunState int

const (
	// StateFetching - loading pending deletions for the date
	StateFetching RunState = iota
	// StateEmpty - nothing pending, run finished with no submissions
	StateEmpty
	// StateThresholdExceeded - pending count blocked unattended execution
	StateThresholdExceeded
	// StateChunking - partitioning the pending set
	StateChunking
	// StateSubmitting - submitting chunks sequentially
	StateSubmitting
	// StateDone - run finished
	StateDone
	// StateAborted - run stopped before completing all chunks
	StateAborted
)

// String returns a string representation of the run state
func (s RunState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateEmpty:
		return "empty"
	case StateThresholdExceeded:
		return "threshold_exceeded"
	case StateChunking:
		return "chunking"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Notice levels surfaced to the operator.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is an operator-facing message about a run
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RunResult records the outcome of one execution gate run
type RunResult struct {
	Date            time.Time
	Mode            RunMode
	State           RunState
	Pending         int
	Chunks          int
	SubmittedChunks int
	FailedChunks    int
	Notices         []Notice
	Failure         *Failure
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// NewRunResult initializes a run result for a date
func NewRunResult(mode RunMode, date time.Time) *RunResult {
	return &RunResult{
		Date:      date,
		Mode:      mode,
		State:     StateFetching,
		Notices:   make([]Notice, 0),
		StartTime: time.Now(),
	}
}

// Complete marks the run finished in the given state and calculates duration
func (r *RunResult) Complete(state RunState) *RunResult {
	r.State = state
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	return r
}

// AddNotice records an operator-facing message
func (r *RunResult) AddNotice(level, format string, args ...interface{}) {
	r.Notices = append(r.Notices, Notice{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// Succeeded reports whether the run finished with no failed chunks
func (r *RunResult) Succeeded() bool {
	return (r.State == StateDone || r.State == StateEmpty) && r.FailedChunks == 0
}
