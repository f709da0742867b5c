// pkg/pipeline/errors.go
package pipeline

import "fmt"

// Category classifies pipeline failures for gate decisions
type Category int

const (
	// CategoryQuery indicates a read query could not run
	CategoryQuery Category = iota
	// CategorySubmission indicates the privacy API rejected or failed a chunk
	CategorySubmission
	// CategoryPersistence indicates a write or merge of results failed
	CategoryPersistence
	// CategoryLease indicates the per-date run lease could not be acquired
	CategoryLease
)

// String returns a string representation of the failure category
func (c Category) String() string {
	switch c {
	case CategoryQuery:
		return "Query"
	case CategorySubmission:
		return "Submission"
	case CategoryPersistence:
		return "Persistence"
	case CategoryLease:
		return "Lease"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Halts reports whether a failure of this category stops a run in the given
// mode. Unattended runs stop on every failure so they never partially apply
// unknown-outcome deletions. Operator-triggered runs continue past submission
// and persistence failures, but a failed query or lease still ends the run.
func (c Category) Halts(mode RunMode) bool {
	if mode == ModeScheduled {
		return true
	}
	switch c {
	case CategorySubmission, CategoryPersistence:
		return false
	default:
		return true
	}
}

// Failure is a categorized pipeline error
type Failure struct {
	Category Category
	Err      error
}

// Error implements the error interface
func (f *Failure) Error() string {
	return fmt.Sprintf("[%s] %v", f.Category, f.Err)
}

// Unwrap exposes the underlying error
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps an error with a failure category
func NewFailure(category Category, err error) *Failure {
	return &Failure{Category: category, Err: err}
}
