// Package status provides in-memory sync status tracking for tenants.
package status

import "time"

// ErrorClass classifies a terminal sync failure so that polling clients
// can decide between "retry now", "fix configuration", and "check again".
type ErrorClass string

const (
	// ErrorClassThrottled means the directory service rejected the request
	// due to rate limits; retryable after a delay.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassForbidden means the directory service denied access;
	// not retryable without administrative action.
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassTimeout means the bounding deadline elapsed before the
	// sync finished; the sync may still complete in the background.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassTransient means a network or unexpected remote error;
	// retryable.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassCancelled means a user-requested cancellation was
	// observed between pages.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// Result is the terminal outcome of a completed sync.
type Result struct {
	// Count is the number of records processed during the sync
	Count int `json:"count"`

	// LastSync is the completion timestamp of the sync
	LastSync time.Time `json:"lastSync"`

	// Cancelled indicates the sync halted on a cancellation request
	Cancelled bool `json:"cancelled,omitempty"`
}

// Failure is the terminal outcome of a failed sync.
type Failure struct {
	// Class is the error classification
	Class ErrorClass `json:"classification"`

	// Message is a human-readable description of the failure
	Message string `json:"message"`

	// Hint is an optional remediation hint (e.g. consent to grant)
	Hint string `json:"hint,omitempty"`
}

// Entry represents the sync state of a single tenant. It is created when
// a sync is accepted, mutated on every page boundary, retained briefly
// after completion so a final poll can observe the terminal state, and
// then swept. Entries are never persisted; a process restart loses
// in-flight status but not durable sync state.
type Entry struct {
	// Active indicates a sync is currently running for the tenant
	Active bool `json:"active"`

	// Message provides human-readable progress information
	Message string `json:"message,omitempty"`

	// Progress is the sync progress from 0 to 100
	Progress int `json:"progress"`

	// StartedAt is when the sync was accepted
	StartedAt time.Time `json:"startedAt,omitzero"`

	// LastUpdateAt is the time of the last mutation, used for staleness
	// detection and sweeping
	LastUpdateAt time.Time `json:"lastUpdateAt,omitzero"`

	// CancelRequested is set by an external cancel call and checked
	// cooperatively between page fetches
	CancelRequested bool `json:"cancelRequested,omitempty"`

	// Result is the terminal outcome, populated once Active is false
	Result *Result `json:"result,omitempty"`

	// Error is the terminal failure, populated once Active is false
	Error *Failure `json:"error,omitempty"`
}

// Terminal reports whether the entry carries a terminal outcome.
func (e *Entry) Terminal() bool {
	return !e.Active && (e.Result != nil || e.Error != nil)
}
