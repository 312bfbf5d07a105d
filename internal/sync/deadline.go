package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/NickRomanek/SasWatch-sub002/internal/status"
)

// DefaultDeadline bounds an attended sync at the caller boundary.
const DefaultDeadline = 180 * time.Second

// WithDeadline races syncFn against a deadline; whichever settles first
// is the externally observed outcome.
//
// If the deadline fires first, the tenant's status entry is stamped with
// a timeout classification immediately, but the underlying sync is NOT
// cancelled: it keeps running so already-in-flight pages finish and
// persist, and it overwrites the entry with its real outcome when it
// eventually completes. The entry stays active while the task runs,
// which keeps the at-most-one admission guard sound — a later trigger
// cannot start a second task for the same tenant.
func WithDeadline(
	tracker *status.Tracker,
	tenantID uuid.UUID,
	deadline time.Duration,
	syncFn func() (*Result, error),
) (*Result, error) {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	type outcome struct {
		result *Result
		err    error
	}

	// Buffered so the background task never blocks on send after the
	// deadline path has returned.
	done := make(chan outcome, 1)
	go func() {
		result, err := syncFn()
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		timeoutErr := &Error{
			Class:   status.ErrorClassTimeout,
			Message: "sync deadline elapsed, sync continuing in background",
		}
		tracker.Update(tenantID, func(e *status.Entry) {
			// The task may have finished between the timer firing and
			// this update; never stamp timeout over a real outcome.
			if !e.Active {
				return
			}
			e.Error = timeoutErr.Failure()
			e.Message = timeoutErr.Message
		})
		return nil, timeoutErr
	}
}
