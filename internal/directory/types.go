// Package directory provides a paginated client for the identity
// directory's sign-in audit endpoint.
package directory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/NickRomanek/SasWatch-sub002/internal/status"
)

// SignInRecord is one sign-in event as returned by the directory
// service. ID is assigned by the remote system and is globally unique
// within a tenant; it is the idempotency key for storage.
type SignInRecord struct {
	ID                  string        `json:"id"`
	CreatedDateTime     time.Time     `json:"createdDateTime"`
	UserPrincipalName   string        `json:"userPrincipalName"`
	UserDisplayName     string        `json:"userDisplayName"`
	AppDisplayName      string        `json:"appDisplayName"`
	IPAddress           string        `json:"ipAddress"`
	ClientAppUsed       string        `json:"clientAppUsed"`
	Status              SignInStatus  `json:"status"`
	RiskLevelAggregated string        `json:"riskLevelAggregated"`
	DeviceDetail        *DeviceDetail `json:"deviceDetail,omitempty"`

	// Raw is the record payload exactly as received, kept opaque for
	// storage alongside the structurally relevant fields above.
	Raw json.RawMessage `json:"-"`
}

// SignInStatus carries the outcome of the sign-in attempt.
type SignInStatus struct {
	ErrorCode     int    `json:"errorCode"`
	FailureReason string `json:"failureReason,omitempty"`
}

// DeviceDetail describes the device used for the sign-in.
type DeviceDetail struct {
	OperatingSystem string `json:"operatingSystem,omitempty"`
	Browser         string `json:"browser,omitempty"`
	IsCompliant     bool   `json:"isCompliant,omitempty"`
}

// Page is one page of sign-in records plus continuation state.
type Page struct {
	// Records are the sign-in events, ordered ascending by
	// CreatedDateTime. Deterministic ordering is required for correct
	// watermark advancement.
	Records []SignInRecord

	// NextLink is the continuation URL for the following page, empty
	// when the directory reported no further pages.
	NextLink string

	// HasMore indicates more records remain beyond this page.
	HasMore bool

	// NextSince is the CreatedDateTime of the last record in the page,
	// i.e. how far this page advanced the watermark. Zero when the page
	// is empty.
	NextSince time.Time
}

// Error is a classified failure from the directory service. The client
// never retries internally; retry and backoff policy belongs to the
// caller so that interactive syncs can surface "try again shortly"
// instead of blocking.
type Error struct {
	// Class is the error classification
	Class status.ErrorClass

	// StatusCode is the HTTP status that produced the error, 0 for
	// network-level failures
	StatusCode int

	// Message is a human-readable description
	Message string

	// Hint is an optional remediation hint for non-retryable failures
	Hint string

	// RetryAfter is the delay the directory asked for on throttling,
	// zero when not provided
	RetryAfter time.Duration

	// Err is the underlying error, if any
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directory: %s (HTTP %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("directory: %s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
