// Package sync implements the sign-in synchronization engine: the
// orchestrator that pulls audit records from the identity directory into
// local storage on behalf of many independent tenants.
//
// Guarantees:
//
//   - At most one sync runs per tenant at any time, enforced by atomic
//     admission on the status tracker.
//   - The stored cursor only advances after every record from the
//     invocation is durably persisted; any failure or cancellation
//     leaves the previous cursor intact, so a sync is always resumable
//     without data loss.
//   - Every fetch-and-store cycle is idempotent: re-fetching an
//     overlapping window re-upserts records as no-ops.
//   - A single invocation is bounded by MaxPages regardless of remote
//     backlog; hitting the cap is a normal partial sync.
//
// Cancellation is cooperative and checked between page fetches. The
// deadline controller (WithDeadline) bounds the externally observed
// latency without terminating in-flight work.
package sync
