// Package coordinator runs unattended background syncs for all tenants
// on a jittered polling interval.
//
// The coordinator itself holds no sync state: admission, freshness
// checks, and cursor management all live in the sync manager, so a
// background pass and an interactive trigger can never double-sync a
// tenant. Throttled tenants are retried with exponential backoff within
// a pass; every other failure waits for the next scheduled pass.
package coordinator
