// Package service defines the backend-agnostic interface between the sync
// engine and its consumers (commands, presentation).
package service

import (
	"context"
	"time"
)

// Sink receives events from a running watch.
type Sink interface {
	// Snapshot is called with the result of every successful poll cycle.
	Snapshot(s Snapshot)

	// NewTask is called once per newly observed task id.
	NewTask(n Notification)

	// UpdateFailed is called when a poll cycle fails. The previous snapshot
	// is retained; the next cycle retries independently.
	UpdateFailed(t Tenant, err error)
}

// Service is the surface commands talk to. Commands never import the API
// client directly.
type Service interface {
	// Tenants returns the configured tenants.
	Tenants() []Tenant

	// Accounts lists tenant candidates accessible to the authenticated
	// user.
	Accounts(ctx context.Context) ([]Account, error)

	// Fetch runs one poll cycle for a tenant and returns its snapshot.
	Fetch(ctx context.Context, tenantID string) (Snapshot, error)

	// Watch performs the initial fetch for all tenants, then polls each on
	// the given interval, emitting events to sink. Blocks until ctx is
	// cancelled. Returns an error when setup fails outright or when every
	// tenant needs re-authorization.
	Watch(ctx context.Context, sink Sink, interval time.Duration) error
}
