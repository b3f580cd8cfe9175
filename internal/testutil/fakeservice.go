// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"lcwatch/internal/service"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu        sync.RWMutex
	tenants   []service.Tenant
	snapshots map[string]service.Snapshot // tenant id -> snapshot

	// Error injection for testing
	AccountsErr error
	FetchErr    map[string]error // tenant id -> error
	WatchErr    error

	// AccountsResult is returned by Accounts when AccountsErr is nil.
	AccountsResult []service.Account

	// WatchEvents are replayed to the sink before Watch blocks on ctx.
	WatchEvents []WatchEvent
}

// WatchEvent is one scripted event for Watch to emit.
type WatchEvent struct {
	Snapshot     *service.Snapshot
	Notification *service.Notification
	Failed       *service.Tenant
	FailedErr    error
}

// NewFakeService creates a new FakeService with no tenants.
func NewFakeService() *FakeService {
	return &FakeService{
		snapshots: make(map[string]service.Snapshot),
		FetchErr:  make(map[string]error),
	}
}

// AddTenant adds a tenant with an empty snapshot.
func (f *FakeService) AddTenant(id, name, region string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Tenant{ID: id, Name: name, Region: region}
	f.tenants = append(f.tenants, t)
	if _, ok := f.snapshots[id]; !ok {
		f.snapshots[id] = service.Snapshot{
			Tenant:        t,
			TasksByStatus: map[string]int{},
		}
	}
}

// SetSnapshot replaces the snapshot returned for a tenant.
func (f *FakeService) SetSnapshot(tenantID string, s service.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[tenantID] = s
}

// Tenants implements service.Service.
func (f *FakeService) Tenants() []service.Tenant {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Tenant, len(f.tenants))
	copy(out, f.tenants)
	return out
}

// Accounts implements service.Service.
func (f *FakeService) Accounts(ctx context.Context) ([]service.Account, error) {
	if f.AccountsErr != nil {
		return nil, f.AccountsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Account, len(f.AccountsResult))
	copy(out, f.AccountsResult)
	return out, nil
}

// Fetch implements service.Service.
func (f *FakeService) Fetch(ctx context.Context, tenantID string) (service.Snapshot, error) {
	if err, ok := f.FetchErr[tenantID]; ok && err != nil {
		return service.Snapshot{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.snapshots[tenantID]
	if !ok {
		return service.Snapshot{}, ErrNotFound
	}
	return s, nil
}

// Watch implements service.Service. Scripted events are replayed to the
// sink, then Watch returns WatchErr or blocks until ctx is cancelled.
func (f *FakeService) Watch(ctx context.Context, sink service.Sink, interval time.Duration) error {
	if f.WatchErr != nil {
		return f.WatchErr
	}
	for _, ev := range f.WatchEvents {
		switch {
		case ev.Snapshot != nil:
			sink.Snapshot(*ev.Snapshot)
		case ev.Notification != nil:
			sink.NewTask(*ev.Notification)
		case ev.Failed != nil:
			sink.UpdateFailed(*ev.Failed, ev.FailedErr)
		}
	}
	<-ctx.Done()
	return nil
}

// RecordingSink captures watch events for assertions.
type RecordingSink struct {
	mu            sync.Mutex
	Snapshots     []service.Snapshot
	Notifications []service.Notification
	Failures      []error
}

func (r *RecordingSink) Snapshot(s service.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshots = append(r.Snapshots, s)
}

func (r *RecordingSink) NewTask(n service.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, n)
}

func (r *RecordingSink) UpdateFailed(t service.Tenant, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, err)
}
