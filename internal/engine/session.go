package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

// Session binds one tenant to its token manager and request gateway. One
// poll cycle runs at a time per session; cycles of different sessions may
// run concurrently.
type Session struct {
	tenant   service.Tenant
	client   *lcapi.Client
	strategy Strategy
	log      *zap.Logger
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger.
func WithSessionLogger(log *zap.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithClock overrides the clock (tests).
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session for a tenant over an already-bound client.
func NewSession(tenant service.Tenant, client *lcapi.Client, strategy Strategy, opts ...SessionOption) *Session {
	s := &Session{
		tenant:   tenant,
		client:   client,
		strategy: strategy,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tenant returns the tenant this session is bound to.
func (s *Session) Tenant() service.Tenant { return s.tenant }

// Fetch runs one full cycle: paginated task fetch, enrichment, snapshot.
func (s *Session) Fetch(ctx context.Context) (service.Snapshot, error) {
	raw, calls, err := s.client.AssignedTasks(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}

	tasks, enrichCalls := enrichTasks(ctx, s.client, raw, s.strategy, s.log)
	snap := BuildSnapshot(s.tenant, tasks, s.now(), s.log)

	s.log.Info("poll cycle complete",
		zap.String("tenant_id", s.tenant.ID),
		zap.Int("tasks", snap.TotalTasks),
		zap.Int("overdue", snap.OverdueCount),
		zap.Int("api_calls", calls+enrichCalls))
	return snap, nil
}
