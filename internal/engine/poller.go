package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"lcwatch/internal/config"
	"lcwatch/internal/service"
)

// fetcher is the slice of Session the poller needs.
type fetcher interface {
	Tenant() service.Tenant
	Fetch(ctx context.Context) (service.Snapshot, error)
}

// Poller runs the periodic refresh for one tenant session, diffing each new
// snapshot's task ids against the previous one and emitting a notification
// per newly observed task.
type Poller struct {
	session  fetcher
	sched    Scheduler
	sink     service.Sink
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	prev   *service.Snapshot
	cancel CancelFunc
}

// NewPoller creates a polling coordinator. The interval is clamped to the
// allowed range.
func NewPoller(session fetcher, sched Scheduler, sink service.Sink, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		session:  session,
		sched:    sched,
		sink:     sink,
		interval: config.ClampInterval(interval),
		log:      log,
	}
}

// Seed installs an initial snapshot (from the orchestrator's setup fetch)
// so the first scheduled cycle diffs against it.
func (p *Poller) Seed(s service.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prev = &s
}

// Latest returns the most recent snapshot, or nil before the first
// successful cycle.
func (p *Poller) Latest() *service.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prev
}

// Start schedules periodic polling. Idempotent Stop tears it down.
func (p *Poller) Start() {
	p.cancel = p.sched.Schedule(p.interval, p.Poll)
}

// Stop cancels the schedule; an in-flight cycle is interrupted via its
// context.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Poll runs one cycle. On failure the previous snapshot is retained so
// consumers keep last-known-good data, and the sink is told the update
// failed; the next scheduled cycle retries independently.
func (p *Poller) Poll(ctx context.Context) {
	tenant := p.session.Tenant()

	snap, err := p.session.Fetch(ctx)
	if err != nil {
		p.log.Warn("update failed",
			zap.String("tenant_id", tenant.ID),
			zap.Error(err))
		p.sink.UpdateFailed(tenant, err)
		return
	}

	p.mu.Lock()
	prev := p.prev
	p.prev = &snap
	p.mu.Unlock()

	p.sink.Snapshot(snap)

	if prev == nil {
		return
	}
	for _, t := range newTasks(*prev, snap) {
		p.sink.NewTask(service.Notification{
			TenantID:    tenant.ID,
			TenantName:  tenant.Name,
			TaskID:      t.ID,
			TaskName:    t.Name,
			Status:      t.Status,
			DueBy:       t.DueBy,
			ProjectName: t.ProjectName,
			TaskType:    t.TaskType,
			WordCount:   t.WordCount,
		})
	}
}
