package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"lcwatch/internal/config"
	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

// Engine wires the configured tenants into sessions and implements
// service.Service. One HTTP transport is shared by every session.
type Engine struct {
	cfg      *config.Config
	creds    config.Credentials
	settings config.Settings
	registry *Registry
	sched    Scheduler
	hc       *http.Client
	log      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithScheduler overrides the scheduler (tests).
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) { e.sched = s }
}

// WithTransport overrides the shared HTTP client (tests).
func WithTransport(hc *http.Client) EngineOption {
	return func(e *Engine) { e.hc = hc }
}

// New loads credentials and settings and builds a session per configured
// tenant. Tenants without a stored token still get a session; they surface
// as auth failures until login runs.
func New(cfg *config.Config, log *zap.Logger, opts ...EngineOption) (*Engine, error) {
	creds, err := cfg.LoadCredentials()
	if err != nil {
		return nil, err
	}
	settings, err := cfg.LoadSettings()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:      cfg,
		creds:    creds,
		settings: settings,
		registry: NewRegistry(),
		sched:    TickerScheduler{},
		hc:       http.DefaultClient,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, t := range settings.Tenants {
		tenant := service.Tenant{ID: t.ID, Name: t.Name, Region: t.Region}
		if err := e.registry.Add(e.buildSession(tenant)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Registry exposes the session registry to the process lifecycle.
func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) buildSession(tenant service.Tenant) *Session {
	tok, err := e.cfg.LoadToken(tenant.ID)
	if err != nil {
		// An unreadable token file means this tenant starts
		// unauthenticated; the others are unaffected.
		e.log.Warn("unreadable stored token",
			zap.String("tenant_id", tenant.ID),
			zap.Error(err))
		tok = nil
	}
	tm := e.tokenManager(tenant.ID, tok)
	client := lcapi.NewClient(tm, tenant.ID, tenant.Region,
		lcapi.WithHTTPClient(e.hc),
		lcapi.WithLogger(e.log))
	return NewSession(tenant, client, Strategy(e.settings.Enrichment),
		WithSessionLogger(e.log))
}

func (e *Engine) tokenManager(tenantID string, tok *oauth2.Token) *lcapi.TokenManager {
	opts := []lcapi.TokenOption{
		lcapi.WithTokenHTTPClient(e.hc),
		lcapi.WithTokenLogger(e.log),
		lcapi.WithPersist(func(t *oauth2.Token) error {
			return e.cfg.SaveToken(tenantID, t)
		}),
	}
	if e.settings.ClientCredentials {
		opts = append(opts, lcapi.WithClientCredentials())
	}
	return lcapi.NewTokenManager(e.creds.ClientID, e.creds.ClientSecret, tok, opts...)
}

// Tenants implements service.Service.
func (e *Engine) Tenants() []service.Tenant {
	sessions := e.registry.All()
	out := make([]service.Tenant, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Tenant())
	}
	return out
}

// Accounts implements service.Service. The listing is served from the
// global API root before any tenant context exists, so the client is built
// without a tenant binding and reuses the bootstrap token.
func (e *Engine) Accounts(ctx context.Context) ([]service.Account, error) {
	tok, err := e.cfg.LoadToken("")
	if err != nil {
		return nil, err
	}
	tm := e.tokenManager("", tok)
	client := lcapi.NewClient(tm, "", config.DefaultRegion,
		lcapi.WithHTTPClient(e.hc),
		lcapi.WithLogger(e.log))

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]service.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, service.Account{ID: a.ID, Name: a.Name, Region: a.Region})
	}
	return out, nil
}

// Fetch implements service.Service.
func (e *Engine) Fetch(ctx context.Context, tenantID string) (service.Snapshot, error) {
	s, ok := e.registry.Lookup(tenantID)
	if !ok {
		return service.Snapshot{}, fmt.Errorf("unknown tenant: %s", tenantID)
	}
	return s.Fetch(ctx)
}

// Watch implements service.Service: initial fetch-all through the
// orchestrator, then a polling coordinator per tenant until ctx is
// cancelled. Tenants whose initial fetch failed still get a poller and are
// retried on schedule.
func (e *Engine) Watch(ctx context.Context, sink service.Sink, interval time.Duration) error {
	interval = config.ClampInterval(interval)

	orch := NewOrchestrator(e.log)
	statuses, err := orch.Setup(ctx, e.registry.All())
	if err != nil {
		return err
	}

	pollers := make([]*Poller, 0, len(statuses))
	for _, st := range statuses {
		session, ok := e.registry.Lookup(st.Tenant.ID)
		if !ok {
			continue
		}
		p := NewPoller(session, e.sched, sink, interval, e.log)
		if st.Snapshot != nil {
			p.Seed(*st.Snapshot)
			sink.Snapshot(*st.Snapshot)
		} else {
			sink.UpdateFailed(st.Tenant, st.Err)
		}
		p.Start()
		pollers = append(pollers, p)
	}

	<-ctx.Done()
	for _, p := range pollers {
		p.Stop()
	}
	return nil
}
