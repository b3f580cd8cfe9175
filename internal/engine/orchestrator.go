package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"lcwatch/internal/lcapi"
	"lcwatch/internal/service"
)

// Outcome classifies one tenant's initial fetch.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeAuthFailure Outcome = "authFailure"
	OutcomeFailure     Outcome = "otherFailure"
)

// ErrReauthRequired is returned when every configured tenant failed
// authentication: no session is usable and the whole setup needs
// re-authorization.
var ErrReauthRequired = errors.New("re-authorization required for all tenants")

// ErrNoTenants is returned when setup is attempted with zero sessions.
var ErrNoTenants = errors.New("no tenants configured")

// TenantStatus is the per-tenant result of the initial fetch.
type TenantStatus struct {
	Tenant   service.Tenant
	Outcome  Outcome
	Snapshot *service.Snapshot
	Err      error
}

// Orchestrator performs the initial fetch across all tenant sessions and
// applies the all-vs-some authentication-failure policy.
type Orchestrator struct {
	log *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{log: log}
}

// Setup fetches once per session, sequentially, and classifies each
// outcome. Tenants that fail stay registered in a degraded state and are
// retried on the next scheduled poll. Only when every tenant fails
// authentication is ErrReauthRequired returned alongside the statuses.
func (o *Orchestrator) Setup(ctx context.Context, sessions []*Session) ([]TenantStatus, error) {
	if len(sessions) == 0 {
		return nil, ErrNoTenants
	}

	statuses := make([]TenantStatus, 0, len(sessions))
	authFailures := 0

	for _, s := range sessions {
		tenant := s.Tenant()
		snap, err := s.Fetch(ctx)
		if err != nil {
			outcome := classify(err)
			if outcome == OutcomeAuthFailure {
				authFailures++
			}
			o.log.Warn("initial fetch failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("outcome", string(outcome)),
				zap.Error(err))
			statuses = append(statuses, TenantStatus{Tenant: tenant, Outcome: outcome, Err: err})
			continue
		}
		statuses = append(statuses, TenantStatus{Tenant: tenant, Outcome: OutcomeSuccess, Snapshot: &snap})
	}

	if authFailures == len(sessions) {
		return statuses, ErrReauthRequired
	}
	return statuses, nil
}

func classify(err error) Outcome {
	if lcapi.IsAuth(err) {
		return OutcomeAuthFailure
	}
	return OutcomeFailure
}
