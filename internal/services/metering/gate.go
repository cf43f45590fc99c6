// Package metering implements the Metering Gate: the per-call admission
// check every relayed RPC request passes through before it reaches the
// upstream chain.
package metering

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/pkg/observability"
	"go.uber.org/zap"
)

// AuthorizedCall is what the gate hands back to the Relay Router once a call
// has cleared metering. The WebSocket Bridge does not call the gate.
type AuthorizedCall struct {
	Chain domain.Chain
	Email string
	Plan  domain.Plan
}

// RolloverTrigger lets the gate kick off a cycle rollover without importing
// the subscription engine's result types.
type RolloverTrigger interface {
	ProcessCycleRollover(ctx context.Context) error
}

// Gate is the Metering Gate component (C).
type Gate struct {
	queries  database.Querier
	rollover RolloverTrigger
	logger   *zap.Logger
}

// New constructs a Gate. queries is a one-off (non-transactional) Querier
// bound to the pool, used for the read-modify-increment pattern below.
func New(queries database.Querier, rollover RolloverTrigger, logger *zap.Logger) *Gate {
	return &Gate{queries: queries, rollover: rollover, logger: logger}
}

// Authorize runs the admission check for one relayed call against apiKey.
// chainTag is accepted here only to validate it matches a configured chain;
// the authoritative plan/budget live on the customer's RpcPlan row, not the
// chain being called.
func (g *Gate) Authorize(ctx context.Context, chainTag string, apiKey string) (*AuthorizedCall, error) {
	chain, err := domain.ParseChain(chainTag)
	if err != nil {
		return nil, domain.ErrDestinationError(err)
	}

	row, err := g.queries.GetPlanByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidApiKey(err)
		}
		return nil, domain.ErrDatabaseError(err)
	}

	calls := row.Calls
	if time.Now().After(row.Expires) {
		// Even if the plan is expired, let the call through: it downgrades
		// to Free on rollover if the customer can't pay, not before.
		calls = 0
		go g.triggerRollover(row.Email)
	}

	if calls > row.Plan.Budget() {
		observability.RecordMeteringDenial("out_of_credits")
		return nil, domain.ErrOutOfCredits()
	}

	go g.incrementCallCounter(row.Email)

	return &AuthorizedCall{Chain: chain, Email: row.Email, Plan: row.Plan}, nil
}

// triggerRollover runs in a detached goroutine with its own context and a
// copy of email: the caller's request context may already be gone by the
// time this runs.
func (g *Gate) triggerRollover(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := g.rollover.ProcessCycleRollover(ctx); err != nil {
		g.logger.Warn("cycle rollover trigger failed",
			zap.String("triggered_by", email),
			zap.Error(err),
		)
	}
}

func (g *Gate) incrementCallCounter(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.queries.IncrementCallCounter(ctx, email); err != nil {
		g.logger.Warn("failed to increment call counter",
			zap.String("email", email),
			zap.Error(err),
		)
	}
}
