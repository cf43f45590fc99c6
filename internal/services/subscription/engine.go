// Package subscription implements the Subscription Engine: cycle rollover
// and the user-initiated upgrade/downgrade/cancel paths.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/pkg/observability"
	"go.uber.org/zap"
)

// RolloverResult summarizes one ProcessCycleRollover run.
type RolloverResult struct {
	Renewed int
	Demoted int
	Rows    int
}

// Engine is the Subscription Engine component (G).
type Engine struct {
	tx     database.TransactionManager
	logger *zap.Logger
}

// New constructs an Engine.
func New(tx database.TransactionManager, logger *zap.Logger) *Engine {
	return &Engine{tx: tx, logger: logger}
}

// ProcessCycleRollover resets calls and renews/downgrades/demotes every plan
// whose cycle has expired. Idempotent: a second run immediately after finds
// no rows, since `now() >= expires` no longer holds post-commit.
func (e *Engine) ProcessCycleRollover(ctx context.Context) error {
	result := &RolloverResult{}

	err := e.tx.WithTx(ctx, func(q database.Querier) error {
		now := time.Now()

		rows, err := q.GetExpiredPlans(ctx, now)
		if err != nil {
			return err
		}
		result.Rows = len(rows)

		if err := q.ResetExpiredPlans(ctx, now); err != nil {
			return err
		}

		for _, row := range rows {
			plan := row.Plan

			// Apply a pending downgrade/cancel only if it's strictly lower
			// than the current plan.
			if row.DowngradeTo != nil && plan > *row.DowngradeTo {
				if err := q.ApplyDowngrade(ctx, row.Email, *row.DowngradeTo); err != nil {
					return err
				}
				plan = *row.DowngradeTo
			}

			if plan == domain.PlanFree {
				continue
			}

			cost := plan.CostCents()
			if row.BalanceCents >= cost {
				if err := q.DeductBalance(ctx, row.Email, cost); err != nil {
					return err
				}
				observability.RecordSubscriptionRollover("renewed")
				result.Renewed++
			} else {
				e.logger.Warn("insufficient balance on rollover, demoting to free",
					zap.String("email", row.Email),
					zap.String("plan", plan.String()),
					zap.Int64("cost_cents", cost),
					zap.Int64("balance_cents", row.BalanceCents),
				)
				if err := q.DemoteToFree(ctx, row.Email); err != nil {
					return err
				}
				observability.RecordSubscriptionRollover("demoted_insolvent")
				result.Demoted++
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("cycle rollover processed",
		zap.Int("rows", result.Rows),
		zap.Int("renewed", result.Renewed),
		zap.Int("demoted", result.Demoted),
	)
	return nil
}

// Upgrade moves email to newPlan, deducting the full difference between the
// two plans' monthly costs.
// newPlan must be strictly greater than the current plan.
func (e *Engine) Upgrade(ctx context.Context, email string, newPlan domain.Plan) error {
	return e.tx.WithTx(ctx, func(q database.Querier) error {
		row, err := q.GetCustomerPlan(ctx, email)
		if err != nil {
			return err
		}
		if newPlan <= row.Plan {
			observability.RecordSubscriptionChange("upgrade", "rejected")
			return domain.ErrPlanTransitionNotAllowed("not an upgrade")
		}

		// Balance sufficiency is enforced by the DB's non-negative CHECK
		// constraint, not checked here: optimistic deduction, one round trip.
		delta := newPlan.CostCents() - row.Plan.CostCents()

		if err := q.UpgradePlan(ctx, email, newPlan, delta); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23514" {
				observability.RecordSubscriptionChange("upgrade", "insufficient_funds")
				return domain.ErrInsufficientFunds()
			}
			return err
		}

		observability.RecordSubscriptionChange("upgrade", "success")
		return nil
	})
}

// Downgrade schedules a downgrade to take effect on the next cycle rollover.
// newPlan must be strictly lower than the current plan, and the current
// plan must not already be Free.
func (e *Engine) Downgrade(ctx context.Context, email string, newPlan domain.Plan) error {
	return e.tx.WithTx(ctx, func(q database.Querier) error {
		row, err := q.GetCustomerPlan(ctx, email)
		if err != nil {
			return err
		}
		if newPlan >= row.Plan || row.Plan == domain.PlanFree {
			observability.RecordSubscriptionChange("downgrade", "rejected")
			return domain.ErrPlanTransitionNotAllowed("not a downgrade")
		}

		if err := q.SetDowngradeTo(ctx, email, newPlan); err != nil {
			return err
		}
		observability.RecordSubscriptionChange("downgrade", "success")
		return nil
	})
}

// Cancel schedules a downgrade to Free on the next cycle rollover.
func (e *Engine) Cancel(ctx context.Context, email string) error {
	return e.tx.WithTx(ctx, func(q database.Querier) error {
		if err := q.SetDowngradeTo(ctx, email, domain.PlanFree); err != nil {
			return err
		}
		observability.RecordSubscriptionChange("cancel", "success")
		return nil
	})
}
