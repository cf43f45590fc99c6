// Package ledger credits customer balances from verified payments and
// optionally activates a plan when the payment covers its cost outright.
package ledger

import (
	"context"
	"fmt"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"go.uber.org/zap"
)

// Ledger is the Account Ledger component (I): the single place balance
// mutations happen outside the subscription engine's rollover.
type Ledger struct {
	tx     database.TransactionManager
	logger *zap.Logger
}

// New constructs a Ledger bound to the given transaction manager.
func New(tx database.TransactionManager, logger *zap.Logger) *Ledger {
	return &Ledger{tx: tx, logger: logger}
}

// Credit adds cents to a customer's balance. If plan is non-nil and cents
// covers the plan's cost outright, the plan is activated (call counter
// reset) and only the remainder after its cost is added to the balance, in
// the same transaction.
func (l *Ledger) Credit(ctx context.Context, email string, cents int64, plan *domain.Plan) error {
	if cents <= 0 {
		return fmt.Errorf("ledger: credit amount must be positive, got %d", cents)
	}

	return l.tx.WithTx(ctx, func(q database.Querier) error {
		remainder := cents
		if plan != nil && cents >= plan.CostCents() {
			if err := q.ActivatePlan(ctx, email, *plan); err != nil {
				return fmt.Errorf("activate plan: %w", err)
			}
			remainder -= plan.CostCents()
			l.logger.Info("plan activated from payment",
				zap.String("email", email),
				zap.String("plan", plan.String()),
			)
		}

		if remainder == 0 {
			return nil
		}

		if err := q.CreditBalance(ctx, email, remainder); err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		return nil
	})
}
