package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/domain/models"
	"github.com/shamank/rpc-gateway/internal/domain/ports"
)

// Querier is the hand-written query surface this adapter exposes to
// services. It stands in for sqlc-generated code: sqlc codegen is not run
// as part of this build, so the methods below are written by hand against
// the same DBTX abstraction sqlc would target, preserving the
// Queries/WithTx(tx) split the transaction manager relies on.
type Querier interface {
	GetPlanByAPIKey(ctx context.Context, apiKey string) (*PlanRow, error)
	IncrementCallCounter(ctx context.Context, email string) error
	GetExpiredPlans(ctx context.Context, now time.Time) ([]ExpiredPlanRow, error)
	GetCustomerPlan(ctx context.Context, email string) (*ExpiredPlanRow, error)
	ResetExpiredPlans(ctx context.Context, now time.Time) error
	ApplyDowngrade(ctx context.Context, email string, plan domain.Plan) error
	DeductBalance(ctx context.Context, email string, cents int64) error
	DemoteToFree(ctx context.Context, email string) error
	SetDowngradeTo(ctx context.Context, email string, plan domain.Plan) error
	ClearDowngradeTo(ctx context.Context, email string) error
	UpgradePlan(ctx context.Context, email string, newPlan domain.Plan, deltaCents int64) error
	GetBalanceAndCalls(ctx context.Context, email string) (balanceCents int64, calls int64, err error)
	ListPayments(ctx context.Context, email string, limit, offset int) ([]models.Payment, error)
	CreditBalance(ctx context.Context, email string, cents int64) error
	ActivatePlan(ctx context.Context, email string, plan domain.Plan) error
	InsertPayment(ctx context.Context, p models.Payment) error
}

// PlanRow is the join result of ApiKey -> RpcPlan read by the Metering Gate.
type PlanRow struct {
	Email   string
	Calls   int64
	Plan    domain.Plan
	Expires time.Time
}

// ExpiredPlanRow is one row selected by the Subscription Engine's rollover
// read, joining Customer and RpcPlan.
type ExpiredPlanRow struct {
	Email        string
	BalanceCents int64
	Plan         domain.Plan
	DowngradeTo  *domain.Plan
}

// Queries implements Querier against any pgx-compatible executor (pool or
// in-flight transaction), exactly the shape sqlc generates.
type Queries struct {
	db ports.DBTX
}

// New constructs a Queries bound to the given executor.
func New(db ports.DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction, letting callers
// reuse the same method set inside a transaction boundary.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var _ Querier = (*Queries)(nil)

func (q *Queries) GetPlanByAPIKey(ctx context.Context, apiKey string) (*PlanRow, error) {
	row := q.db.QueryRow(ctx, `
		SELECT rp.email, rp.calls, rp.plan, rp.expires
		FROM api_keys ak
		JOIN rpc_plans rp ON rp.email = ak.email
		WHERE ak.key = $1
	`, apiKey)

	var r PlanRow
	var planStr string
	if err := row.Scan(&r.Email, &r.Calls, &planStr, &r.Expires); err != nil {
		return nil, err
	}
	plan, err := domain.ParsePlan(planStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt plan value %q: %w", planStr, err)
	}
	r.Plan = plan
	return &r, nil
}

func (q *Queries) IncrementCallCounter(ctx context.Context, email string) error {
	_, err := q.db.Exec(ctx, `UPDATE rpc_plans SET calls = calls + 1 WHERE email = $1`, email)
	return err
}

func (q *Queries) GetExpiredPlans(ctx context.Context, now time.Time) ([]ExpiredPlanRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT c.email, c.balance_cents, rp.plan, rp.downgrade_to
		FROM customers c
		JOIN rpc_plans rp ON rp.email = c.email
		WHERE $1 >= rp.expires
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiredPlanRow
	for rows.Next() {
		var r ExpiredPlanRow
		var planStr string
		var downgradeStr *string
		if err := rows.Scan(&r.Email, &r.BalanceCents, &planStr, &downgradeStr); err != nil {
			return nil, err
		}
		plan, err := domain.ParsePlan(planStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt plan value %q: %w", planStr, err)
		}
		r.Plan = plan
		if downgradeStr != nil {
			d, err := domain.ParsePlan(*downgradeStr)
			if err != nil {
				return nil, fmt.Errorf("corrupt downgrade_to value %q: %w", *downgradeStr, err)
			}
			r.DowngradeTo = &d
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) GetCustomerPlan(ctx context.Context, email string) (*ExpiredPlanRow, error) {
	row := q.db.QueryRow(ctx, `
		SELECT c.email, c.balance_cents, rp.plan, rp.downgrade_to
		FROM customers c
		JOIN rpc_plans rp ON rp.email = c.email
		WHERE c.email = $1
	`, email)

	var r ExpiredPlanRow
	var planStr string
	var downgradeStr *string
	if err := row.Scan(&r.Email, &r.BalanceCents, &planStr, &downgradeStr); err != nil {
		return nil, err
	}
	plan, err := domain.ParsePlan(planStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt plan value %q: %w", planStr, err)
	}
	r.Plan = plan
	if downgradeStr != nil {
		d, err := domain.ParsePlan(*downgradeStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt downgrade_to value %q: %w", *downgradeStr, err)
		}
		r.DowngradeTo = &d
	}
	return &r, nil
}

func (q *Queries) ResetExpiredPlans(ctx context.Context, now time.Time) error {
	_, err := q.db.Exec(ctx, `
		UPDATE rpc_plans
		SET calls = 0, created = $1, expires = $1 + INTERVAL '1 month'
		WHERE $1 >= expires
	`, now)
	return err
}

func (q *Queries) ApplyDowngrade(ctx context.Context, email string, plan domain.Plan) error {
	_, err := q.db.Exec(ctx, `
		UPDATE rpc_plans SET plan = $1, downgrade_to = NULL WHERE email = $2
	`, plan.String(), email)
	return err
}

func (q *Queries) DeductBalance(ctx context.Context, email string, cents int64) error {
	// The non-negative balance invariant is enforced by a DB CHECK
	// constraint; a violation surfaces here as a constraint-violation error
	// that callers convert to ErrInsufficientFunds at the boundary.
	_, err := q.db.Exec(ctx, `
		UPDATE customers SET balance_cents = balance_cents - $1 WHERE email = $2
	`, cents, email)
	return err
}

func (q *Queries) DemoteToFree(ctx context.Context, email string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE rpc_plans SET plan = $1 WHERE email = $2
	`, domain.PlanFree.String(), email)
	return err
}

func (q *Queries) SetDowngradeTo(ctx context.Context, email string, plan domain.Plan) error {
	_, err := q.db.Exec(ctx, `
		UPDATE rpc_plans SET downgrade_to = $1 WHERE email = $2
	`, plan.String(), email)
	return err
}

func (q *Queries) ClearDowngradeTo(ctx context.Context, email string) error {
	_, err := q.db.Exec(ctx, `UPDATE rpc_plans SET downgrade_to = NULL WHERE email = $1`, email)
	return err
}

func (q *Queries) UpgradePlan(ctx context.Context, email string, newPlan domain.Plan, deltaCents int64) error {
	// Optimistic, one round-trip: the CHECK constraint rejects underfunding.
	_, err := q.db.Exec(ctx, `
		UPDATE customers SET balance_cents = balance_cents - $1 WHERE email = $2
	`, deltaCents, email)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, `
		UPDATE rpc_plans SET plan = $1, calls = 0, downgrade_to = NULL WHERE email = $2
	`, newPlan.String(), email)
	return err
}

func (q *Queries) GetBalanceAndCalls(ctx context.Context, email string) (int64, int64, error) {
	row := q.db.QueryRow(ctx, `
		SELECT c.balance_cents, rp.calls
		FROM customers c
		JOIN rpc_plans rp ON rp.email = c.email
		WHERE c.email = $1
	`, email)
	var balance, calls int64
	if err := row.Scan(&balance, &calls); err != nil {
		return 0, 0, err
	}
	return balance, calls, nil
}

func (q *Queries) ListPayments(ctx context.Context, email string, limit, offset int) ([]models.Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT email, tx_hash, chain, asset, raw_amount, decimals, usd_cents, date
		FROM payments
		WHERE email = $1
		ORDER BY date DESC
		LIMIT $2 OFFSET $3
	`, email, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		var chainStr, assetStr string
		if err := rows.Scan(&p.Email, &p.TxHash, &chainStr, &assetStr, &p.RawAmount, &p.Decimals, &p.UsdCents, &p.Date); err != nil {
			return nil, err
		}
		chain, err := domain.ParseChain(chainStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt chain value %q: %w", chainStr, err)
		}
		asset, ok := domain.ParseAsset(assetStr)
		if !ok {
			return nil, fmt.Errorf("corrupt asset value %q", assetStr)
		}
		p.Chain = chain
		p.Asset = asset
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) CreditBalance(ctx context.Context, email string, cents int64) error {
	_, err := q.db.Exec(ctx, `UPDATE customers SET balance_cents = balance_cents + $1 WHERE email = $2`, cents, email)
	return err
}

func (q *Queries) ActivatePlan(ctx context.Context, email string, plan domain.Plan) error {
	_, err := q.db.Exec(ctx, `UPDATE rpc_plans SET plan = $1, calls = 0 WHERE email = $2`, plan.String(), email)
	return err
}

func (q *Queries) InsertPayment(ctx context.Context, p models.Payment) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO payments (email, tx_hash, chain, asset, raw_amount, decimals, usd_cents, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email, tx_hash) DO NOTHING
	`, p.Email, p.TxHash, p.Chain.String(), p.Asset.String(), p.RawAmount, p.Decimals, p.UsdCents, p.Date)
	return err
}
