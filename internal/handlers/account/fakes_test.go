package account

import (
	"context"
	"time"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/domain/models"
	"github.com/shamank/rpc-gateway/internal/domain/ports"
)

// fakeIdentity resolves every request to the same identity, or to nothing
// when authenticated is false.
type fakeIdentity struct {
	identity      *ports.Identity
	authenticated bool
}

func (f *fakeIdentity) Identity(ctx context.Context) (*ports.Identity, bool) {
	return f.identity, f.authenticated
}

// fakeQuerier implements database.Querier with in-memory state sufficient
// for the account handlers under test; unused methods are unimplemented.
type fakeQuerier struct {
	balanceCents int64
	calls        int64
	payments     []models.Payment
	getErr       error
	customerPlan *database.ExpiredPlanRow
}

var _ database.Querier = (*fakeQuerier)(nil)

func (f *fakeQuerier) GetPlanByAPIKey(ctx context.Context, apiKey string) (*database.PlanRow, error) {
	panic("not implemented")
}
func (f *fakeQuerier) IncrementCallCounter(ctx context.Context, email string) error {
	panic("not implemented")
}
func (f *fakeQuerier) GetExpiredPlans(ctx context.Context, now time.Time) ([]database.ExpiredPlanRow, error) {
	panic("not implemented")
}
func (f *fakeQuerier) GetCustomerPlan(ctx context.Context, email string) (*database.ExpiredPlanRow, error) {
	return f.customerPlan, f.getErr
}
func (f *fakeQuerier) ResetExpiredPlans(ctx context.Context, now time.Time) error {
	panic("not implemented")
}
func (f *fakeQuerier) ApplyDowngrade(ctx context.Context, email string, plan domain.Plan) error {
	panic("not implemented")
}
func (f *fakeQuerier) DeductBalance(ctx context.Context, email string, cents int64) error {
	panic("not implemented")
}
func (f *fakeQuerier) DemoteToFree(ctx context.Context, email string) error {
	panic("not implemented")
}
func (f *fakeQuerier) SetDowngradeTo(ctx context.Context, email string, plan domain.Plan) error {
	return nil
}
func (f *fakeQuerier) ClearDowngradeTo(ctx context.Context, email string) error {
	panic("not implemented")
}
func (f *fakeQuerier) UpgradePlan(ctx context.Context, email string, newPlan domain.Plan, deltaCents int64) error {
	return nil
}
func (f *fakeQuerier) GetBalanceAndCalls(ctx context.Context, email string) (int64, int64, error) {
	return f.balanceCents, f.calls, f.getErr
}
func (f *fakeQuerier) ListPayments(ctx context.Context, email string, limit, offset int) ([]models.Payment, error) {
	return f.payments, f.getErr
}
func (f *fakeQuerier) CreditBalance(ctx context.Context, email string, cents int64) error {
	panic("not implemented")
}
func (f *fakeQuerier) ActivatePlan(ctx context.Context, email string, plan domain.Plan) error {
	panic("not implemented")
}
func (f *fakeQuerier) InsertPayment(ctx context.Context, p models.Payment) error {
	panic("not implemented")
}

// fakeTxManager runs WithTx against a single shared fakeQuerier, skipping
// real transaction semantics since nothing under test needs rollback.
type fakeTxManager struct {
	querier database.Querier
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(database.Querier) error) error {
	return fn(f.querier)
}
