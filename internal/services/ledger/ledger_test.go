package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
)

type fakeQuerier struct {
	database.Querier
	activatedPlan       *domain.Plan
	activatedEmail      string
	creditedCents       int64
	creditBalanceCalled bool
}

func (f *fakeQuerier) ActivatePlan(ctx context.Context, email string, plan domain.Plan) error {
	f.activatedEmail = email
	f.activatedPlan = &plan
	return nil
}

func (f *fakeQuerier) CreditBalance(ctx context.Context, email string, cents int64) error {
	f.creditBalanceCalled = true
	f.creditedCents = cents
	return nil
}

type fakeTxManager struct {
	querier *fakeQuerier
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(database.Querier) error) error {
	return fn(f.querier)
}

func TestCreditActivatesPlanAndCreditsOnlyRemainder(t *testing.T) {
	querier := &fakeQuerier{}
	l := New(&fakeTxManager{querier: querier}, zap.NewNop())

	tier1 := domain.PlanTier1
	err := l.Credit(context.Background(), "a@example.com", tier1.CostCents(), &tier1)

	require.NoError(t, err)
	require.NotNil(t, querier.activatedPlan)
	assert.Equal(t, tier1, *querier.activatedPlan)
	assert.False(t, querier.creditBalanceCalled, "no remainder left to credit when payment exactly covers the plan cost")
}

func TestCreditActivatesPlanAndCreditsExcessOverCost(t *testing.T) {
	querier := &fakeQuerier{}
	l := New(&fakeTxManager{querier: querier}, zap.NewNop())

	tier1 := domain.PlanTier1
	paid := tier1.CostCents() + 500
	err := l.Credit(context.Background(), "a@example.com", paid, &tier1)

	require.NoError(t, err)
	require.NotNil(t, querier.activatedPlan)
	assert.True(t, querier.creditBalanceCalled)
	assert.Equal(t, int64(500), querier.creditedCents)
}

func TestCreditWithoutPlanCreditsFullAmount(t *testing.T) {
	querier := &fakeQuerier{}
	l := New(&fakeTxManager{querier: querier}, zap.NewNop())

	err := l.Credit(context.Background(), "a@example.com", 1_234, nil)

	require.NoError(t, err)
	assert.Nil(t, querier.activatedPlan)
	assert.True(t, querier.creditBalanceCalled)
	assert.Equal(t, int64(1_234), querier.creditedCents)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	querier := &fakeQuerier{}
	l := New(&fakeTxManager{querier: querier}, zap.NewNop())

	err := l.Credit(context.Background(), "a@example.com", 0, nil)

	require.Error(t, err)
}
