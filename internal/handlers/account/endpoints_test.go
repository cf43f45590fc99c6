package account

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/domain/ports"
	"github.com/shamank/rpc-gateway/internal/services/subscription"
)

func newTestHandler(querier *fakeQuerier, identity *fakeIdentity) *Handler {
	engine := subscription.New(&fakeTxManager{querier: querier}, zap.NewNop())
	return NewHandler(nil, engine, querier, identity, zap.NewNop())
}

func TestBalances(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		q := &fakeQuerier{balanceCents: 4200, calls: 17}
		h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

		w := httptest.NewRecorder()
		h.Balances(w, httptest.NewRequest(http.MethodGet, "/api/balances", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp balancesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(4200), resp.Balance)
		assert.Equal(t, int64(17), resp.Calls)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := newTestHandler(&fakeQuerier{}, &fakeIdentity{authenticated: false})

		w := httptest.NewRecorder()
		h.Balances(w, httptest.NewRequest(http.MethodGet, "/api/balances", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCancel(t *testing.T) {
	q := &fakeQuerier{}
	h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

	w := httptest.NewRecorder()
	h.Cancel(w, httptest.NewRequest(http.MethodPost, "/api/cancel", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpgrade(t *testing.T) {
	t.Run("valid upgrade", func(t *testing.T) {
		q := &fakeQuerier{customerPlan: &database.ExpiredPlanRow{Email: "a@example.com", Plan: domain.PlanFree, BalanceCents: 10_000}}
		h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

		body, _ := json.Marshal(planRequest{Plan: "tier1"})
		w := httptest.NewRecorder()
		h.Upgrade(w, httptest.NewRequest(http.MethodPost, "/api/upgrade", bytes.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unrecognized plan", func(t *testing.T) {
		q := &fakeQuerier{customerPlan: &database.ExpiredPlanRow{Email: "a@example.com", Plan: domain.PlanFree}}
		h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

		body, _ := json.Marshal(planRequest{Plan: "platinum"})
		w := httptest.NewRecorder()
		h.Upgrade(w, httptest.NewRequest(http.MethodPost, "/api/upgrade", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not an upgrade", func(t *testing.T) {
		q := &fakeQuerier{customerPlan: &database.ExpiredPlanRow{Email: "a@example.com", Plan: domain.PlanTier2}}
		h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

		body, _ := json.Marshal(planRequest{Plan: "tier1"})
		w := httptest.NewRecorder()
		h.Upgrade(w, httptest.NewRequest(http.MethodPost, "/api/upgrade", bytes.NewReader(body)))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDowngrade(t *testing.T) {
	q := &fakeQuerier{customerPlan: &database.ExpiredPlanRow{Email: "a@example.com", Plan: domain.PlanTier3}}
	h := newTestHandler(q, &fakeIdentity{identity: &ports.Identity{Email: "a@example.com"}, authenticated: true})

	body, _ := json.Marshal(planRequest{Plan: "tier1"})
	w := httptest.NewRecorder()
	h.Downgrade(w, httptest.NewRequest(http.MethodPost, "/api/downgrade", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
}
