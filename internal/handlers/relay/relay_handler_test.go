package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/services/metering"
)

// fakePlanQuerier stubs the one database.Querier method the gate actually
// calls synchronously; the rest panic since Authorize never reaches them in
// these tests.
type fakePlanQuerier struct {
	database.Querier
	row *database.PlanRow
	err error
}

func (f *fakePlanQuerier) GetPlanByAPIKey(ctx context.Context, apiKey string) (*database.PlanRow, error) {
	return f.row, f.err
}

func (f *fakePlanQuerier) IncrementCallCounter(ctx context.Context, email string) error {
	return nil
}

type noopRollover struct{}

func (noopRollover) ProcessCycleRollover(ctx context.Context) error { return nil }

type fakeForwarder struct {
	respBody []byte
	status   int
	err      error
	gotChain domain.Chain
}

func (f *fakeForwarder) Forward(ctx context.Context, chain domain.Chain, body []byte) (*http.Response, error) {
	f.gotChain = chain
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(string(f.respBody))),
	}, nil
}

func newTestRequest(chainTag, apiKey, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/rpc/"+chainTag+"/"+apiKey, bytes.NewReader([]byte(body)))
	r.SetPathValue("chain", chainTag)
	r.SetPathValue("apiKey", apiKey)
	return r
}

func TestRelayHandlerForwardsAuthorizedCall(t *testing.T) {
	querier := &fakePlanQuerier{row: &database.PlanRow{
		Email:   "a@example.com",
		Calls:   10,
		Plan:    domain.PlanTier1,
		Expires: time.Now().Add(24 * time.Hour),
	}}
	gate := metering.New(querier, noopRollover{}, zap.NewNop())
	forwarder := &fakeForwarder{respBody: []byte(`{"result":"0x1"}`), status: http.StatusOK}
	h := NewHandler(gate, forwarder, zap.NewNop())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newTestRequest("base", "key-123", `{"method":"eth_blockNumber"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"result":"0x1"}`, w.Body.String())
	assert.Equal(t, domain.ChainBase, forwarder.gotChain)
}

func TestRelayHandlerRejectsUnknownApiKey(t *testing.T) {
	querier := &fakePlanQuerier{err: pgx.ErrNoRows}
	gate := metering.New(querier, noopRollover{}, zap.NewNop())
	forwarder := &fakeForwarder{}
	h := NewHandler(gate, forwarder, zap.NewNop())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newTestRequest("base", "bad-key", `{}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRelayHandlerRejectsOverBudget(t *testing.T) {
	querier := &fakePlanQuerier{row: &database.PlanRow{
		Email:   "a@example.com",
		Calls:   domain.PlanFree.Budget() + 1,
		Plan:    domain.PlanFree,
		Expires: time.Now().Add(24 * time.Hour),
	}}
	gate := metering.New(querier, noopRollover{}, zap.NewNop())
	forwarder := &fakeForwarder{}
	h := NewHandler(gate, forwarder, zap.NewNop())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newTestRequest("base", "key-123", `{}`))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRelayHandlerRejectsUnknownChain(t *testing.T) {
	gate := metering.New(&fakePlanQuerier{}, noopRollover{}, zap.NewNop())
	forwarder := &fakeForwarder{}
	h := NewHandler(gate, forwarder, zap.NewNop())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newTestRequest("not-a-chain", "key-123", `{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
