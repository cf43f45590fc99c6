package cron

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeRolloverEngine struct {
	err error
}

func (f *fakeRolloverEngine) ProcessCycleRollover(ctx context.Context) error {
	return f.err
}

func TestProcessRolloverRequiresAuth(t *testing.T) {
	h := NewBillingHandler(&fakeRolloverEngine{}, zap.NewNop(), "secret")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cron/rollover", nil)
	h.ProcessRollover(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProcessRolloverWithHeaderSecret(t *testing.T) {
	h := NewBillingHandler(&fakeRolloverEngine{}, zap.NewNop(), "secret")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cron/rollover", nil)
	r.Header.Set("X-Cron-Secret", "secret")
	h.ProcessRollover(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessRolloverRejectsGet(t *testing.T) {
	h := NewBillingHandler(&fakeRolloverEngine{}, zap.NewNop(), "secret")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/cron/rollover", nil)
	r.Header.Set("X-Cron-Secret", "secret")
	h.ProcessRollover(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProcessRolloverPropagatesEngineError(t *testing.T) {
	h := NewBillingHandler(&fakeRolloverEngine{err: errors.New("db down")}, zap.NewNop(), "secret")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/cron/rollover", nil)
	r.Header.Set("Authorization", "Bearer secret")
	h.ProcessRollover(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
