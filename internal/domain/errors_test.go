package domain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindStatusCode(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindInvalidApiKey, http.StatusUnauthorized},
		{KindOutOfCredits, http.StatusTooManyRequests},
		{KindPlanExpired, http.StatusPaymentRequired},
		{KindTxNotFound, http.StatusNotFound},
		{KindTxNotFinalized, http.StatusConflict},
		{KindTxFailed, http.StatusUnprocessableEntity},
		{KindSenderWalletMismatch, http.StatusForbidden},
		{KindAbiDecodingError, http.StatusBadRequest},
		{KindIncorrectRecipient, http.StatusBadRequest},
		{KindUnsupportedToken, http.StatusBadRequest},
		{KindInsufficientFunds, http.StatusPaymentRequired},
		{KindInvalidNetwork, http.StatusBadRequest},
		{KindDestinationError, http.StatusBadRequest},
		{KindPlanTransitionNotAllowed, http.StatusForbidden},
		{KindDatabaseError, http.StatusInternalServerError},
		{KindRpcError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.StatusCode())
		})
	}
}

func TestAsGatewayError(t *testing.T) {
	wrapped := ErrTxNotFound(assert.AnError)

	ge, ok := AsGatewayError(wrapped)

	assert.True(t, ok)
	assert.Equal(t, KindTxNotFound, ge.Kind)
	assert.ErrorIs(t, wrapped, assert.AnError)
}
