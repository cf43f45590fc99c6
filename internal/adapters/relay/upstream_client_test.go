package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shamank/rpc-gateway/internal/domain"
)

func TestUpstreamClientForward(t *testing.T) {
	var gotHeader string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("target-service-id")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewUpstreamClient(server.URL)
	resp, err := client.Forward(context.Background(), domain.ChainPolygon, []byte(`{"method":"eth_chainId"}`))

	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(respBody))
	assert.Equal(t, "polygon", gotHeader)
	assert.Equal(t, `{"method":"eth_chainId"}`, string(gotBody))
}

func TestUpstreamClientForwardBadURL(t *testing.T) {
	client := NewUpstreamClient("://bad-url")

	_, err := client.Forward(context.Background(), domain.ChainBase, []byte(`{}`))

	require.Error(t, err)
	ge, ok := domain.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindRpcError, ge.Kind)
}
