// Package relay adapts outbound RPC traffic: a pooled HTTP client that
// forwards relay calls to the upstream gateway, and a WebSocket bridge for
// subscription-style connections.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shamank/rpc-gateway/internal/domain"
	gatewayhttp "github.com/shamank/rpc-gateway/pkg/http"
)

// relayTimeout bounds one relay round trip to the upstream gateway.
const relayTimeout = 30 * time.Second

// gatewayClientConfig tunes the transport for a single upstream host the
// same way EPXClientConfig is tuned for its single-host EPX gateway: one
// destination, high concurrency.
func gatewayClientConfig() *gatewayhttp.HTTPClientConfig {
	cfg := gatewayhttp.EPXClientConfig()
	cfg.DisableCompression = false // the upstream gateway speaks JSON, not form data
	return cfg
}

// UpstreamClient forwards relay call bodies to the single configured
// upstream gateway, tagging each request with the destination chain via the
// target-service-id header.
type UpstreamClient struct {
	httpClient *http.Client
	gatewayURL string
}

// NewUpstreamClient builds an UpstreamClient pointed at gatewayURL.
func NewUpstreamClient(gatewayURL string) *UpstreamClient {
	return &UpstreamClient{
		httpClient: gatewayhttp.NewHTTPClient(gatewayClientConfig(), relayTimeout),
		gatewayURL: gatewayURL,
	}
}

// Forward posts body to the upstream gateway tagged for chain and returns
// the raw *http.Response. The response is never buffered here: callers are
// responsible for streaming resp.Body to their own caller and closing it.
func (c *UpstreamClient) Forward(ctx context.Context, chain domain.Chain, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrRpcError(fmt.Errorf("build upstream request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("target-service-id", chain.ID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ErrRpcError(fmt.Errorf("upstream request failed: %w", err))
	}
	return resp, nil
}
