// Package relay is the HTTP-facing Relay Router: it authenticates an
// incoming JSON-RPC call against the caller's plan and forwards it
// upstream, converting domain errors to status codes at the boundary.
package relay

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/services/metering"
)

const maxRelayBodyBytes = 1 << 20 // 1 MiB, generous for a JSON-RPC call

// Forwarder is the Upstream Client's surface this handler depends on.
type Forwarder interface {
	Forward(ctx context.Context, chain domain.Chain, body []byte) (*http.Response, error)
}

// Handler serves POST /rpc/{chain}/{apiKey}.
type Handler struct {
	gate      *metering.Gate
	forwarder Forwarder
	logger    *zap.Logger
}

// NewHandler constructs a relay Handler.
func NewHandler(gate *metering.Gate, forwarder Forwarder, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, forwarder: forwarder, logger: logger}
}

// ServeHTTP authorizes the call against the caller's plan, forwards the
// request body upstream tagged with the resolved chain, and streams the
// upstream's response back verbatim.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chainTag := r.PathValue("chain")
	apiKey := r.PathValue("apiKey")

	call, err := h.gate.Authorize(r.Context(), chainTag, apiKey)
	if err != nil {
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRelayBodyBytes))
	if err != nil {
		h.writeError(w, domain.ErrDestinationError(err))
		return
	}

	resp, err := h.forwarder.Forward(r.Context(), call.Chain, body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("failed to stream upstream response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	ge, ok := domain.AsGatewayError(err)
	if !ok {
		ge = domain.ErrRpcError(err)
	}
	h.logger.Warn("relay call rejected", zap.String("kind", ge.Kind.String()), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ge.StatusCode())
	_, _ = w.Write([]byte(`{"error":"` + ge.Message + `"}`))
}
