package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/pkg/observability"
	"github.com/shamank/rpc-gateway/pkg/resilience"
)

// maxReconnectAttempts bounds how many upstream connections the bridge opens
// for one client, the first one included, before giving up and closing the
// user's connection.
const maxReconnectAttempts = 3

// pingTimeout bounds the liveness check sent to the client once reconnect
// attempts are exhausted.
const pingTimeout = 5 * time.Second

// Bridge is the WebSocket Bridge component: it upgrades a client connection
// and relays messages to and from the single upstream WS gateway, tagging
// the upstream dial with the destination chain the same way the Upstream
// Client tags its HTTP requests.
type Bridge struct {
	gatewayURL string
	backoff    resilience.BackoffStrategy
	logger     *zap.Logger
}

// NewBridge constructs a Bridge that dials gatewayURL (a ws:// or wss://
// URL) for every upstream connection.
func NewBridge(gatewayURL string, logger *zap.Logger) *Bridge {
	return &Bridge{
		gatewayURL: gatewayURL,
		backoff:    resilience.DefaultExponentialBackoff(),
		logger:     logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket, reads the client's first
// message as the subscription payload, then bridges it to the upstream node
// until either side closes or reconnection is exhausted.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chainTag := r.PathValue("chain")
	chain, err := domain.ParseChain(chainTag)
	if err != nil {
		http.Error(w, "unrecognized chain", http.StatusBadRequest)
		return
	}

	userConn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer userConn.CloseNow()

	ctx := r.Context()
	_, subInfo, err := userConn.Read(ctx)
	if err != nil {
		b.logger.Warn("failed to read subscription payload", zap.Error(err))
		return
	}

	observability.IncBridgeConnections()
	defer observability.DecBridgeConnections()

	b.runBridge(ctx, chain, userConn, subInfo)
}

// runBridge owns the reconnect loop against the upstream node. The
// client-reader goroutine is spawned exactly once here and lives across
// every reconnect attempt, writing to whichever node connection is current;
// nhooyr.io/websocket allows only one reader per connection at a time, so
// bridgeOnce must never spawn a second one over a live userConn. A node-side
// disconnect, clean or not, leads to a new dial until maxReconnectAttempts
// connections in all have been made; only the user closing their end, or the
// attempts running out, ends the bridge.
func (b *Bridge) runBridge(ctx context.Context, chain domain.Chain, userConn *websocket.Conn, subInfo []byte) {
	var current atomic.Pointer[websocket.Conn]
	userClosed := make(chan struct{})

	go func() {
		defer close(userClosed)
		for {
			typ, msg, err := userConn.Read(ctx)
			if err != nil {
				return
			}
			if nodeConn := current.Load(); nodeConn != nil {
				if err := nodeConn.Write(ctx, typ, msg); err != nil {
					b.logger.Debug("dropped client message, node connection unavailable", zap.Error(err))
				}
			}
		}
	}()

	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		select {
		case <-userClosed:
			observability.RecordBridgeReconnect(chain.String(), "user_closed")
			return
		default:
		}

		done, err := b.bridgeOnce(ctx, chain, userConn, subInfo, &current, userClosed)
		if done {
			observability.RecordBridgeReconnect(chain.String(), "user_closed")
			return
		}

		observability.RecordBridgeReconnect(chain.String(), "retry")
		b.logger.Warn("bridge connection to upstream node lost, reconnecting",
			zap.String("chain", chain.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-userClosed:
			observability.RecordBridgeReconnect(chain.String(), "user_closed")
			return
		case <-time.After(b.backoff.NextDelay(attempt)):
		}
	}

	observability.RecordBridgeReconnect(chain.String(), "exhausted")

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := userConn.Ping(pingCtx); err != nil {
		b.logger.Warn("client ping failed before closing, considering client dead", zap.Error(err))
	}
	_ = userConn.Close(websocket.StatusInternalError, "upstream unreachable")
}

// bridgeOnce dials the upstream node once, registers it as the current
// target for the shared client-reader goroutine, forwards subInfo, and
// relays node-to-client messages until either side closes the connection or
// an error occurs. done is true only when the user's connection closed, the
// signal to stop reconnecting entirely rather than retry upstream.
func (b *Bridge) bridgeOnce(ctx context.Context, chain domain.Chain, userConn *websocket.Conn, subInfo []byte, current *atomic.Pointer[websocket.Conn], userClosed <-chan struct{}) (done bool, err error) {
	nodeURL, err := dialURL(b.gatewayURL)
	if err != nil {
		return false, err
	}

	nodeConn, _, err := websocket.Dial(ctx, nodeURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Target-Service-Id": []string{chain.ID()}},
	})
	if err != nil {
		return false, fmt.Errorf("dial upstream node: %w", err)
	}
	defer nodeConn.CloseNow()

	if err := nodeConn.Write(ctx, websocket.MessageText, subInfo); err != nil {
		return false, fmt.Errorf("send subscription payload: %w", err)
	}

	current.Store(nodeConn)
	defer current.Store(nil)

	nodeDone := make(chan error, 1)
	go func() {
		for {
			typ, msg, err := nodeConn.Read(ctx)
			if err != nil {
				nodeDone <- err
				return
			}
			if err := userConn.Write(ctx, typ, msg); err != nil {
				nodeDone <- err
				return
			}
		}
	}()

	select {
	case <-userClosed:
		return true, nil
	case err := <-nodeDone:
		return false, err
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// dialURL converts an http(s) gateway URL into its ws(s) equivalent, or
// passes through a URL already given as ws(s).
func dialURL(gatewayURL string) (string, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
