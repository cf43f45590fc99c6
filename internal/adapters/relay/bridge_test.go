package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/shamank/rpc-gateway/pkg/resilience"
)

func TestDialURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"http becomes ws", "http://gateway.example.com/ws", "ws://gateway.example.com/ws"},
		{"https becomes wss", "https://gateway.example.com/ws", "wss://gateway.example.com/ws"},
		{"already ws is passed through", "ws://gateway.example.com/ws", "ws://gateway.example.com/ws"},
		{"already wss is passed through", "wss://gateway.example.com/ws", "wss://gateway.example.com/ws"},
		{"scheme is case-insensitive", "HTTPS://gateway.example.com/ws", "wss://gateway.example.com/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dialURL(tt.in)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialURLRejectsMalformed(t *testing.T) {
	_, err := dialURL("://not-a-url")

	require.Error(t, err)
}

// instantBackoff skips the reconnect delay so reconnect tests run fast.
type instantBackoff struct{}

func (instantBackoff) NextDelay(attempt int) time.Duration { return time.Millisecond }

var _ resilience.BackoffStrategy = instantBackoff{}

// newBridgeServer wraps a Bridge behind an httptest server at /ws/{chain}.
func newBridgeServer(t *testing.T, gatewayURL string) *httptest.Server {
	t.Helper()
	b := &Bridge{gatewayURL: gatewayURL, backoff: instantBackoff{}, logger: zap.NewNop()}
	mux := http.NewServeMux()
	mux.Handle("/ws/{chain}", b)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestBridgeSurvivesUpstreamReconnect forces the first upstream node
// connection to drop right after accepting a message and verifies a second
// round trip still succeeds on the reconnected node, through the same user
// connection and the same client-reader goroutine. Prior to sharing that
// goroutine across bridgeOnce attempts, a reconnect here spawned a second
// concurrent reader over userConn and would hang or corrupt frames.
func TestBridgeSurvivesUpstreamReconnect(t *testing.T) {
	var nodeAttempts atomic.Int32

	nodeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := context.Background()
		if _, _, err := conn.Read(ctx); err != nil { // subscription payload
			return
		}

		attempt := nodeAttempts.Add(1)
		if attempt == 1 {
			// simulate the node dropping the connection immediately.
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}

		_, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		_ = conn.Write(ctx, websocket.MessageText, msg)
		<-ctx.Done()
	}))
	defer nodeServer.Close()

	nodeWSURL := "ws" + strings.TrimPrefix(nodeServer.URL, "http")
	bridgeServer := newBridgeServer(t, nodeWSURL)

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userWSURL := "ws" + strings.TrimPrefix(bridgeServer.URL, "http") + "/ws/base"
	userConn, _, err := websocket.Dial(dialCtx, userWSURL, nil)
	require.NoError(t, err)
	defer userConn.CloseNow()

	require.NoError(t, userConn.Write(dialCtx, websocket.MessageText, []byte(`{"subscribe":"newHeads"}`)))

	// give the bridge time to observe the first node dropping and complete
	// its reconnect before sending the message the second node must echo.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, userConn.Write(dialCtx, websocket.MessageText, []byte(`{"id":1}`)))

	readCtx, cancelRead := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRead()
	_, msg, err := userConn.Read(readCtx)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(msg))

	userConn.Close(websocket.StatusNormalClosure, "done")
}

// TestBridgeClosesWithPingAfterExhaustingReconnects verifies that once every
// reconnect attempt to the upstream node fails, the bridge pings the client
// before closing its connection with StatusInternalError.
func TestBridgeClosesWithPingAfterExhaustingReconnects(t *testing.T) {
	// nothing listens on this port: every dial attempt fails immediately.
	bridgeServer := newBridgeServer(t, "ws://127.0.0.1:1/unreachable")

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userWSURL := "ws" + strings.TrimPrefix(bridgeServer.URL, "http") + "/ws/base"
	userConn, _, err := websocket.Dial(dialCtx, userWSURL, nil)
	require.NoError(t, err)
	defer userConn.CloseNow()

	require.NoError(t, userConn.Write(dialCtx, websocket.MessageText, []byte(`{"subscribe":"newHeads"}`)))

	readCtx, cancelRead := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRead()
	_, _, err = userConn.Read(readCtx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
}
