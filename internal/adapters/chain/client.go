// Package chain wraps go-ethereum RPC clients, one per configured chain,
// the way shamank-snet-sdk-go's blockchain package wraps ethclient.Dial.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shamank/rpc-gateway/internal/config"
	"github.com/shamank/rpc-gateway/internal/domain"
)

// ClientSet holds one ethclient.Client per chain enabled for this
// deployment, dialed once at startup.
type ClientSet struct {
	clients map[domain.Chain]*ethclient.Client
}

// Dial connects to every chain configured in cfg.ProviderURLs.
func Dial(cfg *config.RelayConfig) (*ClientSet, error) {
	set := &ClientSet{clients: make(map[domain.Chain]*ethclient.Client, len(cfg.ProviderURLs))}
	for c, url := range cfg.ProviderURLs {
		client, err := ethclient.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dial %s provider: %w", c, err)
		}
		set.clients[c] = client
	}
	return set, nil
}

// Client returns the dialed client for chain, or false if that chain isn't
// enabled for this deployment.
func (s *ClientSet) Client(c domain.Chain) (*ethclient.Client, bool) {
	client, ok := s.clients[c]
	return client, ok
}

// Close closes every underlying client connection.
func (s *ClientSet) Close() {
	for _, client := range s.clients {
		client.Close()
	}
}
