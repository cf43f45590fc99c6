package payment

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/shamank/rpc-gateway/internal/domain"
)

func TestLookupToken(t *testing.T) {
	usdcBase := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")

	t.Run("known contract", func(t *testing.T) {
		td, ok := lookupToken(domain.ChainBase, usdcBase)

		assert.True(t, ok)
		assert.Equal(t, domain.AssetUSDC, td.Asset)
		assert.Equal(t, uint8(6), td.Decimals)
	})

	t.Run("known contract on wrong chain", func(t *testing.T) {
		_, ok := lookupToken(domain.ChainPolygon, usdcBase)

		assert.False(t, ok)
	})

	t.Run("unrecognized contract", func(t *testing.T) {
		_, ok := lookupToken(domain.ChainBase, common.HexToAddress("0x0000000000000000000000000000000000dEaD"))

		assert.False(t, ok)
	})
}
