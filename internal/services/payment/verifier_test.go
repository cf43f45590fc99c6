package payment

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenAmountToCents(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     int64
	}{
		{"one whole USDC, 6 decimals", big.NewInt(1_000_000), 6, 100},
		{"half a USDC", big.NewInt(500_000), 6, 50},
		{"sub-cent amount rounds down", big.NewInt(4_999), 6, 0},
		{"rounds to nearest cent", big.NewInt(505_000), 6, 51},
		{"large amount", big.NewInt(1_234_560_000), 6, 123_456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenAmountToCents(tt.raw, tt.decimals)

			assert.Equal(t, tt.want, got)
		})
	}
}
