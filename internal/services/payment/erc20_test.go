package payment

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPack(t *testing.T, method string, args ...any) []byte {
	t.Helper()
	data, err := erc20ABI.Pack(method, args...)
	require.NoError(t, err)
	return data
}

func TestDecodeTransferCalldata(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	from := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(5_000_000)

	t.Run("transfer", func(t *testing.T) {
		input := mustPack(t, "transfer", to, amount)

		decoded, err := decodeTransferCalldata(input, nil)

		require.NoError(t, err)
		assert.Equal(t, to, decoded.To)
		assert.Equal(t, amount, decoded.Amount)
	})

	t.Run("transferFrom with matching wallet", func(t *testing.T) {
		input := mustPack(t, "transferFrom", from, to, amount)

		decoded, err := decodeTransferCalldata(input, &from)

		require.NoError(t, err)
		assert.Equal(t, to, decoded.To)
		assert.Equal(t, amount, decoded.Amount)
	})

	t.Run("transferFrom with mismatched wallet", func(t *testing.T) {
		input := mustPack(t, "transferFrom", from, to, amount)
		other := common.HexToAddress("0x3333333333333333333333333333333333333333")

		_, err := decodeTransferCalldata(input, &other)

		assert.ErrorIs(t, err, errSenderMismatch)
	})

	t.Run("transferFrom with nil wallet", func(t *testing.T) {
		input := mustPack(t, "transferFrom", from, to, amount)

		_, err := decodeTransferCalldata(input, nil)

		assert.ErrorIs(t, err, errSenderMismatch)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := decodeTransferCalldata([]byte{0x01, 0x02}, nil)

		assert.ErrorIs(t, err, errAbiTooShort)
	})

	t.Run("unrecognized selector", func(t *testing.T) {
		_, err := decodeTransferCalldata([]byte{0xde, 0xad, 0xbe, 0xef, 0x00}, nil)

		require.Error(t, err)
	})
}
