package payment

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	errAbiTooShort    = errors.New("calldata too short to be a transfer or transferFrom call")
	errSenderMismatch = errors.New("transferFrom sender does not match account wallet")
)

const erc20TransferABI = `[
	{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	{"name":"transferFrom","type":"function","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]}
]`

var erc20ABI = mustParseERC20ABI()

func mustParseERC20ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		panic("payment: invalid embedded ERC-20 ABI: " + err.Error())
	}
	return parsed
}

// decodedTransfer is the (amount, recipient) pair extracted from either a
// transfer or transferFrom call, after validating the transferFrom sender
// against the account's wallet on file.
type decodedTransfer struct {
	Amount *big.Int
	To     common.Address
}

// decodeTransferCalldata matches input against transfer/transferFrom and
// returns the amount/recipient. For transferFrom, wallet must be non-nil and
// match the call's `from` argument, otherwise the signer doesn't match the
// account's wallet on file.
func decodeTransferCalldata(input []byte, wallet *common.Address) (*decodedTransfer, error) {
	if len(input) < 4 {
		return nil, errAbiTooShort
	}
	method, err := erc20ABI.MethodById(input[:4])
	if err != nil {
		return nil, err
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "transfer":
		return &decodedTransfer{
			To:     args[0].(common.Address),
			Amount: args[1].(*big.Int),
		}, nil
	case "transferFrom":
		from := args[0].(common.Address)
		if wallet == nil || from != *wallet {
			return nil, errSenderMismatch
		}
		return &decodedTransfer{
			To:     args[1].(common.Address),
			Amount: args[2].(*big.Int),
		}, nil
	default:
		return nil, errAbiTooShort
	}
}
