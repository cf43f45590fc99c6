// Package payment implements the on-chain payment verifier: given a chain and
// transaction hash a customer claims paid the treasury, it fetches the
// transaction from the chain, decodes and checks it, converts the
// stablecoin amount to USD cents, and credits the customer's ledger.
package payment

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shamank/rpc-gateway/internal/adapters/chain"
	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/domain/models"
	"github.com/shamank/rpc-gateway/internal/services/ledger"
	"github.com/shamank/rpc-gateway/pkg/observability"
)

// Verifier is the Payment Verifier component: it authenticates an on-chain
// stablecoin transfer and credits the paying customer's balance.
type Verifier struct {
	clients  *chain.ClientSet
	ledger   *ledger.Ledger
	queries  database.Querier
	treasury common.Address
	logger   *zap.Logger
}

// New constructs a Verifier. treasury is the wallet address payments must be
// sent to, regardless of chain.
func New(clients *chain.ClientSet, led *ledger.Ledger, queries database.Querier, treasury common.Address, logger *zap.Logger) *Verifier {
	return &Verifier{clients: clients, ledger: led, queries: queries, treasury: treasury, logger: logger}
}

type fetchResult struct {
	tx        *types.Transaction
	receipt   *types.Receipt
	safeBlock uint64
}

// VerifyAndCredit fetches txHash from chain, validates it was a stablecoin
// transfer to the treasury signed by wallet, converts the transferred amount
// to USD cents, and credits email's balance (an amount that rounds to zero
// cents is rejected by the ledger). If plan
// is non-nil and the credited amount covers its monthly cost, the plan is
// activated in the same transaction as the credit.
func (v *Verifier) VerifyAndCredit(ctx context.Context, email, wallet, chainTag, txHash string, plan *domain.Plan) (int64, error) {
	start := time.Now()

	c, err := domain.ParseChain(chainTag)
	if err != nil {
		return 0, domain.ErrDestinationError(err)
	}

	client, ok := v.clients.Client(c)
	if !ok {
		return 0, domain.ErrInvalidNetwork()
	}

	if !common.IsHexAddress(wallet) {
		return 0, domain.ErrDestinationError(fmt.Errorf("malformed wallet address %q", wallet))
	}
	walletAddr := common.HexToAddress(wallet)

	hash := common.HexToHash(txHash)

	res, err := v.fetchConcurrently(ctx, client, hash)
	if err != nil {
		observability.RecordPaymentVerification(c.String(), "not_found", 0, time.Since(start).Seconds())
		return 0, domain.ErrTxNotFound(err)
	}

	cents, err := v.checkAndPrice(c, walletAddr, res)
	if err != nil {
		status := "rejected"
		if ge, ok := domain.AsGatewayError(err); ok {
			status = ge.Kind.String()
		}
		observability.RecordPaymentVerification(c.String(), status, 0, time.Since(start).Seconds())
		return 0, err
	}

	decoded, _ := decodeTransferCalldata(res.tx.Data(), &walletAddr)
	td, _ := lookupToken(c, *res.tx.To())

	if err := v.ledger.Credit(ctx, email, cents, plan); err != nil {
		return 0, fmt.Errorf("credit ledger: %w", err)
	}

	payment := models.Payment{
		Email:     email,
		TxHash:    txHash,
		Chain:     c,
		Asset:     td.Asset,
		RawAmount: decoded.Amount.String(),
		Decimals:  td.Decimals,
		UsdCents:  cents,
		Date:      time.Now(),
	}
	if err := v.queries.InsertPayment(ctx, payment); err != nil {
		return 0, fmt.Errorf("record payment: %w", err)
	}

	observability.RecordPaymentVerification(c.String(), "credited", cents, time.Since(start).Seconds())
	v.logger.Info("payment verified and credited",
		zap.String("email", email),
		zap.String("chain", c.String()),
		zap.String("tx_hash", txHash),
		zap.Int64("cents", cents),
	)
	return cents, nil
}

// fetchConcurrently fetches the transaction, its receipt, and the chain's
// current safe head all at once, the way the upstream RPC provider would be
// hit three times in sequence otherwise.
func (v *Verifier) fetchConcurrently(ctx context.Context, client *ethclient.Client, hash common.Hash) (*fetchResult, error) {
	var res fetchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tx, _, err := client.TransactionByHash(gctx, hash)
		if err != nil {
			return err
		}
		res.tx = tx
		return nil
	})
	g.Go(func() error {
		receipt, err := client.TransactionReceipt(gctx, hash)
		if err != nil {
			return err
		}
		res.receipt = receipt
		return nil
	})
	g.Go(func() error {
		header, err := client.HeaderByNumber(gctx, big.NewInt(rpc.SafeBlockNumber.Int64()))
		if err != nil {
			return err
		}
		res.safeBlock = header.Number.Uint64()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// checkAndPrice runs the ordered verification checks against a fetched
// transaction and, once everything checks out, returns the USD-cent value of
// the transferred amount. The checks run in a fixed order: status, then
// finality, then signer, then calldata shape, then recipient, then token.
func (v *Verifier) checkAndPrice(c domain.Chain, wallet common.Address, res *fetchResult) (int64, error) {
	if res.receipt.Status != types.ReceiptStatusSuccessful {
		return 0, domain.ErrTxFailed()
	}

	if res.receipt.BlockNumber.Uint64() >= res.safeBlock {
		return 0, domain.ErrTxNotFinalized()
	}

	signer := types.LatestSignerForChainID(res.tx.ChainId())
	from, err := types.Sender(signer, res.tx)
	if err != nil {
		return 0, domain.ErrSenderWalletMismatch()
	}
	if from != wallet {
		return 0, domain.ErrSenderWalletMismatch()
	}

	input := res.tx.Data()
	if len(input) == 0 {
		return 0, domain.ErrUnsupportedToken()
	}

	decoded, err := decodeTransferCalldata(input, &wallet)
	if err != nil {
		return 0, domain.ErrAbiDecodingError(err)
	}

	if decoded.To != v.treasury {
		return 0, domain.ErrIncorrectRecipient()
	}

	to := res.tx.To()
	if to == nil {
		return 0, domain.ErrUnsupportedToken()
	}
	td, ok := lookupToken(c, *to)
	if !ok {
		return 0, domain.ErrUnsupportedToken()
	}
	if td.Asset != domain.AssetUSDC {
		return 0, domain.ErrUnsupportedToken()
	}

	return tokenAmountToCents(decoded.Amount, td.Decimals), nil
}

// tokenAmountToCents prices a raw token amount as a USDC stablecoin, i.e.
// one token unit is worth one US dollar, scaled down by decimals and then up
// to cents.
func tokenAmountToCents(raw *big.Int, decimals uint8) int64 {
	amount := decimal.NewFromBigInt(raw, 0)
	scale := decimal.New(1, int32(decimals))
	dollars := amount.Div(scale)
	cents := dollars.Mul(decimal.New(100, 0))
	return cents.Round(0).IntPart()
}
