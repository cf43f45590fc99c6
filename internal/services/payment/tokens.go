package payment

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shamank/rpc-gateway/internal/domain"
)

// tokenDetails is what a (chain, token contract address) pair resolves to.
type tokenDetails struct {
	Decimals uint8
	Asset    domain.Asset
}

// tokenKey identifies one ERC-20 contract on one chain.
type tokenKey struct {
	Chain   domain.Chain
	Address common.Address
}

// tokenTable lists the only stablecoin contracts this deployment accepts
// payment in. Native ether is never in this table: an empty-input transfer
// is rejected as UnsupportedToken before this lookup ever runs.
var tokenTable = map[tokenKey]tokenDetails{
	{domain.ChainOptimism, common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")}: {6, domain.AssetUSDC},
	{domain.ChainPolygon, common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")}:  {6, domain.AssetUSDC},
	{domain.ChainArbitrum, common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")}: {6, domain.AssetUSDC},
	{domain.ChainBase, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")}:     {6, domain.AssetUSDC},
	{domain.ChainSepolia, common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")}:  {6, domain.AssetUSDC},
	{domain.ChainAnvil, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")}:    {6, domain.AssetUSDC},
}

func lookupToken(chain domain.Chain, addr common.Address) (tokenDetails, bool) {
	t, ok := tokenTable[tokenKey{chain, addr}]
	return t, ok
}
