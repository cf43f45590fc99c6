package models

import (
	"time"

	"github.com/shamank/rpc-gateway/internal/domain"
)

// Payment is an append-only audit entry for a verified on-chain transfer.
// Unique on (Email, TxHash) to prevent replay-crediting.
type Payment struct {
	Email     string
	TxHash    string
	Chain     domain.Chain
	Asset     domain.Asset
	RawAmount string // token-native units, preserved as a decimal string
	Decimals  uint8
	UsdCents  int64
	Date      time.Time
}
