package models

// Customer is the identity anchor. Role and activation are owned by the
// external registration collaborator; the core only reads balance and the
// optional wallet address.
type Customer struct {
	Email        string
	PasswordHash string
	Wallet       *string // 20-byte hex, lowercased, nil until attached via SIWE
	SiweNonce    *string
	Role         string
	Activated    bool
	BalanceCents int64
}
