package models

import "time"

// MaxApiKeysPerCustomer is the per-customer cap on issued keys.
const MaxApiKeysPerCustomer = 10

// ApiKey is a many-to-one relation to Customer: a 32-byte random secret,
// hex-encoded, used to authenticate relay calls.
type ApiKey struct {
	Key        string // hex-encoded 32-byte secret
	Email      string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
