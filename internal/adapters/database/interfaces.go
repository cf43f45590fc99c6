package database

import (
	"context"
)

// TransactionManager provides database transaction management
// This interface abstracts the transaction handling to enable testing
type TransactionManager interface {
	// WithTx executes a function within a database transaction
	// If the function returns an error, the transaction is rolled back
	// Otherwise, the transaction is committed
	WithTx(ctx context.Context, fn func(Querier) error) error
}

// Ensure PostgreSQLAdapter implements TransactionManager
var _ TransactionManager = (*PostgreSQLAdapter)(nil)
