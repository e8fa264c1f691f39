package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

// WalletRepository defines the persistence operations for wallet ledgers.
type WalletRepository interface {
	// Create persists a new ledger entry.
	Create(ctx context.Context, txn *domain.WalletTransaction) error

	// GetByIdempotencyKey retrieves an entry by its idempotency key.
	// Returns nil if no entry exists with the given key.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error)

	// UpdateStatus updates the status of an entry.
	UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus) error

	// ListByUser returns a user's entries, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error)

	// Balance sums the user's completed entries.
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}
