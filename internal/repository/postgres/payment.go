package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const walletColumns = `id, user_id, trip_id, type, amount, status, description, idempotency_key, created_at`

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// NewWalletRepositoryWithTx creates a wallet repository using a transaction.
func NewWalletRepositoryWithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Create persists a new ledger entry.
func (r *WalletRepository) Create(ctx context.Context, txn *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.UserID,
		txn.TripID,
		txn.Type,
		txn.Amount,
		txn.Status,
		txn.Description,
		txn.IdempotencyKey,
		txn.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByIdempotencyKey retrieves an entry by its idempotency key.
// Returns nil if no entry exists with the given key.
func (r *WalletRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + walletColumns + ` FROM wallet_transactions WHERE idempotency_key = $1`

	txn, err := scanWalletTransaction(r.q.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return txn, nil
}

// UpdateStatus updates the status of an entry.
func (r *WalletRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE wallet_transactions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrNotFound)
}

// ListByUser returns a user's entries, newest first.
func (r *WalletRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.WalletTransaction
	for rows.Next() {
		txn, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// Balance sums the user's completed entries.
func (r *WalletRepository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE user_id = $1 AND status = $2
	`

	var balance decimal.Decimal
	if err := r.q.QueryRowContext(ctx, query, userID, domain.TransactionCompleted).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func scanWalletTransaction(row rowScanner) (*domain.WalletTransaction, error) {
	var txn domain.WalletTransaction
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.TripID,
		&txn.Type,
		&txn.Amount,
		&txn.Status,
		&txn.Description,
		&txn.IdempotencyKey,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Ensure WalletRepository implements repository.WalletRepository.
var _ repository.WalletRepository = (*WalletRepository)(nil)
