package repository

import "context"

// Repositories groups the stores bound to one unit of work.
type Repositories struct {
	Trips   TripRepository
	Users   UserRepository
	Drivers DriverRepository
	Wallet  WalletRepository
}

// Transactor runs fn against repositories sharing a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
