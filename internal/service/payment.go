package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
	"ridehail/internal/repository"
)

const defaultLedgerLimit = 50

// maxLedgerAmount is the largest value a NUMERIC(12,2) ledger column holds.
var maxLedgerAmount = decimal.RequireFromString("9999999999.99")

// PSP is the interface for a Payment Service Provider funding wallet top-ups.
type PSP interface {
	Charge(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)
}

// MockPSP is a PSP that approves every charge.
type MockPSP struct{}

// NewMockPSP creates a new mock PSP.
func NewMockPSP() *MockPSP {
	return &MockPSP{}
}

// Charge always succeeds.
func (p *MockPSP) Charge(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	return true, nil
}

// WalletService keeps the in-app wallet ledger.
type WalletService struct {
	walletRepo repository.WalletRepository
	psp        PSP
	logger     *zap.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(walletRepo repository.WalletRepository, psp PSP, logger *zap.Logger) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{
		walletRepo: walletRepo,
		psp:        psp,
		logger:     logger,
	}
}

// ChargeTrip debits the rider's wallet for a completed trip.
// Trips not paid by wallet return a nil transaction. Repeated calls for the
// same trip return the first entry. A wallet that cannot cover the fare
// records a failed entry rather than an error.
func (s *WalletService) ChargeTrip(ctx context.Context, trip *domain.Trip) (*domain.WalletTransaction, error) {
	if trip == nil || trip.ID == "" {
		return nil, ErrInvalidTripID
	}
	if trip.PaymentMethod.Type != domain.PaymentTypeWallet {
		return nil, nil
	}

	idempotencyKey := "ride:" + trip.ID

	existing, err := s.walletRepo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	amount := pricing.Money(trip.ChargeAmount())

	balance, err := s.walletRepo.Balance(ctx, trip.RiderID)
	if err != nil {
		return nil, err
	}

	txn := &domain.WalletTransaction{
		ID:             uuid.New().String(),
		UserID:         trip.RiderID,
		TripID:         trip.ID,
		Type:           domain.TransactionRide,
		Amount:         amount.Neg(),
		Status:         domain.TransactionCompleted,
		Description:    "Ride payment",
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}
	if balance.LessThan(amount) {
		txn.Status = domain.TransactionFailed
		txn.Description = "Ride payment: " + ErrInsufficientBalance.Error()
	}

	if err := s.walletRepo.Create(ctx, txn); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent charge for the same trip won.
			return s.walletRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		}
		return nil, err
	}

	s.logger.Info("wallet charged",
		zap.String("trip_id", trip.ID),
		zap.String("user_id", trip.RiderID),
		zap.String("amount", txn.Amount.StringFixed(2)),
		zap.String("status", string(txn.Status)),
	)

	return txn, nil
}

// TopUpRequest contains the parameters for adding funds to a wallet.
type TopUpRequest struct {
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TopUp credits the caller's wallet after the PSP approves the charge.
func (s *WalletService) TopUp(ctx context.Context, session Session, req TopUpRequest) (*domain.WalletTransaction, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() || amount.GreaterThan(maxLedgerAmount) {
		return nil, ErrInvalidAmount
	}
	if req.IdempotencyKey == "" {
		return nil, ErrInvalidIdempotencyKey
	}

	// Keys are scoped per user so two users cannot collide.
	idempotencyKey := "topup:" + session.UserID + ":" + req.IdempotencyKey

	existing, err := s.walletRepo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	txn := &domain.WalletTransaction{
		ID:             uuid.New().String(),
		UserID:         session.UserID,
		Type:           domain.TransactionTopUp,
		Amount:         amount,
		Status:         domain.TransactionPending,
		Description:    "Wallet top-up",
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}

	if err := s.walletRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	success, err := s.psp.Charge(ctx, session.UserID, txn.Amount)
	if err != nil {
		s.logger.Warn("psp charge failed", zap.String("transaction_id", txn.ID), zap.Error(err))
		success = false
	}

	status := domain.TransactionCompleted
	if !success {
		status = domain.TransactionFailed
	}
	if err := s.walletRepo.UpdateStatus(ctx, txn.ID, status); err != nil {
		return nil, err
	}
	txn.Status = status

	return txn, nil
}

// Ledger is a wallet balance with its most recent entries.
type Ledger struct {
	Balance      decimal.Decimal
	Transactions []*domain.WalletTransaction
}

// Ledger returns the caller's balance and recent transactions, newest first.
func (s *WalletService) Ledger(ctx context.Context, session Session) (*Ledger, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	balance, err := s.walletRepo.Balance(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	txns, err := s.walletRepo.ListByUser(ctx, session.UserID, defaultLedgerLimit)
	if err != nil {
		return nil, err
	}

	return &Ledger{
		Balance:      balance,
		Transactions: txns,
	}, nil
}
