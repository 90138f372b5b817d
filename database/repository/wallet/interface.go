package walletRepo

import (
	"context"
	"errors"
)

// ErrInsufficientFunds is returned when a hold exceeds the available balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Balance is a user's spendable and pending (escrowed) funds, in minor units.
type Balance struct {
	UserID    string `bson:"userId" json:"userId"`
	Available int64  `bson:"available" json:"available"`
	Pending   int64  `bson:"pending" json:"pending"`
}

// WalletRepository is the ledger collaborator used by escrow. Every mutating
// call carries a memo; a memo that was already applied is a no-op.
type WalletRepository interface {
	GetBalance(ctx context.Context, userID string) (Balance, error)
	// Deposit adds spendable funds.
	Deposit(ctx context.Context, userID string, amount int64, memo string) error
	// Hold debits the patient's available balance.
	Hold(ctx context.Context, patientID string, amount int64, memo string) error
	// CreditPending credits the professional's pending balance.
	CreditPending(ctx context.Context, professionalID string, amount int64, memo string) error
	// Release moves the professional's pending funds to available.
	Release(ctx context.Context, professionalID, patientID string, amount int64, memo string) error
	// Refund reverses a hold: pending leaves the professional, available
	// returns to the patient.
	Refund(ctx context.Context, professionalID, patientID string, amount int64, memo string) error
	EnsureIndexes(ctx context.Context) error
}
