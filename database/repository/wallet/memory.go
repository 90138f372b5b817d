package walletRepo

import (
	"context"
	"fmt"
	"sync"
)

// MemoryWalletRepo is a map-backed WalletRepository.
type MemoryWalletRepo struct {
	mu       sync.Mutex
	balances map[string]*Balance
	applied  map[string]bool
}

var _ WalletRepository = (*MemoryWalletRepo)(nil)

func NewMemoryWalletRepo() *MemoryWalletRepo {
	return &MemoryWalletRepo{
		balances: make(map[string]*Balance),
		applied:  make(map[string]bool),
	}
}

func (r *MemoryWalletRepo) GetBalance(ctx context.Context, userID string) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.wallet(userID), nil
}

func (r *MemoryWalletRepo) Deposit(ctx context.Context, userID string, amount int64, memo string) error {
	return r.apply(memo, amount, func() error {
		r.wallet(userID).Available += amount
		return nil
	})
}

func (r *MemoryWalletRepo) Hold(ctx context.Context, patientID string, amount int64, memo string) error {
	return r.apply(memo, amount, func() error {
		w := r.wallet(patientID)
		if w.Available < amount {
			return ErrInsufficientFunds
		}
		w.Available -= amount
		return nil
	})
}

func (r *MemoryWalletRepo) CreditPending(ctx context.Context, professionalID string, amount int64, memo string) error {
	return r.apply(memo, amount, func() error {
		r.wallet(professionalID).Pending += amount
		return nil
	})
}

func (r *MemoryWalletRepo) Release(ctx context.Context, professionalID, patientID string, amount int64, memo string) error {
	return r.apply(memo, amount, func() error {
		w := r.wallet(professionalID)
		w.Pending -= amount
		w.Available += amount
		return nil
	})
}

func (r *MemoryWalletRepo) Refund(ctx context.Context, professionalID, patientID string, amount int64, memo string) error {
	return r.apply(memo, amount, func() error {
		r.wallet(professionalID).Pending -= amount
		r.wallet(patientID).Available += amount
		return nil
	})
}

func (r *MemoryWalletRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (r *MemoryWalletRepo) apply(memo string, amount int64, move func() error) error {
	if amount < 0 {
		return fmt.Errorf("negative amount %d", amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied[memo] {
		return nil
	}
	if err := move(); err != nil {
		return err
	}
	r.applied[memo] = true
	return nil
}

func (r *MemoryWalletRepo) wallet(userID string) *Balance {
	w, ok := r.balances[userID]
	if !ok {
		w = &Balance{UserID: userID}
		r.balances[userID] = w
	}
	return w
}
