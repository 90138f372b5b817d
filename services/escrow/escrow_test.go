package escrow

import (
	"context"
	"errors"
	"testing"

	walletRepo "telecare/database/repository/wallet"
	"telecare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyWallet fails CreditPending once.
type flakyWallet struct {
	*walletRepo.MemoryWalletRepo
	failCredit bool
}

func (w *flakyWallet) CreditPending(ctx context.Context, professionalID string, amount int64, memo string) error {
	if w.failCredit {
		w.failCredit = false
		return errors.New("ledger unavailable")
	}
	return w.MemoryWalletRepo.CreditPending(ctx, professionalID, amount, memo)
}

func newBooking(fee int64) *models.Booking {
	return &models.Booking{ID: "b1", PatientID: "pat", ProfessionalID: "pro", Fee: fee, PaymentStatus: models.PaymentPending}
}

func balances(t *testing.T, w walletRepo.WalletRepository) (walletRepo.Balance, walletRepo.Balance) {
	t.Helper()
	pat, err := w.GetBalance(context.Background(), "pat")
	require.NoError(t, err)
	pro, err := w.GetBalance(context.Background(), "pro")
	require.NoError(t, err)
	return pat, pro
}

func TestHoldThenRelease(t *testing.T) {
	ctx := context.Background()
	w := walletRepo.NewMemoryWalletRepo()
	require.NoError(t, w.Deposit(ctx, "pat", 10000, "seed"))
	c := NewDefaultEscrowCoordinator(w, zap.NewNop())
	b := newBooking(4000)

	_, err := c.Hold(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentHeld, b.PaymentStatus)

	// A replayed hold is gated by paymentStatus.
	_, err = c.Hold(ctx, b)
	require.NoError(t, err)
	pat, pro := balances(t, w)
	assert.Equal(t, int64(6000), pat.Available)
	assert.Equal(t, int64(4000), pro.Pending)

	_, err = c.Release(ctx, b)
	require.NoError(t, err)
	_, err = c.Release(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, b.PaymentStatus)
	_, pro = balances(t, w)
	assert.Equal(t, int64(4000), pro.Available)
	assert.Zero(t, pro.Pending)
}

func TestRefundRestoresPatient(t *testing.T) {
	ctx := context.Background()
	w := walletRepo.NewMemoryWalletRepo()
	require.NoError(t, w.Deposit(ctx, "pat", 10000, "seed"))
	c := NewDefaultEscrowCoordinator(w, zap.NewNop())
	b := newBooking(4000)

	_, err := c.Hold(ctx, b)
	require.NoError(t, err)
	_, err = c.Refund(ctx, b)
	require.NoError(t, err)
	_, err = c.Refund(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentRefunded, b.PaymentStatus)
	pat, pro := balances(t, w)
	assert.Equal(t, int64(10000), pat.Available)
	assert.Zero(t, pro.Pending)
}

func TestRefundBeforeHoldKeepsPending(t *testing.T) {
	c := NewDefaultEscrowCoordinator(walletRepo.NewMemoryWalletRepo(), zap.NewNop())
	b := newBooking(4000)
	_, err := c.Refund(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
}

func TestHoldInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	w := walletRepo.NewMemoryWalletRepo()
	require.NoError(t, w.Deposit(ctx, "pat", 5000, "seed"))
	c := NewDefaultEscrowCoordinator(w, zap.NewNop())
	b := newBooking(10000)

	_, err := c.Hold(ctx, b)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
}

func TestHoldCreditFailureIsVoided(t *testing.T) {
	ctx := context.Background()
	w := &flakyWallet{MemoryWalletRepo: walletRepo.NewMemoryWalletRepo(), failCredit: true}
	require.NoError(t, w.Deposit(ctx, "pat", 10000, "seed"))
	c := NewDefaultEscrowCoordinator(w, zap.NewNop())
	b := newBooking(4000)

	_, err := c.Hold(ctx, b)
	require.Error(t, err)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	pat, pro := balances(t, w)
	assert.Equal(t, int64(10000), pat.Available)
	assert.Zero(t, pro.Pending)

	// The retry uses a fresh attempt and succeeds.
	_, err = c.Hold(ctx, b)
	require.NoError(t, err)
	pat, pro = balances(t, w)
	assert.Equal(t, int64(6000), pat.Available)
	assert.Equal(t, int64(4000), pro.Pending)
}

func TestVoidAfterPersistFailure(t *testing.T) {
	ctx := context.Background()
	w := walletRepo.NewMemoryWalletRepo()
	require.NoError(t, w.Deposit(ctx, "pat", 10000, "seed"))
	c := NewDefaultEscrowCoordinator(w, zap.NewNop())
	b := newBooking(4000)

	receipt, err := c.Hold(ctx, b)
	require.NoError(t, err)
	require.NoError(t, c.Void(ctx, b, receipt))

	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	pat, pro := balances(t, w)
	assert.Equal(t, int64(10000), pat.Available)
	assert.Zero(t, pro.Pending)
}

func TestVoidSettlementRestoresEscrow(t *testing.T) {
	settle := map[string]func(*DefaultEscrowCoordinator, context.Context, *models.Booking) (*Receipt, error){
		"release": (*DefaultEscrowCoordinator).Release,
		"refund":  (*DefaultEscrowCoordinator).Refund,
	}
	for name, call := range settle {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			w := walletRepo.NewMemoryWalletRepo()
			require.NoError(t, w.Deposit(ctx, "pat", 10000, "seed"))
			c := NewDefaultEscrowCoordinator(w, zap.NewNop())
			b := newBooking(4000)
			_, err := c.Hold(ctx, b)
			require.NoError(t, err)

			receipt, err := call(c, ctx, b)
			require.NoError(t, err)
			require.True(t, receipt.Settled)
			require.NoError(t, c.Void(ctx, b, receipt))
			require.NoError(t, c.Void(ctx, b, receipt))

			assert.Equal(t, models.PaymentHeld, b.PaymentStatus)
			pat, pro := balances(t, w)
			assert.Equal(t, int64(6000), pat.Available)
			assert.Equal(t, int64(4000), pro.Pending)
			assert.Zero(t, pro.Available)

			// Settling again after the void moves the funds once more.
			_, err = call(c, ctx, b)
			require.NoError(t, err)
			pat, pro = balances(t, w)
			assert.Zero(t, pro.Pending)
			assert.Equal(t, int64(10000), pat.Available+pro.Available)
		})
	}
}
