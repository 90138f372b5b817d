package escrow

import (
	"context"
	"errors"
	"fmt"

	walletRepo "telecare/database/repository/wallet"
	"telecare/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInsufficientBalance is returned when the patient cannot cover the fee.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ReceiptKind names the escrow call a Receipt was issued for.
type ReceiptKind string

const (
	KindHold    ReceiptKind = "hold"
	KindRelease ReceiptKind = "release"
	KindRefund  ReceiptKind = "refund"
)

// Receipt describes the wallet calls made by one Hold, Release or Refund, so
// they can be voided if the surrounding transition fails to persist.
type Receipt struct {
	Kind      ReceiptKind
	BookingID string
	Attempt   string
	Amount    int64
	Held      bool
	Credited  bool
	// Settled is set once a release or refund moved funds.
	Settled bool
}

// EscrowCoordinator drives the wallet through hold, release and refund. The
// booking's paymentStatus gates every call, so a replayed transition never
// moves funds twice. Every call returns a Receipt that Void reverses.
type EscrowCoordinator interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Hold(ctx context.Context, booking *models.Booking) (*Receipt, error)
	Void(ctx context.Context, booking *models.Booking, receipt *Receipt) error
	Release(ctx context.Context, booking *models.Booking) (*Receipt, error)
	Refund(ctx context.Context, booking *models.Booking) (*Receipt, error)
}

type DefaultEscrowCoordinator struct {
	wallet walletRepo.WalletRepository
	logger *zap.Logger
}

func NewDefaultEscrowCoordinator(wallet walletRepo.WalletRepository, logger *zap.Logger) *DefaultEscrowCoordinator {
	return &DefaultEscrowCoordinator{wallet: wallet, logger: logger}
}

func (c *DefaultEscrowCoordinator) Balance(ctx context.Context, userID string) (int64, error) {
	b, err := c.wallet.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("balance lookup failed: %w", err)
	}
	return b.Available, nil
}

// Hold debits the patient and credits the professional's pending balance,
// moving paymentStatus pending -> held. Any other status is a no-op.
func (c *DefaultEscrowCoordinator) Hold(ctx context.Context, booking *models.Booking) (*Receipt, error) {
	receipt := newReceipt(KindHold, booking)
	if booking.PaymentStatus != models.PaymentPending {
		return receipt, nil
	}
	if booking.Fee == 0 {
		booking.PaymentStatus = models.PaymentHeld
		return receipt, nil
	}

	available, err := c.Balance(ctx, booking.PatientID)
	if err != nil {
		return nil, err
	}
	if available < booking.Fee {
		return nil, ErrInsufficientBalance
	}

	memo := booking.ID + ":" + receipt.Attempt
	if err := c.wallet.Hold(ctx, booking.PatientID, booking.Fee, "hold:"+memo); err != nil {
		if errors.Is(err, walletRepo.ErrInsufficientFunds) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("escrow hold failed: %w", err)
	}
	receipt.Held = true

	if err := c.wallet.CreditPending(ctx, booking.ProfessionalID, booking.Fee, "credit:"+memo); err != nil {
		if voidErr := c.Void(ctx, booking, receipt); voidErr != nil {
			return nil, fmt.Errorf("escrow credit failed: %w (void also failed: %v)", err, voidErr)
		}
		return nil, fmt.Errorf("escrow credit failed: %w", err)
	}
	receipt.Credited = true

	booking.PaymentStatus = models.PaymentHeld
	c.logger.Info("Escrow hold placed",
		zap.String("bookingID", booking.ID),
		zap.Int64("amount", booking.Fee))
	return receipt, nil
}

// Void undoes the wallet calls recorded in receipt and restores the
// paymentStatus the booking had before the call.
func (c *DefaultEscrowCoordinator) Void(ctx context.Context, booking *models.Booking, receipt *Receipt) error {
	if receipt == nil {
		return nil
	}
	memo := "void:" + receipt.BookingID + ":" + receipt.Attempt

	var err error
	restore := models.PaymentHeld
	switch receipt.Kind {
	case KindHold:
		restore = models.PaymentPending
		switch {
		case receipt.Credited:
			err = c.wallet.Refund(ctx, booking.ProfessionalID, booking.PatientID, receipt.Amount, memo)
		case receipt.Held:
			err = c.wallet.Deposit(ctx, booking.PatientID, receipt.Amount, memo)
		}
	case KindRelease:
		if receipt.Settled {
			err = c.rehold(ctx, booking.ProfessionalID, booking.ProfessionalID, receipt.Amount, memo)
		}
	case KindRefund:
		if receipt.Settled {
			err = c.rehold(ctx, booking.PatientID, booking.ProfessionalID, receipt.Amount, memo)
		}
	}
	if err != nil {
		c.logger.Error("Escrow void failed, wallet needs reconciliation",
			zap.String("bookingID", booking.ID),
			zap.String("kind", string(receipt.Kind)),
			zap.String("attempt", receipt.Attempt),
			zap.Error(err))
		return fmt.Errorf("escrow void failed: %w", err)
	}
	if receipt.Kind == KindHold || receipt.Settled {
		booking.PaymentStatus = restore
	}
	return nil
}

// rehold puts settled funds back into escrow: amount leaves from's available
// balance and returns to the professional's pending balance.
func (c *DefaultEscrowCoordinator) rehold(ctx context.Context, from, professionalID string, amount int64, memo string) error {
	if err := c.wallet.Hold(ctx, from, amount, memo+":debit"); err != nil {
		return err
	}
	return c.wallet.CreditPending(ctx, professionalID, amount, memo+":credit")
}

// Release pays the professional, moving held -> completed.
func (c *DefaultEscrowCoordinator) Release(ctx context.Context, booking *models.Booking) (*Receipt, error) {
	receipt := newReceipt(KindRelease, booking)
	if booking.PaymentStatus != models.PaymentHeld {
		return receipt, nil
	}
	if booking.Fee > 0 {
		memo := "release:" + booking.ID + ":" + receipt.Attempt
		if err := c.wallet.Release(ctx, booking.ProfessionalID, booking.PatientID, booking.Fee, memo); err != nil {
			return nil, fmt.Errorf("escrow release failed: %w", err)
		}
		receipt.Settled = true
	}
	booking.PaymentStatus = models.PaymentCompleted
	return receipt, nil
}

// Refund returns held funds to the patient, moving held -> refunded. A
// booking that was never held keeps paymentStatus pending.
func (c *DefaultEscrowCoordinator) Refund(ctx context.Context, booking *models.Booking) (*Receipt, error) {
	receipt := newReceipt(KindRefund, booking)
	if booking.PaymentStatus != models.PaymentHeld {
		return receipt, nil
	}
	if booking.Fee > 0 {
		memo := "refund:" + booking.ID + ":" + receipt.Attempt
		if err := c.wallet.Refund(ctx, booking.ProfessionalID, booking.PatientID, booking.Fee, memo); err != nil {
			return nil, fmt.Errorf("escrow refund failed: %w", err)
		}
		receipt.Settled = true
	}
	booking.PaymentStatus = models.PaymentRefunded
	return receipt, nil
}

func newReceipt(kind ReceiptKind, booking *models.Booking) *Receipt {
	return &Receipt{Kind: kind, BookingID: booking.ID, Attempt: uuid.NewString(), Amount: booking.Fee}
}
