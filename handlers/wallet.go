package handlers

import (
	"errors"
	"net/http"

	walletRepo "telecare/database/repository/wallet"
	"telecare/middleware"
	"telecare/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WalletHandler reads balances and tops up wallets outside of bookings.
type WalletHandler struct {
	Wallets walletRepo.WalletRepository
	// DepositsEnabled opens the unauthenticated top-up endpoint. Production
	// funds wallets through the payment provider instead.
	DepositsEnabled bool
}

func NewWalletHandler(wallets walletRepo.WalletRepository, depositsEnabled bool) *WalletHandler {
	return &WalletHandler{Wallets: wallets, DepositsEnabled: depositsEnabled}
}

func (h *WalletHandler) GetBalanceHandler(c *gin.Context) {
	b, err := h.Wallets.GetBalance(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DepositHandler credits the acting user. The reference makes retries of the
// same top-up idempotent.
func (h *WalletHandler) DepositHandler(c *gin.Context) {
	if !h.DepositsEnabled {
		utils.JSONError(c, http.StatusForbidden, "deposits_disabled", "Wallet deposits are disabled in this environment.")
		return
	}
	var body struct {
		Amount    int64  `json:"amount" binding:"required"`
		Reference string `json:"reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.Amount <= 0 {
		badRequest(c, errors.New("amount must be positive"))
		return
	}

	userID := middleware.Actor(c)
	if err := h.Wallets.Deposit(c.Request.Context(), userID, body.Amount, "deposit:"+userID+":"+body.Reference); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Wallet deposit", zap.String("userID", userID), zap.Int64("amount", body.Amount))

	b, err := h.Wallets.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
