package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	walletRepo "telecare/database/repository/wallet"
	"telecare/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWalletRouter(wallets walletRepo.WalletRepository, depositsEnabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWalletHandler(wallets, depositsEnabled)
	g := r.Group("/me")
	g.Use(middleware.RequireActor())
	g.GET("/wallet", h.GetBalanceHandler)
	g.POST("/wallet/deposit", h.DepositHandler)
	return r
}

func TestDepositHandler_DisabledLeavesWalletUntouched(t *testing.T) {
	wallets := walletRepo.NewMemoryWalletRepo()
	r := newWalletRouter(wallets, false)

	w := do(r, http.MethodPost, "/me/wallet/deposit", "pat-1", `{"amount":5000,"reference":"r1"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "deposits_disabled", body["error"])

	b, err := wallets.GetBalance(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Available)

	// Reads stay available.
	w = do(r, http.MethodGet, "/me/wallet", "pat-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDepositHandler_EnabledIsIdempotentPerReference(t *testing.T) {
	wallets := walletRepo.NewMemoryWalletRepo()
	r := newWalletRouter(wallets, true)

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/me/wallet/deposit", "pat-1", `{"amount":5000,"reference":"r1"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(r, http.MethodPost, "/me/wallet/deposit", "pat-1", `{"amount":-1,"reference":"r2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var b walletRepo.Balance
	w = do(r, http.MethodGet, "/me/wallet", "pat-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, int64(5000), b.Available)
}
