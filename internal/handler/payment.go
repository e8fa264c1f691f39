package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridehail/internal/service"
)

// WalletHandler handles HTTP requests for the rider wallet.
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// TopUpRequest is the HTTP request body for adding funds.
// Amount is a decimal string such as "25.00".
type TopUpRequest struct {
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

// LedgerResponse is the wallet balance with its recent entries.
type LedgerResponse struct {
	Balance      string                `json:"balance"`
	Transactions []TransactionResponse `json:"transactions"`
}

// Ledger handles GET /v1/wallet
func (h *WalletHandler) Ledger(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	ledger, err := h.walletService.Ledger(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	response := LedgerResponse{
		Balance:      ledger.Balance.StringFixed(2),
		Transactions: make([]TransactionResponse, 0, len(ledger.Transactions)),
	}
	for _, t := range ledger.Transactions {
		response.Transactions = append(response.Transactions, toTransactionResponse(t))
	}

	respondJSON(c, http.StatusOK, response)
}

// TopUp handles POST /v1/wallet/topup
// The idempotency key comes from the body or the Idempotency-Key header.
func (h *WalletHandler) TopUp(c *gin.Context) {
	session, ok := callerSession(c)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(c, service.ErrInvalidAmount)
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("Idempotency-Key")
	}

	txn, err := h.walletService.TopUp(c.Request.Context(), session, service.TopUpRequest{
		Amount:         amount,
		IdempotencyKey: key,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTransactionResponse(txn))
}
