package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okaimono/marketplace-backend/internal/platform/apierr"
	"github.com/okaimono/marketplace-backend/internal/services"
)

type TransactionHandler struct {
	transactionService services.TransactionService
}

func NewTransactionHandler(transactionService services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (th *TransactionHandler) Create(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	var body struct {
		ToUserID uuid.UUID   `json:"to_user_id"`
		ItemIDs  []uuid.UUID `json:"item_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	txn, err := th.transactionService.Create(c.Request.Context(), services.CreateTransactionRequest{
		FromUserID: userID,
		ToUserID:   body.ToUserID,
		ItemIDs:    body.ItemIDs,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondCreated(c, gin.H{"transaction": txn})
}

func (th *TransactionHandler) Get(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	txnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txn, err := th.transactionService.Get(c.Request.Context(), txnID, userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"transaction": txn})
}

func (th *TransactionHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	txns, err := th.transactionService.List(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"transactions": txns})
}

func (th *TransactionHandler) Complete(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	txnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txn, err := th.transactionService.Complete(c.Request.Context(), services.CompleteTransactionRequest{
		TransactionID: txnID,
		UserID:        userID,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"transaction": txn})
}

func (th *TransactionHandler) Cancel(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	txnID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txn, err := th.transactionService.Cancel(c.Request.Context(), services.CancelTransactionRequest{
		TransactionID: txnID,
		UserID:        userID,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"transaction": txn})
}
