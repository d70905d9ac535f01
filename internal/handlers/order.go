package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/okaimono/marketplace-backend/internal/platform/apierr"
	"github.com/okaimono/marketplace-backend/internal/services"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (oh *OrderHandler) Create(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	var body struct {
		ReceiverID      *uuid.UUID      `json:"receiver_id"`
		ShippingAddress json.RawMessage `json:"shipping_address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	req := services.CreateOrderRequest{
		UserID:          userID,
		ShippingAddress: datatypes.JSON(body.ShippingAddress),
	}
	if body.ReceiverID != nil {
		req.ReceiverID = *body.ReceiverID
	}
	order, err := oh.orderService.Create(c.Request.Context(), req)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondCreated(c, gin.H{"order": order})
}

func (oh *OrderHandler) Get(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := oh.orderService.Get(c.Request.Context(), orderID, userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"order": order})
}

func (oh *OrderHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orders, err := oh.orderService.List(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"orders": orders})
}

func (oh *OrderHandler) AddItem(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body struct {
		VariantID uuid.UUID   `json:"variant_id"`
		Quantity  int         `json:"quantity"`
		Owners    []uuid.UUID `json:"owners"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	order, err := oh.orderService.AddItem(c.Request.Context(), services.AddOrderItemRequest{
		OrderID:   orderID,
		UserID:    userID,
		VariantID: body.VariantID,
		Quantity:  body.Quantity,
		Owners:    body.Owners,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"order": order})
}

func (oh *OrderHandler) SubmitMysteryBoxContents(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}
	var body struct {
		Contents []struct {
			VariantID uuid.UUID  `json:"variant_id"`
			OwnerID   *uuid.UUID `json:"owner_id"`
		} `json:"contents"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	contents := make([]services.MysteryBoxContent, len(body.Contents))
	for i, declared := range body.Contents {
		contents[i] = services.MysteryBoxContent{VariantID: declared.VariantID}
		if declared.OwnerID != nil {
			contents[i].OwnerID = *declared.OwnerID
		}
	}
	order, err := oh.orderService.SubmitMysteryBoxContents(c.Request.Context(), services.SubmitMysteryBoxRequest{
		OrderID:  orderID,
		ItemID:   itemID,
		UserID:   userID,
		Contents: contents,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"order": order})
}

func (oh *OrderHandler) Fulfill(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := oh.orderService.Fulfill(c.Request.Context(), services.FulfillOrderRequest{
		OrderID: orderID,
		UserID:  userID,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"order": order})
}

func (oh *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// body optional on cancel
	_ = c.ShouldBindJSON(&body)
	order, err := oh.orderService.Cancel(c.Request.Context(), services.CancelOrderRequest{
		OrderID: orderID,
		UserID:  userID,
		Reason:  body.Reason,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"order": order})
}
