package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	types "github.com/okaimono/marketplace-backend/internal/domain"
	"github.com/okaimono/marketplace-backend/internal/services"
)

type InstanceHandler struct {
	instanceService services.InstanceService
}

func NewInstanceHandler(instanceService services.InstanceService) *InstanceHandler {
	return &InstanceHandler{instanceService: instanceService}
}

func (ih *InstanceHandler) Get(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	instanceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	instance, err := ih.instanceService.Get(c.Request.Context(), instanceID, userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"instance": instance})
}

func (ih *InstanceHandler) ListMine(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	instances, err := ih.instanceService.ListMine(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"instances": instances})
}

func (ih *InstanceHandler) Consume(c *gin.Context) {
	ih.retire(c, ih.instanceService.Consume)
}

func (ih *InstanceHandler) ReportLost(c *gin.Context) {
	ih.retire(c, ih.instanceService.ReportLost)
}

func (ih *InstanceHandler) Destroy(c *gin.Context) {
	ih.retire(c, ih.instanceService.Destroy)
}

func (ih *InstanceHandler) retire(c *gin.Context, op func(context.Context, services.InstanceActionRequest) (*types.ProductInstance, error)) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	instanceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// body optional
	_ = c.ShouldBindJSON(&body)
	instance, err := op(c.Request.Context(), services.InstanceActionRequest{
		InstanceID: instanceID,
		UserID:     userID,
		Reason:     body.Reason,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"instance": instance})
}
