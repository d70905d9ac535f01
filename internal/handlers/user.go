package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/okaimono/marketplace-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	me, err := uh.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{"me": me})
}
