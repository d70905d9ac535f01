package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okaimono/marketplace-backend/internal/platform/apierr"
	"github.com/okaimono/marketplace-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	user, err := ah.authService.Register(c.Request.Context(), services.RegisterRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondCreated(c, gin.H{"user": user})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "invalid_body", err))
		return
	}
	token, err := ah.authService.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		RespondError(c, mapError(err))
		return
	}
	RespondOK(c, gin.H{
		"access_token": token,
		"expires_in":   int(ah.authService.AccessTTL().Seconds()),
	})
}
