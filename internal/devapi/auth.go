package devapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nightpass/nightpass/pkg/schema"
	"go.uber.org/zap"
)

func (h *Handler) Register(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
		FirstName   string `json:"first_name" binding:"required"`
		LastName    string `json:"last_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.beginRegistration(input.PhoneNumber, input.FirstName, input.LastName); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("verification code issued", zap.String("flow", "register"), zap.String("phone", input.PhoneNumber), zap.String("code", h.otp))
	c.JSON(http.StatusOK, schema.MessageResponse{Message: "Verification code sent"})
}

func (h *Handler) ConfirmRegistration(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
		SMSCode     string `json:"sms_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.SMSCode != h.otp {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid verification code"})
		return
	}

	u, err := h.Store.completeRegistration(input.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithTokens(c, u, "Registration complete")
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.beginLogin(input.PhoneNumber); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("verification code issued", zap.String("flow", "login"), zap.String("phone", input.PhoneNumber), zap.String("code", h.otp))
	c.JSON(http.StatusOK, schema.MessageResponse{Message: "Verification code sent"})
}

func (h *Handler) ConfirmLogin(c *gin.Context) {
	var input struct {
		PhoneNumber string  `json:"phone_number" binding:"required"`
		SMSCode     string  `json:"sms_code" binding:"required"`
		DeviceInfo  *string `json:"device_info"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.SMSCode != h.otp {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid verification code"})
		return
	}

	u, err := h.Store.completeLogin(input.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	if input.DeviceInfo != nil {
		h.log.Debug("login device", zap.Int64("user_id", u.ID), zap.String("device", *input.DeviceInfo))
	}
	h.respondWithTokens(c, u, "Logged in")
}

// Logout revokes the refresh token in the body. It succeeds for unknown tokens too.
func (h *Handler) Logout(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&input)

	if input.RefreshToken != "" && h.Store.revokeRefresh(input.RefreshToken) {
		h.log.Debug("refresh token revoked")
	}
	c.JSON(http.StatusOK, schema.MessageResponse{Message: "Logged out"})
}

func (h *Handler) respondWithTokens(c *gin.Context, u schema.User, message string) {
	access, err := h.tokens.generate(u.ID, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue token"})
		return
	}
	refresh := newRefreshToken()
	h.Store.saveRefresh(refresh, u.ID)

	c.JSON(http.StatusOK, schema.AuthResponse{
		Message:      &message,
		User:         &u,
		AccessToken:  &access,
		RefreshToken: &refresh,
	})
}
