package delivery

import (
	"errors"
	"net/http"

	authdomain "hyperagent/internal/auth/domain"
	"hyperagent/internal/auth/usecase"
	"hyperagent/pkg/logging"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves team membership and device registration endpoints
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	logger      logging.Logger
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, logger logging.Logger) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase, logger: logger}
}

type redeemInviteRequest struct {
	Code string `json:"code" binding:"required"`
}

type registerDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

// Me returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentUser(c))
}

// RedeemInvite joins the caller to the invite's celebrity team
// POST /api/auth/invite/redeem
func (h *AuthHandler) RedeemInvite(c *gin.Context) {
	var req redeemInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	user, err := h.authUsecase.RedeemInvite(c.Request.Context(), c.GetString("userID"), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInviteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "invite code not found"})
		case errors.Is(err, authdomain.ErrInviteUnavailable):
			c.JSON(http.StatusConflict, gin.H{"error": "invite code already used or expired"})
		default:
			h.logger.WithError(err).Error("Failed to redeem invite code")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to redeem invite code"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterFCMToken stores a device token for push notifications
// POST /api/fcm/register
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.authUsecase.RegisterDevice(c.Request.Context(), c.GetString("userID"), req.Token, req.DeviceInfo); err != nil {
		h.logger.WithError(err).Error("Failed to register FCM token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnregisterFCMToken removes a device token
// DELETE /api/fcm/:token
func (h *AuthHandler) UnregisterFCMToken(c *gin.Context) {
	if err := h.authUsecase.UnregisterDevice(c.Request.Context(), c.Param("token")); err != nil {
		h.logger.WithError(err).Error("Failed to delete FCM token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
