package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/AnTengye/brdlayout/config"
	"github.com/AnTengye/brdlayout/middleware"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/gin-gonic/gin"
)

// OperatorSubject is the token subject issued for the configured access key.
const OperatorSubject = "operator"

type AuthHandler struct {
	config *config.AuthConfig
}

func NewAuthHandler(cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type TokenRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Subject   string `json:"subject"`
}

// IssueToken exchanges the configured access key for a bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.config.AccessKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(h.config.AccessKey)) != 1 {
		logger.Warn(c.Request.Context(), "token request rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid access key"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(OperatorSubject, h.config)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		Subject:   OperatorSubject,
	})
}

// Me reports who the bearer token was issued to.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": middleware.GetSubject(c)})
}
