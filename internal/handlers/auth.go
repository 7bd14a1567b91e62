package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/storage"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	identity, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.WithField("username", req.Username).Warn("Failed login attempt")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, expiresAt, err := h.auth.IssueToken(identity)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	auth.SetSessionCookie(c, token, expiresAt)

	h.logger.WithField("username", identity.Username).Info("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"user":       identity,
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Me(c *gin.Context) {
	identity, _ := auth.CurrentIdentity(c)
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// reloadIdentity replaces the token identity with the stored user, so role
// and dashboard changes apply before the session expires.
func (h *Handler) reloadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := h.repo.GetUser(c.Request.Context(), identity.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			auth.ClearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
			return
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to load session user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		auth.SetIdentity(c, auth.IdentityFromUser(user))
		c.Next()
	}
}
