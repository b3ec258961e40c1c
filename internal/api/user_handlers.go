package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carelink/internal/auth"
	"carelink/internal/config"
	"carelink/internal/db"
	"carelink/internal/user"
)

// TokenTTL is the lifetime of issued JWTs; the session idle timeout usually
// ends them sooner.
const TokenTTL = 7 * 24 * time.Hour

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func LoginHandler(cfg *config.Config, sessions auth.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no users exist, indicate need for setup
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			errorJSON(c, http.StatusInternalServerError, "DB error")
			return
		}
		if count == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Initial setup required", "need_setup": true}})
			return
		}
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid request")
			return
		}
		var u user.User
		if err := db.DB.Where("username = ?", req.Username).First(&u).Error; err != nil {
			errorJSON(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		if err := user.CheckPassword(u.PasswordHash, req.Password); err != nil {
			errorJSON(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		token, err := auth.GenerateJWT(cfg.Server.JWTSecret, u.ID, u.Username, string(u.Role), TokenTTL)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "Failed to generate token")
			return
		}
		if err := sessions.SetSession(c.Request.Context(), u.ID, token, auth.IdleTimeout); err != nil {
			errorJSON(c, http.StatusInternalServerError, "Failed to start session")
			return
		}
		c.JSON(http.StatusOK, LoginResponse{
			Token:    token,
			UserID:   u.ID,
			Username: u.Username,
			Role:     string(u.Role),
		})
	}
}

func LogoutHandler(sessions auth.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, exists := c.Get("userId")
		if !exists {
			errorJSON(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		_ = sessions.DeleteSession(c.Request.Context(), userId.(uint))
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		var u user.User
		if err := db.DB.First(&u, userId.(uint)).Error; err != nil {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		c.JSON(http.StatusOK, userJSON(u))
	}
}

func userJSON(u user.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}
