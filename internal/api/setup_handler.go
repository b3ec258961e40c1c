package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carelink/internal/db"
	"carelink/internal/user"
)

type SetupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetupHandler creates the first admin account. It refuses once any user
// exists.
func SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			errorJSON(c, http.StatusInternalServerError, "DB error")
			return
		}
		if count != 0 {
			errorJSON(c, http.StatusForbidden, "Setup not allowed; users already exist")
			return
		}
		var req SetupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if req.Username == "" || req.Password == "" {
			errorJSON(c, http.StatusBadRequest, "Username and password required")
			return
		}
		pwHash, err := user.HashPassword(req.Password)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "Password hash failed")
			return
		}
		u := user.User{
			Username:     req.Username,
			PasswordHash: pwHash,
			Role:         user.RoleAdmin,
		}
		if err := db.DB.Create(&u).Error; err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				errorJSON(c, http.StatusBadRequest, "Username already exists")
				return
			}
			errorJSON(c, http.StatusInternalServerError, "DB error")
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":             u.ID,
			"username":       u.Username,
			"role":           u.Role,
			"createdAt":      u.CreatedAt,
			"setup_complete": true,
		})
	}
}
