package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"carelink/internal/db"
	"carelink/internal/user"
)

// GET /users  [admin only]
// Optional ?role= filters, e.g. the patient list a doctor uploads for.
func ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.DB.Order("id ASC")
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}
		var users []user.User
		if err := q.Find(&users).Error; err != nil {
			errorJSON(c, http.StatusInternalServerError, "List error")
			return
		}
		result := make([]gin.H, 0, len(users))
		for _, u := range users {
			result = append(result, userJSON(u))
		}
		c.JSON(http.StatusOK, result)
	}
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// POST /users  [admin only]
func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
			errorJSON(c, http.StatusBadRequest, "Missing username or password")
			return
		}
		role := user.RolePatient
		if req.Role != "" {
			role = user.Role(req.Role)
		}
		if !role.Valid() {
			errorJSON(c, http.StatusBadRequest, "Unknown role")
			return
		}
		pwHash, err := user.HashPassword(req.Password)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "Password hash failed")
			return
		}
		newUser := user.User{
			Username:     req.Username,
			PasswordHash: pwHash,
			Role:         role,
		}
		if err := db.DB.Create(&newUser).Error; err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				errorJSON(c, http.StatusBadRequest, "Username already exists")
				return
			}
			errorJSON(c, http.StatusInternalServerError, "Create error")
			return
		}
		c.JSON(http.StatusCreated, userJSON(newUser))
	}
}

// GET /users/me
func GetMeHandler() gin.HandlerFunc {
	return MeHandler()
}

type UpdateMeRequest struct {
	Password string `json:"password,omitempty"`
}

// PUT /users/me
func UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		var req UpdateMeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid request")
			return
		}
		var u user.User
		if err := db.DB.First(&u, userId.(uint)).Error; err != nil {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		if req.Password != "" {
			pwHash, err := user.HashPassword(req.Password)
			if err != nil {
				errorJSON(c, http.StatusInternalServerError, "Password hash failed")
				return
			}
			u.PasswordHash = pwHash
		}
		if err := db.DB.Save(&u).Error; err != nil {
			errorJSON(c, http.StatusInternalServerError, "Update error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated"})
	}
}

// GET /users/:id  [admin only]
func GetUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var u user.User
		if err := db.DB.First(&u, c.Param("id")).Error; err != nil {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		c.JSON(http.StatusOK, userJSON(u))
	}
}

type UpdateUserRequest struct {
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

// PUT /users/:id  [admin only]
func UpdateUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid request")
			return
		}
		var u user.User
		if err := db.DB.First(&u, c.Param("id")).Error; err != nil {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		if req.Password != "" {
			pwHash, err := user.HashPassword(req.Password)
			if err != nil {
				errorJSON(c, http.StatusInternalServerError, "Password hash failed")
				return
			}
			u.PasswordHash = pwHash
		}
		if req.Role != "" {
			if !user.Role(req.Role).Valid() {
				errorJSON(c, http.StatusBadRequest, "Unknown role")
				return
			}
			u.Role = user.Role(req.Role)
		}
		if err := db.DB.Save(&u).Error; err != nil {
			errorJSON(c, http.StatusInternalServerError, "Update error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated"})
	}
}

// DELETE /users/:id  [admin only]
func DeleteUserByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := c.Get("userId")
		if uid, ok := userId.(uint); ok && c.Param("id") == strconv.FormatUint(uint64(uid), 10) {
			errorJSON(c, http.StatusBadRequest, "Cannot delete your own account")
			return
		}
		res := db.DB.Delete(&user.User{}, c.Param("id"))
		if res.Error != nil {
			errorJSON(c, http.StatusInternalServerError, "Delete error")
			return
		}
		if res.RowsAffected == 0 {
			errorJSON(c, http.StatusNotFound, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}
