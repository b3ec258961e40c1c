package auth

import (
	"net/http"
	"strings"
	"time"

	"carelink/internal/user"

	"github.com/gin-gonic/gin"
)

// IdleTimeout is how long a session survives without requests.
const IdleTimeout = 30 * time.Minute

// AuthMiddleware validates the bearer token against the live session and,
// when roles are given, requires the caller to hold one of them.
func AuthMiddleware(secret string, sessions SessionStore, roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Missing or invalid Authorization header"}})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseJWT(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid or expired token"}})
			return
		}
		ctx := c.Request.Context()
		sessionToken, err := sessions.GetSession(ctx, claims.UserID)
		if err != nil || sessionToken != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Session expired or invalid"}})
			return
		}
		_ = sessions.SetSession(ctx, claims.UserID, tokenStr, IdleTimeout)

		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Insufficient role"}})
			return
		}
		c.Next()
	}
}

func hasRole(role string, allowed []user.Role) bool {
	for _, r := range allowed {
		if string(r) == role {
			return true
		}
	}
	return false
}
