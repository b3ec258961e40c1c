package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carelink/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mwSecret = "secret"

func newTestRouter(sessions SessionStore, roles ...user.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(mwSecret, sessions, roles...))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("role"))
	})
	return r
}

func doGet(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s SessionStore, id uint, role user.Role) string {
	t.Helper()
	token, err := GenerateJWT(mwSecret, id, "u", string(role), time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.SetSession(context.Background(), id, token, time.Minute))
	return token
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	w := doGet(newTestRouter(NewMemorySessions()), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	w := doGet(newTestRouter(NewMemorySessions()), "not.a.valid.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_SessionInvalid(t *testing.T) {
	token, err := GenerateJWT(mwSecret, 123, "user", "patient", time.Minute)
	require.NoError(t, err)
	w := doGet(newTestRouter(NewMemorySessions()), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ReplacedSessionRejected(t *testing.T) {
	s := NewMemorySessions()
	old := login(t, s, 7, user.RolePatient)
	require.NoError(t, s.SetSession(context.Background(), 7, "newer-token", time.Minute))

	w := doGet(newTestRouter(s), old)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RoleForbidden(t *testing.T) {
	s := NewMemorySessions()
	token := login(t, s, 123, user.RolePatient)
	w := doGet(newTestRouter(s, user.RoleDoctor, user.RoleAdmin), token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthMiddleware_RoleAllowed(t *testing.T) {
	s := NewMemorySessions()
	token := login(t, s, 222, user.RoleDoctor)
	w := doGet(newTestRouter(s, user.RoleDoctor, user.RoleAdmin), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doctor", w.Body.String())
}

func TestAuthMiddleware_AnyRoleWhenUnrestricted(t *testing.T) {
	s := NewMemorySessions()
	token := login(t, s, 5, user.RolePatient)
	w := doGet(newTestRouter(s), token)
	assert.Equal(t, http.StatusOK, w.Code)
}
