package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"carelink/internal/auth"
	"carelink/internal/metrics"
	"carelink/internal/service"
	"carelink/internal/user"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket connection wrapper with mutex for thread-safe writes
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

// WSProgressFrame is sent by the client whenever the progress slider moves.
type WSProgressFrame struct {
	Current *float64 `json:"current"`
}

// WSProgressReply answers each frame with the snapped value and dashboard.
type WSProgressReply struct {
	Current   float64            `json:"current"`
	Dashboard *service.Dashboard `json:"dashboard"`
}

// GET /ws/progress?token=&patient=
func WSProgressHandler(secret string, sessions auth.SessionStore, patients *service.PatientService, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "ws-progress").Logger()
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			errorJSON(c, http.StatusUnauthorized, "missing JWT")
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")
		claims, err := auth.ParseJWT(secret, token)
		if err != nil {
			errorJSON(c, http.StatusUnauthorized, "invalid JWT")
			return
		}
		live, err := sessions.GetSession(c.Request.Context(), claims.UserID)
		if err != nil || live != token {
			errorJSON(c, http.StatusUnauthorized, "Session expired or invalid")
			return
		}

		patient := claims.Username
		if claims.Role != string(user.RolePatient) {
			patient = strings.TrimSpace(c.Query("patient"))
			if patient == "" {
				errorJSON(c, http.StatusBadRequest, "patient is required")
				return
			}
		}

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()
		m.WSConnected()
		defer m.WSDisconnected()

		ctx := c.Request.Context()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("patient", patient).Msg("websocket closed")
				}
				return
			}
			var frame WSProgressFrame
			if err := json.Unmarshal(msg, &frame); err != nil || frame.Current == nil || math.IsNaN(*frame.Current) {
				if conn.WriteJSON(gin.H{"error": "expected {\"current\": <number>}"}) != nil {
					return
				}
				continue
			}

			current := patients.ClampSlider(*frame.Current)
			d, err := patients.Dashboard(ctx, patient, current)
			if err != nil {
				if conn.WriteJSON(gin.H{"error": err.Error()}) != nil {
					return
				}
				continue
			}
			if err := conn.WriteJSON(WSProgressReply{Current: current, Dashboard: d}); err != nil {
				return
			}
		}
	}
}
