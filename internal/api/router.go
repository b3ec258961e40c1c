package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"carelink/internal/auth"
	"carelink/internal/config"
	"carelink/internal/db"
	"carelink/internal/metrics"
	"carelink/internal/service"
	"carelink/internal/user"
)

// Deps is everything the router needs besides the package-level db.DB.
type Deps struct {
	Config   *config.Config
	Sessions auth.SessionStore
	Doctor   *service.DoctorService
	Patient  *service.PatientService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

func usersExist() bool {
	var count int64
	if db.DB == nil {
		return false
	}
	db.DB.Model(&user.User{}).Count(&count)
	return count > 0
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(loggerMiddleware(d.Log), gin.Recovery())

	cfg := d.Config
	subpath := cfg.Server.Subpath
	secret := cfg.Server.JWTSecret

	anyUser := auth.AuthMiddleware(secret, d.Sessions)
	admin := auth.AuthMiddleware(secret, d.Sessions, user.RoleAdmin)
	clinician := auth.AuthMiddleware(secret, d.Sessions, user.RoleAdmin, user.RoleDoctor)

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))
		if d.Gatherer != nil {
			group.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
		}

		// Setup: only if no users
		group.POST("/setup", SetupHandler())

		// Auth
		group.POST("/auth/login", LoginHandler(cfg, d.Sessions))
		group.POST("/auth/logout", anyUser, LogoutHandler(d.Sessions))
		group.GET("/auth/me", anyUser, MeHandler())

		// Admin: users
		group.GET("/users", admin, ListUsersHandler())
		group.POST("/users", admin, CreateUserHandler())

		// User self-service
		group.GET("/users/me", anyUser, GetMeHandler())
		group.PUT("/users/me", anyUser, UpdateMeHandler())

		// Admin: user by id
		group.GET("/users/:id", admin, GetUserByIdHandler())
		group.PUT("/users/:id", admin, UpdateUserByIdHandler())
		group.DELETE("/users/:id", admin, DeleteUserByIdHandler())

		// Doctor: care plan documents
		group.POST("/documents", clinician, UploadDocumentHandler(d.Doctor, cfg.Documents))
		group.POST("/documents/fetch", clinician, FetchDocumentHandler(d.Doctor))
		group.GET("/plans/:id", clinician, GetPlanHandler(d.Doctor))
		group.GET("/plans/:id/fhir", clinician, PlanFHIRHandler(d.Doctor))
		group.POST("/plans/:id/reprocess", clinician, ReprocessPlanHandler(d.Doctor))

		// Patient: progress
		group.GET("/dashboard", anyUser, DashboardHandler(d.Patient))
		group.POST("/progress", anyUser, LogProgressHandler(d.Patient))
		group.GET("/progress/weekly", anyUser, WeeklyHandler(d.Patient))
		group.POST("/evaluate", anyUser, EvaluateHandler(d.Patient))
		group.POST("/evaluate/week", anyUser, EvaluateWeekHandler(d.Patient))

		// Live progress over websocket; auth is checked before upgrade
		group.GET("/ws/progress", WSProgressHandler(secret, d.Sessions, d.Patient, d.Metrics, d.Log))
	}

	r.NoRoute(func(c *gin.Context) {
		errorJSON(c, http.StatusNotFound, "Not found")
	})
	return r
}
