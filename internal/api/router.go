package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/assign"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/middleware"
	"github.com/lalith-99/sitetrack/internal/observ"
	"github.com/lalith-99/sitetrack/internal/repository"
	"github.com/lalith-99/sitetrack/internal/search"
	"github.com/lalith-99/sitetrack/internal/session"
	"github.com/lalith-99/sitetrack/internal/store"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer needs. Geocoder may be nil.
type Deps struct {
	Actors   repository.ActorRepository
	Owners   repository.OwnerRepository
	Registry *store.Registry
	Engine   *assign.Engine
	Sessions *session.Manager
	Geocoder geo.Geocoder
	Metrics  *observ.Metrics
	Logger   *zap.Logger

	JWTSecret string
	TokenTTL  time.Duration

	// Health, when set, is checked by the health route.
	Health func(ctx context.Context) error
}

// NewRouter wires every route. Only signup, login, health and metrics are
// reachable without a token.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger, d.Metrics))

	// A mirror outlives no session: drop it when its actor is logged out
	// so the next login reloads from storage.
	d.Sessions.OnChange(func(ch session.Change) {
		if ch.To == session.StateLoggedOut && ch.OwnerID != uuid.Nil {
			d.Registry.Evict(ch.OwnerID)
		}
	})

	scope := ownerScope{registry: d.Registry, sessions: d.Sessions, logger: d.Logger}
	authH := NewAuthHandler(d.Actors, d.Owners, d.Sessions, d.JWTSecret, d.TokenTTL, d.Logger)
	sessionH := NewSessionHandler(d.Sessions, d.Logger)
	repH := NewRepHandler(scope, d.Logger)
	siteH := NewSiteHandler(scope, d.Engine, d.Geocoder, d.Logger)
	logH := NewLogHandler(scope, d.Logger)
	searchH := NewSearchHandler(scope, search.New(d.Geocoder, d.Logger), d.Geocoder, d.Logger)

	r.GET("/v1/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.POST("/v1/auth/signup", authH.Signup)
	r.POST("/v1/auth/login", authH.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret))

	v1.GET("/session", sessionH.Get)
	v1.POST("/session/logout", sessionH.Logout)

	v1.GET("/reps", repH.List)
	v1.POST("/reps", repH.Create)
	v1.POST("/reps/import", repH.Import)
	v1.PATCH("/reps/:id", repH.Update)
	v1.DELETE("/reps/:id", repH.Delete)
	v1.GET("/reps/:id/logs", repH.Logs)
	v1.GET("/reps/:id/trajectory", repH.Trajectory)

	v1.GET("/sites", siteH.List)
	v1.POST("/sites", siteH.Create)
	v1.GET("/sites/:id", siteH.Get)
	v1.PATCH("/sites/:id", siteH.Update)
	v1.DELETE("/sites/:id", siteH.Delete)
	v1.POST("/sites/:id/assign", siteH.Assign)
	v1.POST("/sites/:id/unassign", siteH.Unassign)
	v1.POST("/sites/:id/complete", siteH.Complete)
	v1.POST("/sites/:id/correct", siteH.Correct)
	v1.POST("/sites/:id/handover", siteH.Handover)

	v1.GET("/decisions/:token", siteH.GetDecision)
	v1.POST("/decisions/:token", siteH.Resolve)

	v1.GET("/logs", logH.List)
	v1.DELETE("/logs/:id", logH.Delete)

	v1.GET("/search", searchH.Search)
	v1.GET("/geocode", searchH.Geocode)
	v1.GET("/geocode/reverse", searchH.Reverse)

	return r
}
