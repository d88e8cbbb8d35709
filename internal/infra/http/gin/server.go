package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staycal/internal/infra/config"
	"staycal/internal/infra/obs"
)

type StayHTTP interface {
	Check(c *gin.Context)
}

type CalendarHTTP interface {
	Month(c *gin.Context)
}

type HoldHTTP interface {
	Place(c *gin.Context)
	Release(c *gin.Context)
	Confirm(c *gin.Context)
}

type AdminHTTP interface {
	Audit(c *gin.Context)
	Corrections(c *gin.Context)
	RegeneratePrices(c *gin.Context)
}

type Handlers struct {
	Stays    StayHTTP
	Calendar CalendarHTTP
	Holds    HoldHTTP
	Admin    AdminHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(cfg, obsMW, health, h)}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Stays != nil {
		api.POST("/stays/check", h.Stays.Check)
	}
	if h.Calendar != nil {
		api.GET("/properties/:id/calendar", h.Calendar.Month)
	}
	if h.Holds != nil {
		api.POST("/properties/:id/holds", h.Holds.Place)
		api.POST("/properties/:id/holds/:hold/release", h.Holds.Release)
		api.POST("/properties/:id/holds/:hold/confirm", h.Holds.Confirm)
	}
	if h.Admin != nil {
		admin := api.Group("/admin/properties/:id")
		admin.POST("/audit", h.Admin.Audit)
		admin.POST("/corrections", h.Admin.Corrections)
		admin.POST("/prices/regenerate", h.Admin.RegeneratePrices)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
