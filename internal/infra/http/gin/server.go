package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hotelres/internal/infra/config"
	"hotelres/internal/infra/obs"
)

type ReservationHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	ByReference(c *gin.Context)
	List(c *gin.Context)
	Arrivals(c *gin.Context)
	Departures(c *gin.Context)
	Cancel(c *gin.Context)
	Transition(c *gin.Context)
	ConfirmPayment(c *gin.Context)
	ApplyPromo(c *gin.Context)
	UpdateNotes(c *gin.Context)
	QRCode(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Calendar(c *gin.Context)
}

type PromotionHTTP interface {
	Validate(c *gin.Context)
	Active(c *gin.Context)
	Stats(c *gin.Context)
	SetActive(c *gin.Context)
}

type Handlers struct {
	Reservations ReservationHTTP
	Availability AvailabilityHTTP
	Promotions   PromotionHTTP
	Metrics      http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", obs.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/rooms/:id/availability", h.Availability.Check)
		api.GET("/rooms/:id/calendar", h.Availability.Calendar)
	}
	if h.Reservations != nil {
		res := api.Group("/reservations")
		res.POST("", h.Reservations.Create)
		res.GET("", h.Reservations.List)
		res.GET("/arrivals", h.Reservations.Arrivals)
		res.GET("/departures", h.Reservations.Departures)
		res.GET("/by-reference/:ref", h.Reservations.ByReference)
		res.GET("/:id", h.Reservations.Get)
		res.GET("/:id/qr", h.Reservations.QRCode)
		res.POST("/:id/cancel", h.Reservations.Cancel)
		res.POST("/:id/transitions", h.Reservations.Transition)
		res.POST("/:id/payment", h.Reservations.ConfirmPayment)
		res.POST("/:id/promo", h.Reservations.ApplyPromo)
		res.PATCH("/:id/notes", h.Reservations.UpdateNotes)
	}
	if h.Promotions != nil {
		promo := api.Group("/promotions")
		promo.POST("/validate", h.Promotions.Validate)
		promo.GET("/active", h.Promotions.Active)
		promo.GET("/:code/stats", h.Promotions.Stats)
		promo.PATCH("/:code", h.Promotions.SetActive)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
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
