package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const apiVersion = "1.0.0"

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
	SwaggerDir  string
	Tokens      TokenValidator
	// AuthLimiter guards register and login. Nil disables limiting.
	AuthLimiter gin.HandlerFunc
	DB          Pinger
}

type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Bookings *BookingHandler
	Payments *PaymentHandler
	Users    *UserHandler
	Reports  *ReportHandler
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "OutdoorCamp API", "status": "running", "version": apiVersion})
	})
	router.GET("/api/health", health(cfg.DB))

	if cfg.SwaggerDir != "" {
		router.Static("/swagger", cfg.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json"))))
	}

	api := router.Group("/api")
	authenticated := api.Group("", Authenticate(cfg.Tokens))
	admin := RequireAdmin()

	public := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		public.Use(cfg.AuthLimiter)
	}
	h.Auth.Register(public, authenticated.Group("/auth"))
	h.Products.Register(authenticated.Group("/products"), admin)
	h.Bookings.Register(authenticated.Group("/bookings"))
	h.Payments.Register(authenticated.Group("/payments"), admin)
	h.Users.Register(authenticated.Group("/users", admin))
	h.Reports.Register(authenticated.Group("/reports", admin))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
	}
}
