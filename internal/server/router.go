package server

import (
	"net/http"
	"time"

	"gigmarket/internal/domain/listing"
	"gigmarket/internal/middleware"
	jwtsvc "gigmarket/internal/pkg/jwt"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Deps are the process-lifetime collaborators the router hands to handlers.
type Deps struct {
	Logger          *zap.Logger
	JWT             *jwtsvc.Service
	Listings        *listing.Service
	CORSOrigins     []string
	MaxUploadMemory int64
}

// NewRouter builds the HTTP surface of the service under /api.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	if d.MaxUploadMemory > 0 {
		r.MaxMultipartMemory = d.MaxUploadMemory
	}

	r.Use(middleware.RequestID())
	r.Use(ginzap.GinzapWithConfig(d.Logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health", "/metrics"},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request_id", c.GetString("request_id"))}
		},
	}))
	r.Use(ginzap.RecoveryWithZap(d.Logger, true))
	r.Use(middleware.ErrorLogger(d.Logger))
	r.Use(middleware.CORS(d.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.JWT))

	listingHandler := listing.NewHandler(d.Listings, d.Logger)
	listing.RegisterRoutes(api, protected, listingHandler, middleware.UploadLinks(d.Listings, d.Logger))

	return r
}
