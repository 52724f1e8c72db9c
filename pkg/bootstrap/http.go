package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/pkg/auth"
	"forumpipe/pkg/health"
	"forumpipe/pkg/middleware"
	"forumpipe/pkg/ratelimit"
	"forumpipe/pkg/tracing"
)

const APIPrefix = "/api/v1"

// NewRouter builds the gin engine shared by the HTTP services and returns it together with the
// authenticated /api/v1 group handlers register on.
func (b *Base) NewRouter(ctx context.Context, registry *health.CheckerRegistry) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if b.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(b.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(b.Logger))
	router.Use(middleware.RequestIDMiddleware(b.ServiceName))
	router.Use(middleware.LoggerMiddleware(b.Logger))

	if b.Config.RateLimit.Enabled {
		router.Use(ratelimit.Middleware(ctx, b.Config.RateLimit))
		b.Logger.InfowCtx(b.Context(ctx), "Rate limiting enabled",
			"rps", b.Config.RateLimit.RPS,
			"burst", b.Config.RateLimit.Burst,
		)
	}

	router.GET("/health", registry.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group(APIPrefix, auth.Middleware(b.Config.Auth, b.Logger))
	return router, api
}

func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ServeHTTP runs server until it is shut down. ErrServerClosed is not an error.
func (b *Base) ServeHTTP(ctx context.Context, server *http.Server) error {
	b.Logger.InfowCtx(b.Context(ctx), "HTTP server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// ShutdownHTTP drains server within constants.ShutdownTimeout. A nil server is a no-op.
func ShutdownHTTP(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}
