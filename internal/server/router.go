package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/forked/internal/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

// NewRouter wires the middleware chain and the routes. Background work started for
// the router stops when ctx is done.
func NewRouter(ctx context.Context, h *Handler, cfg config.ServerConfig, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	// X-Forwarded-For is ignored unless the peer is a configured proxy
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	router.Use(
		RequestID(),
		Recovery(logger),
		RequestLogger(logger),
		Metrics(),
	)

	router.GET("/", h.Index)
	router.GET("/test", h.Test)
	router.POST("/generate", RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst), h.Generate)
	router.GET("/healthz", h.Health)

	return router, nil
}

// NewHTTPServer wraps the router with CORS and the configured timeouts.
func NewHTTPServer(cfg *config.Config, router http.Handler) *http.Server {
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", HeaderRequestID}),
		handlers.ExposedHeaders([]string{HeaderRequestID, HeaderFallback}),
	)

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      cors(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
