package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/seu-repo/tochka-pay/pkg/config"
)

const (
	defaultAllowedMethods = "GET,POST,OPTIONS"
	defaultAllowedHeaders = "Origin,Content-Type,Accept,Authorization,Idempotency-Key,X-Request-ID"
)

// NewCORS creates a CORS middleware from application config. Webhook
// routes are server-to-server and are mounted before it.
func NewCORS(cfg config.CORSConfig) fiber.Handler {
	allowedOrigins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}

	allowedHeaders := defaultAllowedHeaders
	if len(cfg.AllowedHeaders) > 0 {
		allowedHeaders = strings.Join(cfg.AllowedHeaders, ",")
	}

	maxAge := 86400 // 24 hours default
	if cfg.MaxAge > 0 {
		maxAge = cfg.MaxAge
	}

	return fibercors.New(fibercors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     defaultAllowedMethods,
		AllowHeaders:     allowedHeaders,
		AllowCredentials: cfg.Credentials && allowedOrigins != "*",
		MaxAge:           maxAge,
	})
}
