package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a configured CORS middleware. Empty origins fall back to
// allowing all, matching the permissive default of the mobile client.
func CORS(origins, methods, headers []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: methods,
		AllowHeaders: headers,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowOrigins = nil
	}
	if len(methods) == 0 {
		cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(headers) == 0 {
		cfg.AllowHeaders = []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"}
	}
	return cors.New(cfg)
}
