package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMaxAge is how long browsers may cache preflight responses.
const corsMaxAge = 12 * time.Hour

// CORS allows the given shell origins to call the kernel API. An empty
// list, or a single "*", admits every origin without credentials;
// pinned origins additionally get credentialed requests. Browsers
// refuse cookies on wildcard origins, so the two modes are mutually
// exclusive.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control", "X-Requested-With"},
		MaxAge:       corsMaxAge,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}
