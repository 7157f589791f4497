package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CageChen/filehub/internal/config"
	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// RequestID tags every request with an id, reusing the caller's
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// HostCheck rejects requests whose Host header names a host the server was
// not configured for, so a rebound DNS name cannot reach the API.
func HostCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.IsHostAllowed(c.Request.Host) {
			log.Printf("Rejected request for host %q", c.Request.Host)
			c.Abort()
			writeError(c, &requestError{status: http.StatusForbidden, msg: "host not allowed"})
			return
		}
		c.Next()
	}
}

// sameOrigin reports whether origin names the host the request was sent to.
func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// corsSchemes are the origin schemes gin-contrib/cors accepts with the
// options below.
var corsSchemes = []string{"http://", "https://", "ws://", "wss://"}

// corsConfig builds the CORS policy from the configured origins. Origins
// with other schemes (tauri://, app://) still pass the WebSocket origin
// check but cannot be expressed to the CORS middleware and are skipped.
func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader},
		AllowWebSockets: true,
		MaxAge:          12 * time.Hour,
	}
	if cfg.AllowsAllOrigins() {
		cc.AllowAllOrigins = true
		return cc
	}

	for _, origin := range cfg.AllowOrigins {
		if hasAnyPrefix(origin, corsSchemes) {
			cc.AllowOrigins = append(cc.AllowOrigins, origin)
			continue
		}
		log.Printf("Warning: origin %s is not usable for CORS, only for WebSocket", origin)
	}
	if len(cc.AllowOrigins) == 0 {
		// cors.New rejects an empty policy; nothing cross-origin is allowed.
		cc.AllowOriginFunc = func(string) bool { return false }
	}
	return cc
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
