package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

const (
	sessionUserKey     = "user_id"
	rememberMaxAge     = 30 * 24 * 60 * 60 // 30 days, in seconds
	requestIDHeader    = "X-Request-Id"
	requestIDContext   = "request_id"
	loginPath          = "/auth/login"
	defaultRedirectURL = "/bugs"
)

// RequestID tags every request with an id for log correlation. An id
// supplied by the client (a proxy, usually) is kept.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContext, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	log := logging.New("http")
	return func(c *gin.Context) {
		c.Next()
		log.Info("request",
			"request_id", c.GetString(requestIDContext),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// RequireSession rejects unauthenticated requests. API routes get a 401
// JSON body; web routes are redirected to the login page with the
// original path preserved in ?next=.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserKey) != nil {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		next := url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, loginPath+"?next="+next)
		c.Abort()
	}
}
