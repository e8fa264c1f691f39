package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridehail/internal/service"
)

const (
	sessionContextKey = "session"
	bearerPrefix      = "Bearer "

	// accessTokenParam carries the token on WebSocket upgrades, where browsers cannot set headers.
	accessTokenParam = "access_token"
)

// Authenticator turns a bearer token into a session.
type Authenticator interface {
	Authenticate(token string) (service.Session, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// session on the context for handlers.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, service.ErrNotAuthenticated)
			return
		}

		session, err := auth.Authenticate(token)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session set by RequireAuth.
func SessionFromContext(c *gin.Context) (service.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return service.Session{}, false
	}
	session, ok := v.(service.Session)
	return session, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	if c.IsWebsocket() {
		return c.Query(accessTokenParam)
	}
	return ""
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}
