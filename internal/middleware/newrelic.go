package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicSession tags the request's New Relic transaction with the caller
// and trip. It must run after nrgin.Middleware and RequireAuth; without a
// transaction it does nothing.
func NewRelicSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if session, ok := SessionFromContext(c); ok {
			txn.AddAttribute("user.id", session.UserID)
			txn.AddAttribute("user.type", string(session.UserType))
		}
		if tripID := c.Param("id"); tripID != "" {
			txn.AddAttribute("trip.id", tripID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
