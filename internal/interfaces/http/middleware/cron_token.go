package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CronTokenHeader carries the shared secret for cron trigger routes.
const CronTokenHeader = "X-Cron-Token"

// CronToken guards the HTTP cron surface with a shared secret, taken
// from the X-Cron-Token header or a ?token= query parameter. An empty
// configured token locks the surface entirely rather than opening it.
func CronToken(token string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(CronTokenHeader)
		if presented == "" {
			presented = c.Query("token")
		}

		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			if logger != nil {
				logger.Warn("Cron trigger rejected",
					zap.String("path", c.Request.URL.Path),
					zap.String("remote_addr", c.ClientIP()),
				)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Invalid or missing cron token",
				},
			})
			return
		}

		c.Next()
	}
}
