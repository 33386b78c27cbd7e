package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/utils"
)

// RecoveryMiddleware turns a panic into a 500 and logs its stack.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				if !c.Writer.Written() {
					utils.InternalError(c, "internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
