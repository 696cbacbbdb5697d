package middleware

import (
	"net/http"

	"deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler отвечает на ошибку, добавленную через c.Error, если handler сам не записал ответ.
// Статус, выставленный через c.Status, тоже считается ответом.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() || c.Writer.Status() != http.StatusOK {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)
		if statusCode >= 500 {
			log.Error("Request failed", "path", c.FullPath(), "error", err.Err)
		}

		c.JSON(statusCode, gin.H{
			"error": err.Error(),
		})
	}
}
