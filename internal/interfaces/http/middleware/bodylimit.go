package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/interfaces/http/dto"
)

// BodyLimit rejects declared bodies above maxBytes and caps streamed ones.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.Set("error_code", dto.ErrCodeRequestTooLarge)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewCodeResponse(
				dto.ErrCodeRequestTooLarge,
				"request body exceeds the allowed size",
				GetRequestID(c),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
