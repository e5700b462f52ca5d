package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/acquisitions/internal/interfaces/http/dto"
)

// BodyLimit caps the request body at maxBytes. Requests with a declared
// Content-Length over the limit are rejected up front; chunked bodies are
// wrapped with MaxBytesReader so reads fail once the limit is crossed.
// Invoice payloads scale with line count, so the cap is configurable
// rather than fixed.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			requestID := c.GetString(RequestIDKey)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(
					dto.ErrCodePayloadTooLarge,
					"Request body exceeds maximum allowed size",
					requestID,
				))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
