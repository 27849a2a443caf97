package middleware

import (
	"net/http"

	"mobile-money-ledger/pkg/apperror"
	"mobile-money-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes bounds every JSON request the API accepts.
const DefaultMaxBodyBytes int64 = 64 << 10

// ErrBodyTooLarge is returned for requests over the body limit.
func ErrBodyTooLarge() *apperror.AppError {
	return apperror.New("VAL_000", "Request body too large", http.StatusRequestEntityTooLarge)
}

// MaxBodySize rejects requests whose declared length exceeds maxBytes and
// caps the reader for the rest, so a lying Content-Length still fails on
// bind.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
