package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is stored.
	RequestIDKey = "request_id"

	// maxRequestIDLength bounds caller-supplied identifiers before they reach the logs
	maxRequestIDLength = 128
)

// RequestIDMiddleware ensures every request carries an identifier, propagated as
// X-Request-ID. A well-formed inbound header (printable ASCII, at most 128 bytes) is
// reused; anything else is replaced with a new UUID v4.
//
// The identifier is stored in gin.Context under RequestIDKey for RequestLogger and echoed
// back on the response so callers can correlate their request with server logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
