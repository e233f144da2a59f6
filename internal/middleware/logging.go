package middleware

import (
	"log"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs one line per request. Access tokens passed in the
// query string are redacted.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.Query())

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method

		if query != "" {
			path = path + "?" + query
		}

		if id, ok := GetUserID(c); ok {
			log.Printf("[%s] %d | %s | %s | %s | user=%s", method, status, latency, c.ClientIP(), path, id)
		} else {
			log.Printf("[%s] %d | %s | %s | %s", method, status, latency, c.ClientIP(), path)
		}

		for _, err := range c.Errors {
			log.Printf("[HTTP] %s %s error: %v", method, path, err.Err)
		}
	}
}

func redactQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	if values.Has(TokenQueryParam) {
		values.Set(TokenQueryParam, "REDACTED")
	}
	return values.Encode()
}
