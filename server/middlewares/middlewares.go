package middlewares

import (
	"strconv"
	"time"

	"github.com/Luismorlan/chirpmux/metrics"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIdHeader = "X-Request-Id"
	// Key of the request id in the gin context.
	RequestIdKey = "request_id"
)

// RequestId tags every request with an id, reusing the caller's X-Request-Id
// when present, and echoes it in the response.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIdHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIdKey, id)
		c.Header(RequestIdHeader, id)
		c.Next()
	}
}

// Logging writes one structured line per request once it is served.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := Logger.Log.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIdKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry.Warnln(c.Errors.String())
			return
		}
		entry.Info("request served")
	}
}

// Metrics reports the latency of every request tagged by route and status.
func Metrics(r metrics.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.Timing(metrics.HTTPRequest, time.Since(start),
			"route:"+route,
			"status:"+strconv.Itoa(c.Writer.Status()),
		)
	}
}
