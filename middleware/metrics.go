package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/storefront-service/pkg/aws"
)

// MetricsMiddleware pushes one CloudWatch batch per request: the request
// count, its latency and, for failures, the status class counter.
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    route,
		}
		data := []awspkg.Datum{
			awspkg.Count(awspkg.MetricHTTPRequests),
			awspkg.Latency(awspkg.MetricHTTPLatency, time.Since(start)),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			data = append(data, awspkg.Count(awspkg.MetricHTTP5xx))
		case status >= 400:
			data = append(data, awspkg.Count(awspkg.MetricHTTP4xx))
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsClient.Put(ctx, dimensions, data...)
		}()
	}
}
