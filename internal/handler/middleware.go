package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// LoggerMiddleware 返回请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}

		if c.Writer.Status() >= 500 {
			logger.Error("http request", fields...)
		} else {
			logger.Debug("http request", fields...)
		}
	}
}

// MetricsMiddleware 返回 Prometheus 指标记录中间件
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点自身，避免自循环
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// 使用模板路径而非实际路径，避免高基数
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// RecoveryMiddleware 返回 panic 恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Error("panic recovered",
			zap.Any("error", err),
			zap.String("path", c.Request.URL.Path))
		Error(c, ErrInternal)
		c.Abort()
	})
}
