/**
 * 中间件:日志相关中间件
 * @author: sun977
 * @date: 2025.10.10
 * @description: 请求 ID 与访问日志
 * @func:
 *   - GinRequestIDMiddleware 为每个请求生成唯一ID
 *   - GinLoggingMiddleware 访问日志，慢请求单独告警
 */
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/utils"
)

// GinRequestIDMiddleware 请求ID中间件
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 检查是否已有请求ID（可能来自负载均衡器或代理）
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// GinLoggingMiddleware Gin日志中间件
// 使用方式: router.Use(middlewareManager.GinLoggingMiddleware())
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	cfg := m.config.Logging
	return func(c *gin.Context) {
		start := time.Now()

		// 标准化后的客户端IP，供后续业务使用
		c.Set("client_ip", utils.GetClientIP(c))

		c.Next()

		if !cfg.EnableRequestLog || shouldSkip(c.Request.URL.Path, cfg.SkipPaths) {
			return
		}
		logger.LogAccessRequest(c, start, c.GetString("request_id"))

		duration := time.Since(start)
		if cfg.SlowRequestThreshold > 0 && duration > cfg.SlowRequestThreshold {
			logger.WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"duration":   duration.Milliseconds(),
				"threshold":  cfg.SlowRequestThreshold.Milliseconds(),
				"request_id": c.GetString("request_id"),
			}).Warn("慢请求")
		}
	}
}
