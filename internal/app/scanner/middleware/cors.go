package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"neoscanner/internal/pkg/logger"
)

// GinCORSMiddleware CORS中间件，允许的来源由 ALLOWED_ORIGINS 配置，可热更新
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cfg := m.config.CORS
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" && m.isOriginAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			if allowMethods != "" {
				c.Header("Access-Control-Allow-Methods", allowMethods)
			}
			if allowHeaders != "" {
				c.Header("Access-Control-Allow-Headers", allowHeaders)
			}
			if exposeHeaders != "" {
				c.Header("Access-Control-Expose-Headers", exposeHeaders)
			}
			if cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		// 处理预检请求
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			if origin == "" || !m.isOriginAllowed(origin) {
				logger.WithField("origin", origin).Warn("CORS preflight request denied")
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			if cfg.MaxAge > 0 {
				c.Header("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// UpdateCORSOrigins 替换允许的来源列表，配置热重载时调用
func (m *MiddlewareManager) UpdateCORSOrigins(origins []string) {
	m.originsMu.Lock()
	m.origins = append([]string(nil), origins...)
	m.originsMu.Unlock()
	logger.WithField("origins", origins).Info("CORS allowed origins updated")
}

// isOriginAllowed 检查源是否被允许，"*" 允许全部
func (m *MiddlewareManager) isOriginAllowed(origin string) bool {
	m.originsMu.RLock()
	defer m.originsMu.RUnlock()
	for _, allowed := range m.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
