/**
 * 认证中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: API Key 认证，白名单 IP（支持 CIDR）免认证
 */
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neoscanner/internal/model/base"
	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/utils"
)

const APIKeyHeader = "X-API-Key"

// GinAPIKeyAuthMiddleware API Key 认证中间件
// 只挂在路由表中标记需要认证的路由上
func (m *MiddlewareManager) GinAPIKeyAuthMiddleware() gin.HandlerFunc {
	cfg := m.config.Auth
	return func(c *gin.Context) {
		if !cfg.Enabled || shouldSkipExact(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		clientIP := utils.GetClientIP(c)
		if utils.IPInList(clientIP, cfg.WhitelistIPs) {
			c.Next()
			return
		}

		key := extractAPIKey(c)
		if key == "" || !validAPIKey(key, cfg.APIKeys) {
			result := "missing api key"
			if key != "" {
				result = "invalid api key"
			}
			logger.LogSecurityEvent("auth_failed", "medium", clientIP, c.Request.URL.Path, "api_key_auth", result, map[string]interface{}{
				"method":     c.Request.Method,
				"request_id": c.GetString("request_id"),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, base.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  base.StatusFailed,
				Message: "Unauthorized",
				Error:   result,
			})
			return
		}

		c.Next()
	}
}

// extractAPIKey 优先取 X-API-Key，其次 Authorization: Bearer
func extractAPIKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func validAPIKey(key string, keys []string) bool {
	ok := false
	for _, k := range keys {
		if k != "" && subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}
