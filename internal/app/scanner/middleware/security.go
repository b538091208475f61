package middleware

import (
	"github.com/gin-gonic/gin"
)

// GinSecurityHeadersMiddleware 安全响应头
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止MIME类型嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		// 防止点击劫持
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		// 隐藏服务器信息
		c.Header("Server", "NeoScan-Scanner")
		c.Next()
	}
}
