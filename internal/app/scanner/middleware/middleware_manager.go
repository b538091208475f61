package middleware

import (
	"sync"

	"neoscanner/internal/config"
)

// MiddlewareManager 中间件管理器
// 负责管理所有Gin框架的中间件，提供统一的中间件接口
type MiddlewareManager struct {
	config *config.MiddlewareConfig

	// CORS 来源支持热更新
	originsMu sync.RWMutex
	origins   []string

	rateLimiter     *IPRateLimiter
	rateLimiterOnce sync.Once
}

// NewMiddlewareManager 创建中间件管理器，缺省的子配置按关闭处理
func NewMiddlewareManager(cfg *config.MiddlewareConfig) *MiddlewareManager {
	if cfg == nil {
		cfg = &config.MiddlewareConfig{}
	}
	if cfg.Auth == nil {
		cfg.Auth = &config.AuthConfig{}
	}
	if cfg.Logging == nil {
		cfg.Logging = &config.LoggingConfig{}
	}
	if cfg.CORS == nil {
		cfg.CORS = &config.CORSConfig{}
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = &config.RateLimitConfig{}
	}
	return &MiddlewareManager{
		config:  cfg,
		origins: append([]string(nil), cfg.CORS.AllowOrigins...),
	}
}

// Close 停止后台清理协程
func (m *MiddlewareManager) Close() {
	if m.rateLimiter != nil {
		m.rateLimiter.Stop()
	}
}

// shouldSkipExact 路径精确匹配，认证使用，子路径不继承免认证
func shouldSkipExact(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if p != "" && path == p {
			return true
		}
	}
	return false
}

// shouldSkip 路径前缀匹配，用于日志与限流
func shouldSkip(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if p != "" && (path == p || len(path) > len(p) && path[:len(p)] == p && path[len(p)] == '/') {
			return true
		}
	}
	return false
}
