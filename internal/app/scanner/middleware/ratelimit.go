/**
 * 限流中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: 按客户端IP的令牌桶限流，空闲超过 IdleTTL 的限流器被后台协程清理
 */
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"neoscanner/internal/model/base"
	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/utils"
)

const (
	DefaultRequestsPerSecond = 2
	DefaultBurstSize         = 5
	DefaultIdleTTL           = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 每个键一个令牌桶
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter 创建限流器并启动清理协程
func NewIPRateLimiter(rps float64, burst int, idleTTL time.Duration) *IPRateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurstSize
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	l := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow 消耗 key 对应桶中的一个令牌
func (l *IPRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Len 当前跟踪的键数量
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Stop 停止清理协程
func (l *IPRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup 清理空闲超时的限流器
func (l *IPRateLimiter) cleanup() {
	cutoff := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

// getRateLimiter 懒加载全局限流器
func (m *MiddlewareManager) getRateLimiter() *IPRateLimiter {
	m.rateLimiterOnce.Do(func() {
		cfg := m.config.RateLimit
		m.rateLimiter = NewIPRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize, cfg.IdleTTL)
	})
	return m.rateLimiter
}

// GinRateLimitMiddleware 限流中间件
func (m *MiddlewareManager) GinRateLimitMiddleware() gin.HandlerFunc {
	cfg := m.config.RateLimit
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := m.getRateLimiter()

	return func(c *gin.Context) {
		if shouldSkip(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		clientIP := utils.GetClientIP(c)
		if !limiter.Allow(clientIP) {
			logger.LogSecurityEvent("rate_limit", "low", clientIP, c.Request.URL.Path, "request", "rejected", map[string]interface{}{
				"request_id": c.GetString("request_id"),
			})
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(cfg.RequestsPerSecond)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, base.APIResponse{
				Code:    http.StatusTooManyRequests,
				Status:  base.StatusFailed,
				Message: "Rate limit exceeded",
				Error:   "RATE_LIMIT_EXCEEDED",
			})
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(rps float64) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/rps + 0.5)
}
