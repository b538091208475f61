/**
 * 扫描服务路由注册
 * @author: sun977
 * @date: 2025.10.21
 * @description: 路由表在启动时构建一次，按表注册，需要认证的路由单独挂 API Key 中间件
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"neoscanner/internal/app/scanner/middleware"
	"neoscanner/internal/config"
	scanHandler "neoscanner/internal/handler/scan"
	"neoscanner/internal/pkg/logger"
	scanService "neoscanner/internal/service/scan"
)

// route 路由表中的一项
type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
	auth    bool // 是否需要 API Key
}

// Router 扫描服务路由器
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	scanHandler       *scanHandler.ScanHandler
	routes            []route
}

// NewRouter 创建路由器并完成注册
func NewRouter(cfg *config.Config, svc scanService.ScanService) *Router {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		config:            cfg,
		engine:            gin.New(),
		middlewareManager: middleware.NewMiddlewareManager(cfg.Middleware),
		scanHandler:       scanHandler.NewScanHandler(svc),
	}
	r.routes = r.buildRoutes()

	r.registerGlobalMiddleware()
	r.registerRoutes()
	return r
}

// buildRoutes 构建路由表
func (r *Router) buildRoutes() []route {
	return []route{
		// 健康检查
		{http.MethodGet, "/health", r.handleHealth, false},
		{http.MethodGet, "/health/detail", r.handleHealthDetail, true},
		{http.MethodGet, "/ping", r.handlePing, false},
		{http.MethodGet, "/version", r.handleVersion, false},

		// 扫描
		{http.MethodPost, "/scan/ports", r.scanHandler.ScanPorts, true},
		{http.MethodPost, "/scan/vulnerabilities", r.scanHandler.ScanVulnerabilities, true},
		{http.MethodPost, "/scan/ssl", r.scanHandler.ScanSSL, true},

		// 扫描历史
		{http.MethodGet, "/scans", r.scanHandler.ListScans, true},
		{http.MethodGet, "/scans/:id", r.scanHandler.GetScan, true},
	}
}

// registerGlobalMiddleware 注册全局中间件
func (r *Router) registerGlobalMiddleware() {
	logger.Debug("开始注册全局中间件")

	r.engine.Use(
		gin.Recovery(),
		r.middlewareManager.GinRequestIDMiddleware(),
		r.middlewareManager.GinLoggingMiddleware(),
		r.middlewareManager.GinSecurityHeadersMiddleware(),
		r.middlewareManager.GinCORSMiddleware(),
		r.middlewareManager.GinRateLimitMiddleware(),
	)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"status":  "failed",
			"message": "route not found",
		})
	})

	logger.Debug("全局中间件注册完成")
}

// registerRoutes 按路由表注册
func (r *Router) registerRoutes() {
	auth := r.middlewareManager.GinAPIKeyAuthMiddleware()
	for _, rt := range r.routes {
		handlers := []gin.HandlerFunc{rt.handler}
		if rt.auth {
			handlers = []gin.HandlerFunc{auth, rt.handler}
		}
		r.engine.Handle(rt.method, rt.path, handlers...)
	}

	logger.WithFields(logrus.Fields{
		"routes":    len(r.routes),
		"auth":      r.config.Middleware != nil && r.config.Middleware.Auth != nil && r.config.Middleware.Auth.Enabled,
		"func_name": "router.registerRoutes",
	}).Info("路由注册完成")
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// UpdateCORSOrigins 热更新 CORS 来源
func (r *Router) UpdateCORSOrigins(origins []string) {
	r.middlewareManager.UpdateCORSOrigins(origins)
}

// Close 释放中间件的后台资源
func (r *Router) Close() {
	r.middlewareManager.Close()
}
