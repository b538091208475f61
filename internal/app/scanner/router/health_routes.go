/**
 * 路由:健康检查路由
 * @author: sun977
 * @date: 2025.10.21
 * @description: 健康检查、存活检查、版本信息
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neoscanner/internal/model/base"
	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/monitor"
	"neoscanner/internal/pkg/version"
)

// handleHealth 健康检查处理器，响应内容固定
func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scanner",
		"active":  "Actively reloading",
	})
}

// handleHealthDetail 带主机指标的健康检查
func (r *Router) handleHealthDetail(c *gin.Context) {
	snapshot := monitor.Collect(c.Request.Context())
	c.JSON(http.StatusOK, base.Success(http.StatusOK, "healthy", gin.H{
		"service":   "scanner",
		"version":   version.GetVersion(),
		"timestamp": logger.FormatTimestamp(snapshot.Collected),
		"metrics":   snapshot,
	}))
}

// handlePing Ping处理器
func (r *Router) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// handleVersion 版本信息处理器
func (r *Router) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "scanner",
		"version":     version.GetVersion(),
		"api_version": version.APIVersion,
		"build_time":  version.BuildTime,
		"git_commit":  version.GitCommit,
		"go_version":  version.GetGoVersion(),
	})
}
