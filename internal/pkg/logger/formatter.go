// 结构化日志辅助函数
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"neoscanner/internal/pkg/utils"
)

// LogType 日志类型枚举
type LogType string

const (
	// AccessLog 访问日志 - 记录HTTP请求
	AccessLog LogType = "access"
	// ErrorLog 错误日志 - 记录系统错误和异常
	ErrorLog LogType = "error"
	// SystemLog 系统日志 - 记录组件启停、配置重载
	SystemLog LogType = "system"
	// ScanLog 扫描日志 - 记录扫描任务执行情况
	ScanLog LogType = "scan"
	// SecurityLog 安全日志 - 认证失败、限流、目标策略拒绝
	SecurityLog LogType = "security"
)

// LogLevel 日志级别类型，封装logrus.Level避免Handler层直接依赖logrus
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

func merge(fields logrus.Fields, extra map[string]interface{}) logrus.Fields {
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// LogAccessRequest 记录HTTP访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	std().WithFields(logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": time.Since(startTime).Milliseconds(),
		"client_ip":     utils.GetClientIP(c),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    requestID,
		"request_size":  c.Request.ContentLength,
		"response_size": c.Writer.Size(),
	}).Info("HTTP request processed")
}

// LogError 记录错误日志
func LogError(err error, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if err == nil {
		return
	}

	fields := merge(logrus.Fields{
		"type":       ErrorLog,
		"error":      err.Error(),
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
	}, extraFields)

	std().WithFields(fields).Errorf("System error occurred: %s", err.Error())
}

// LogSystemEvent 记录系统事件日志
// 用于记录服务启动、关闭、配置重载等系统级事件
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	fields := merge(logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"detail":    message,
	}, extraFields)

	std().WithFields(fields).Log(toLogrusLevel(level), fmt.Sprintf("System event: %s - %s", component, event))
}

// LogScanOperation 记录扫描任务日志
// status: running/completed/partial/failed/cancelled
func LogScanOperation(taskID, scanType, target, status string, result string, duration time.Duration, extraFields map[string]interface{}) {
	fields := merge(logrus.Fields{
		"type":      ScanLog,
		"task_id":   taskID,
		"scan_type": scanType,
		"target":    target,
		"status":    status,
		"result":    result,
		"duration":  duration.Milliseconds(),
	}, extraFields)

	entry := std().WithFields(fields)
	switch status {
	case "completed", "partial":
		entry.Info(fmt.Sprintf("Scan %s: %s on %s", status, scanType, target))
	case "failed":
		entry.Warn(fmt.Sprintf("Scan failed: %s on %s", scanType, target))
	case "running":
		entry.Debug(fmt.Sprintf("Scan running: %s on %s", scanType, target))
	default:
		entry.Info(fmt.Sprintf("Scan %s: %s on %s", status, scanType, target))
	}
}

// LogSecurityEvent 记录安全事件日志
func LogSecurityEvent(eventType, severity, source, target, action, result string, extraFields map[string]interface{}) {
	fields := merge(logrus.Fields{
		"type":       SecurityLog,
		"event_type": eventType,
		"severity":   severity,
		"source":     source,
		"target":     target,
		"action":     action,
		"result":     result,
	}, extraFields)

	entry := std().WithFields(fields)
	switch severity {
	case "high", "critical":
		entry.Error(fmt.Sprintf("Security event: %s - %s", eventType, result))
	case "medium":
		entry.Warn(fmt.Sprintf("Security event: %s - %s", eventType, result))
	default:
		entry.Info(fmt.Sprintf("Security event: %s - %s", eventType, result))
	}
}
