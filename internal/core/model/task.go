/**
 * 任务模型定义 (Core Domain)
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 核心任务模型，HTTP 与 CLI 两种入口最终都转换为此结构体交给 runner 执行
 */

package model

import (
	"time"
)

// TaskType 定义任务类型
type TaskType string

const (
	TaskTypePortScan TaskType = "port" // 端口扫描 + 服务识别
	TaskTypeVulnScan TaskType = "vuln" // 端口扫描 + 服务识别 + TLS + 暴露面 + 规则
	TaskTypeSSLScan  TaskType = "ssl"  // 单端口 TLS 检查
)

// TaskStatus 定义任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task 核心任务结构体
type Task struct {
	ID        string        `json:"id"`
	Type      TaskType      `json:"type"`
	Target    string        `json:"target"`               // 扫描目标 (IP/Domain/CIDR)
	PortRange string        `json:"port_range,omitempty"` // 端口范围 (e.g. "80,443,1000-2000")
	Timeout   time.Duration `json:"timeout"`              // 全局时限，0 表示使用配置值
	CreatedAt time.Time     `json:"created_at"`
}

// NewTask 创建一个新任务
func NewTask(taskType TaskType, target, portRange string) *Task {
	return &Task{
		Type:      taskType,
		Target:    target,
		PortRange: portRange,
		CreatedAt: time.Now(),
	}
}
