/**
 * 模型:扫描请求模型
 * @author: Sun977
 * @date: 2026.01.26
 * @description: 三个扫描接口的请求 DTO，字段可来自 query 或 JSON body，
 *               由 gin binding 标签和自定义 portspec 校验器校验
 */
package scan

import (
	"strconv"
	"time"

	"neoscanner/internal/core/model"
)

const DefaultPortRange = "1-1000"

// PortScanRequest 端口扫描请求
type PortScanRequest struct {
	Target  string `form:"target" json:"target" binding:"required,max=255"`          // 扫描目标 IP/域名/CIDR，必填
	Ports   string `form:"ports" json:"ports" binding:"omitempty,portspec"`          // 端口表达式，默认 1-1000
	Timeout int    `form:"timeout" json:"timeout" binding:"omitempty,min=1,max=300"` // 扫描总时限(秒)，可选
}

// ToTask 转换为核心任务
func (r *PortScanRequest) ToTask() *model.Task {
	ports := r.Ports
	if ports == "" {
		ports = DefaultPortRange
	}
	task := model.NewTask(model.TaskTypePortScan, r.Target, ports)
	task.Timeout = time.Duration(r.Timeout) * time.Second
	return task
}

// VulnScanRequest 漏洞扫描请求，字段与端口扫描一致
type VulnScanRequest struct {
	Target  string `form:"target" json:"target" binding:"required,max=255"`
	Ports   string `form:"ports" json:"ports" binding:"omitempty,portspec"`
	Timeout int    `form:"timeout" json:"timeout" binding:"omitempty,min=1,max=300"`
}

func (r *VulnScanRequest) ToTask() *model.Task {
	ports := r.Ports
	if ports == "" {
		ports = DefaultPortRange
	}
	task := model.NewTask(model.TaskTypeVulnScan, r.Target, ports)
	task.Timeout = time.Duration(r.Timeout) * time.Second
	return task
}

// SSLScanRequest TLS 检查请求，target 可写成 host:port
type SSLScanRequest struct {
	Target  string `form:"target" json:"target" binding:"required,max=255"`
	Port    int    `form:"port" json:"port" binding:"omitempty,min=1,max=65535"` // 默认 443
	Timeout int    `form:"timeout" json:"timeout" binding:"omitempty,min=1,max=300"`
}

func (r *SSLScanRequest) ToTask() *model.Task {
	port := ""
	if r.Port > 0 {
		port = strconv.Itoa(r.Port)
	}
	task := model.NewTask(model.TaskTypeSSLScan, r.Target, port)
	task.Timeout = time.Duration(r.Timeout) * time.Second
	return task
}

// ListScansRequest 历史记录查询
type ListScansRequest struct {
	Limit int64 `form:"limit" binding:"omitempty,min=1,max=100"`
}
