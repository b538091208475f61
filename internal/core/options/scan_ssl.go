package options

import (
	"fmt"
	"strconv"
	"time"

	"neoscanner/internal/core/model"
)

// SSLScanOptions TLS 检查参数，Port 为 0 时使用配置的默认端口，Target 也可写成 host:port
type SSLScanOptions struct {
	Target  string
	Port    int
	Timeout time.Duration
	Output  OutputOptions
}

func NewSSLScanOptions() *SSLScanOptions {
	return &SSLScanOptions{}
}

func (o *SSLScanOptions) Validate() error {
	if o.Target == "" {
		return fmt.Errorf("target is required")
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port out of range: %d", o.Port)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return o.Output.Validate()
}

func (o *SSLScanOptions) ToTask() *model.Task {
	port := ""
	if o.Port > 0 {
		port = strconv.Itoa(o.Port)
	}
	task := model.NewTask(model.TaskTypeSSLScan, o.Target, port)
	task.Timeout = o.Timeout
	return task
}
