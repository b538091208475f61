package options

import (
	"fmt"
	"time"

	"neoscanner/internal/core/model"
	"neoscanner/internal/core/pipeline"
)

const DefaultPortRange = "1-1000"

type PortScanOptions struct {
	Target  string
	Port    string
	Timeout time.Duration // 0 表示使用配置的扫描总时限
	Output  OutputOptions
}

func NewPortScanOptions() *PortScanOptions {
	return &PortScanOptions{
		Port: DefaultPortRange,
	}
}

func (o *PortScanOptions) Validate() error {
	if o.Target == "" {
		return fmt.Errorf("target is required")
	}
	if o.Port == "" {
		return fmt.Errorf("port range is required")
	}
	if _, err := pipeline.ParsePortSpec(o.Port); err != nil {
		return err
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return o.Output.Validate()
}

func (o *PortScanOptions) ToTask() *model.Task {
	task := model.NewTask(model.TaskTypePortScan, o.Target, o.Port)
	task.Timeout = o.Timeout
	return task
}
