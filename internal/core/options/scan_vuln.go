package options

import (
	"neoscanner/internal/core/model"
)

// VulnScanOptions 漏洞扫描参数，校验规则与端口扫描一致
type VulnScanOptions struct {
	PortScanOptions
}

func NewVulnScanOptions() *VulnScanOptions {
	return &VulnScanOptions{
		PortScanOptions: *NewPortScanOptions(),
	}
}

func (o *VulnScanOptions) ToTask() *model.Task {
	task := model.NewTask(model.TaskTypeVulnScan, o.Target, o.Port)
	task.Timeout = o.Timeout
	return task
}
