package runner

import (
	"context"

	"neoscanner/internal/core/model"
)

// PortRunner 端口扫描：探测 + 服务识别
type PortRunner struct {
	engines *Engines
	agg     *Aggregator
}

func NewPortRunner(e *Engines) *PortRunner {
	return &PortRunner{engines: e, agg: NewAggregator(nil)}
}

func (r *PortRunner) Name() model.TaskType {
	return model.TaskTypePortScan
}

func (r *PortRunner) Run(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	parts, err := r.engines.discover(ctx, task, false)
	if err != nil {
		return nil, err
	}
	return r.agg.Build(parts), nil
}

// VulnRunner 漏洞扫描：探测 + 服务识别 + TLS + 暴露面 + 规则评估
type VulnRunner struct {
	engines *Engines
	agg     *Aggregator
}

func NewVulnRunner(e *Engines) *VulnRunner {
	return &VulnRunner{engines: e, agg: NewAggregator(e.Rules)}
}

func (r *VulnRunner) Name() model.TaskType {
	return model.TaskTypeVulnScan
}

func (r *VulnRunner) Run(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	parts, err := r.engines.discover(ctx, task, true)
	if err != nil {
		return nil, err
	}
	return r.agg.Build(parts), nil
}

// SSLRunner 单端口 TLS 检查，目标可写成 host:port
type SSLRunner struct {
	engines *Engines
	agg     *Aggregator
}

func NewSSLRunner(e *Engines) *SSLRunner {
	return &SSLRunner{engines: e, agg: NewAggregator(e.Rules)}
}

func (r *SSLRunner) Name() model.TaskType {
	return model.TaskTypeSSLScan
}

func (r *SSLRunner) Run(ctx context.Context, task *model.Task) (*model.ScanReport, error) {
	parts, err := r.engines.inspectTLS(ctx, task)
	if err != nil {
		return nil, err
	}
	return r.agg.Build(parts), nil
}
