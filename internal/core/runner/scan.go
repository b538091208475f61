package runner

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"neoscanner/internal/core/model"
	"neoscanner/internal/core/pipeline"
	"neoscanner/internal/core/scanner/service"
)

const (
	defaultPorts = "1-1000"
	// 单个主机上并行识别的开放端口数
	serviceParallelism = 16
)

// hostResult 单个 IP 的深度检查结果
type hostResult struct {
	services  []model.ServiceFingerprint
	tls       []model.TLSFinding
	exposures []model.ExposureResult
}

// prepare 先校验端口表达式再解析目标，两者的错误都是请求级错误
func (e *Engines) prepare(ctx context.Context, task *model.Task) (*model.ScanTarget, model.PortSpec, error) {
	spec := strings.TrimSpace(task.PortRange)
	if spec == "" {
		spec = e.Scanner.DefaultPorts
	}
	if spec == "" {
		spec = defaultPorts
	}
	ports, err := pipeline.ParsePortSpecLimit(spec, e.Scanner.MaxPorts)
	if err != nil {
		return nil, nil, err
	}

	target, err := e.Resolver.ResolveTarget(ctx, task.Target)
	if err != nil {
		return nil, nil, err
	}
	return target, ports, nil
}

// discover 端口探测 + 服务识别；deep 为 true 时继续做 TLS 与暴露面检查
func (e *Engines) discover(ctx context.Context, task *model.Task, deep bool) (Parts, error) {
	started := time.Now()
	target, ports, err := e.prepare(ctx, task)
	if err != nil {
		return Parts{}, err
	}

	scheduler, services := e.newScan()
	ips := target.IPStrings()
	probes, partial := scheduler.Run(ctx, ips, ports)

	open := make(map[string][]model.ProbeResult)
	for _, p := range probes {
		if p.State == model.StateOpen {
			open[p.IP] = append(open[p.IP], p)
		}
	}

	// SNMP 走 UDP，即使没有开放的 TCP 端口也要检查
	snmp := deep && e.Exposures != nil && ports.Contains(161)

	results := make([]hostResult, len(ips))
	g := new(errgroup.Group)
	g.SetLimit(e.hostParallelism())
	for i, ip := range ips {
		if len(open[ip]) == 0 && !snmp {
			continue
		}
		g.Go(func() error {
			results[i] = e.inspectHost(ctx, services, target.Hostname, ip, open[ip], ports, deep)
			return nil
		})
	}
	_ = g.Wait()

	parts := Parts{
		Task:      task,
		Target:    target,
		Ports:     ports,
		Probes:    probes,
		Partial:   partial || ctx.Err() != nil,
		StartedAt: started,
	}
	for _, r := range results {
		parts.Services = append(parts.Services, r.services...)
		parts.TLS = append(parts.TLS, r.tls...)
		parts.Exposures = append(parts.Exposures, r.exposures...)
	}
	return parts, nil
}

// inspectHost 识别单个 IP 上的开放端口，结果按输入顺序落槽
func (e *Engines) inspectHost(ctx context.Context, services *service.Engine, hostname, ip string, open []model.ProbeResult, ports model.PortSpec, deep bool) hostResult {
	var res hostResult

	res.services = make([]model.ServiceFingerprint, len(open))
	sg := new(errgroup.Group)
	sg.SetLimit(serviceParallelism)
	for i, p := range open {
		sg.Go(func() error {
			res.services[i] = services.Identify(ctx, p)
			return nil
		})
	}
	_ = sg.Wait()

	if !deep || ctx.Err() != nil {
		return res
	}

	var tlsPorts []int
	for _, fp := range res.services {
		if fp.TLS || e.isTLSPort(fp.Port) {
			tlsPorts = append(tlsPorts, fp.Port)
		}
	}
	if len(tlsPorts) > 0 {
		res.tls = make([]model.TLSFinding, len(tlsPorts))
		tg := new(errgroup.Group)
		tg.SetLimit(serviceParallelism)
		for i, p := range tlsPorts {
			tg.Go(func() error {
				res.tls[i] = *e.Inspector.Inspect(ctx, hostname, ip, p)
				return nil
			})
		}
		_ = tg.Wait()
	}

	if e.Exposures != nil && ctx.Err() == nil {
		res.exposures = e.Exposures.Run(ctx, ip, res.services, ports)
	}
	return res
}

// inspectTLS 对目标的全部 IP 做单端口 TLS 检查
func (e *Engines) inspectTLS(ctx context.Context, task *model.Task) (Parts, error) {
	started := time.Now()

	// 显式指定的 port 优先于 target 中的 host:port
	host, p := pipeline.SplitTargetPort(task.Target)
	if p == 0 || strings.TrimSpace(task.PortRange) != "" {
		var err error
		if p, err = e.sslPort(task.PortRange); err != nil {
			return Parts{}, err
		}
	}

	target, err := e.Resolver.ResolveTarget(ctx, host)
	if err != nil {
		return Parts{}, err
	}

	ips := target.IPStrings()
	findings := make([]model.TLSFinding, len(ips))
	g := new(errgroup.Group)
	g.SetLimit(e.hostParallelism())
	for i, ip := range ips {
		g.Go(func() error {
			findings[i] = *e.Inspector.Inspect(ctx, target.Hostname, ip, p)
			return nil
		})
	}
	_ = g.Wait()

	return Parts{
		Task:      task,
		Target:    target,
		Ports:     model.PortSpec{p},
		TLS:       findings,
		Partial:   ctx.Err() != nil,
		StartedAt: started,
	}, nil
}

// sslPort 解析 SSL 检查端口，空值使用配置默认端口
func (e *Engines) sslPort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if e.SSL.DefaultPort > 0 {
			return e.SSL.DefaultPort, nil
		}
		return 443, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > 65535 {
		return 0, &model.InvalidPortSpecError{Spec: raw, Reason: "ssl scan takes a single port in [1,65535]"}
	}
	return p, nil
}
