package runner

import (
	"fmt"

	"neoscanner/internal/config"
	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/core/lib/network/qos"
	"neoscanner/internal/core/pipeline"
	"neoscanner/internal/core/scanner/exposure"
	"neoscanner/internal/core/scanner/port"
	"neoscanner/internal/core/scanner/service"
	"neoscanner/internal/core/scanner/ssl"
	"neoscanner/internal/core/scanner/vuln"
)

// Engines 各扫描阶段共享的只读组件，按配置构建一次
// 调度器与 RTT 估算器带有扫描内状态，每次扫描单独创建
type Engines struct {
	Scanner   *config.ScannerConfig
	SSL       *config.SSLConfig
	Resolver  *pipeline.Resolver
	Dialer    dialer.Dialer
	Services  *service.Engine
	Inspector *ssl.Inspector
	Exposures *exposure.Registry // nil 表示未启用
	Rules     *vuln.Engine
}

// NewEngines 根据配置构建扫描组件
func NewEngines(cfg *config.Config) (*Engines, error) {
	if cfg == nil || cfg.Scanner == nil || cfg.SSL == nil {
		return nil, fmt.Errorf("scanner and ssl config are required")
	}
	sc := cfg.Scanner

	d, err := dialer.New(sc.Proxy)
	if err != nil {
		return nil, fmt.Errorf("create dialer: %w", err)
	}

	resolver, err := pipeline.NewResolver(pipeline.ResolverOptions{
		MaxCIDRHosts: sc.MaxCIDRHosts,
		DNSServer:    sc.DNSServer,
		DenyCIDRs:    sc.DenyCIDRs,
	})
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	services, err := service.NewEngine(service.Options{
		BannerBytes:    sc.BannerBytes,
		BannerTimeout:  sc.BannerTimeout,
		ProbeTimeout:   sc.ProbeTimeout,
		Dialer:         d,
		SignaturesFile: sc.SignaturesFile,
	})
	if err != nil {
		return nil, fmt.Errorf("load service signatures: %w", err)
	}

	inspector, err := ssl.NewInspector(ssl.Options{
		HandshakeTimeout:  cfg.SSL.HandshakeTimeout,
		ExpiryWarningDays: cfg.SSL.ExpiryWarningDays,
		CAFile:            cfg.SSL.CAFile,
		Dialer:            d,
	})
	if err != nil {
		return nil, fmt.Errorf("create tls inspector: %w", err)
	}

	rulesFile := ""
	if cfg.Vuln != nil {
		rulesFile = cfg.Vuln.RulesFile
	}
	rules, err := vuln.NewEngine(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("load vulnerability rules: %w", err)
	}

	e := &Engines{
		Scanner:   sc,
		SSL:       cfg.SSL,
		Resolver:  resolver,
		Dialer:    d,
		Services:  services,
		Inspector: inspector,
		Rules:     rules,
	}
	if cfg.Exposure != nil && cfg.Exposure.Enabled {
		e.Exposures = exposure.NewRegistry(cfg.Exposure.Timeout, cfg.Exposure.Checks, exposure.All(d)...)
	}
	return e, nil
}

// newScan 为单次扫描创建调度器与指纹引擎，二者共享同一个 RTT 估算器
func (e *Engines) newScan() (*port.Scheduler, *service.Engine) {
	rtt := qos.NewRttEstimator()
	scheduler := port.NewScheduler(port.Options{
		Workers:      e.Scanner.Workers,
		ProbeTimeout: e.Scanner.ProbeTimeout,
		Adaptive:     e.Scanner.Adaptive,
		Dialer:       e.Dialer,
		RTT:          rtt,
	})
	return scheduler, e.Services.WithRTT(rtt)
}

func (e *Engines) hostParallelism() int {
	if e.Scanner.HostParallelism > 0 {
		return e.Scanner.HostParallelism
	}
	return 4
}

// isTLSPort 端口是否在配置的 TLS 检查端口中
func (e *Engines) isTLSPort(p int) bool {
	for _, tp := range e.SSL.Ports {
		if tp == p {
			return true
		}
	}
	return false
}
