/**
 * 结果汇总
 * @author: sun977
 * @date: 2025.11.07
 * @description: 将探测、指纹、TLS、暴露面结果合并为单个目标的 ScanReport，
 * 所有列表按 (IP, 端口) 升序排列，规则发现保持规则表顺序
 */
package runner

import (
	"bytes"
	"net"
	"sort"
	"time"

	"neoscanner/internal/core/model"
	"neoscanner/internal/core/scanner/vuln"
)

// Parts 单次扫描的各阶段产出
type Parts struct {
	Task      *model.Task
	Target    *model.ScanTarget
	Ports     model.PortSpec
	Probes    []model.ProbeResult
	Services  []model.ServiceFingerprint
	TLS       []model.TLSFinding
	Exposures []model.ExposureResult
	Partial   bool // 扫描时限截断了部分工作
	StartedAt time.Time
}

// Aggregator 结果汇总器，rules 为空时不做规则评估
type Aggregator struct {
	rules *vuln.Engine
	now   func() time.Time
}

func NewAggregator(rules *vuln.Engine) *Aggregator {
	return &Aggregator{rules: rules, now: time.Now}
}

// Build 合并结果；规则在排序之后评估，保证相同输入得到相同顺序
func (a *Aggregator) Build(p Parts) *model.ScanReport {
	report := &model.ScanReport{
		Status:          model.ReportCompleted,
		Probes:          p.Probes,
		Services:        p.Services,
		TLS:             p.TLS,
		Exposures:       p.Exposures,
		Vulnerabilities: []model.VulnerabilityFinding{},
		StartedAt:       p.StartedAt,
		FinishedAt:      a.now(),
	}
	if report.Probes == nil {
		report.Probes = []model.ProbeResult{}
	}
	if report.Services == nil {
		report.Services = []model.ServiceFingerprint{}
	}
	if p.Task != nil {
		report.ID = p.Task.ID
		report.Kind = p.Task.Type
		report.Target = p.Task.Target
	}
	if p.Target != nil {
		report.IPs = p.Target.IPStrings()
	}
	if len(p.Ports) > 0 {
		report.Ports = p.Ports.String()
	}
	if p.Partial {
		report.Status = model.ReportPartial
	}

	sort.SliceStable(report.Probes, func(i, j int) bool {
		return addrLess(report.Probes[i].IP, report.Probes[i].Port, report.Probes[j].IP, report.Probes[j].Port)
	})
	sort.SliceStable(report.Services, func(i, j int) bool {
		return addrLess(report.Services[i].IP, report.Services[i].Port, report.Services[j].IP, report.Services[j].Port)
	})
	sort.SliceStable(report.TLS, func(i, j int) bool {
		return addrLess(report.TLS[i].IP, report.TLS[i].Port, report.TLS[j].IP, report.TLS[j].Port)
	})
	sort.SliceStable(report.Exposures, func(i, j int) bool {
		a, b := report.Exposures[i], report.Exposures[j]
		if a.IP == b.IP && a.Port == b.Port {
			return a.Check < b.Check
		}
		return addrLess(a.IP, a.Port, b.IP, b.Port)
	})

	copyBanners(report.Probes, report.Services)

	if a.rules != nil {
		report.Vulnerabilities = a.rules.Evaluate(vuln.Facts{
			Services:  report.Services,
			TLS:       report.TLS,
			Exposures: report.Exposures,
		})
	}
	report.RiskLevel = vuln.RiskLevel(report.Vulnerabilities)
	return report
}

// copyBanners 把指纹阶段读到的 banner 回填到对应探测结果
func copyBanners(probes []model.ProbeResult, services []model.ServiceFingerprint) {
	if len(services) == 0 {
		return
	}
	type key struct {
		ip   string
		port int
	}
	banners := make(map[key]string, len(services))
	for _, s := range services {
		if s.Banner != "" {
			banners[key{s.IP, s.Port}] = s.Banner
		}
	}
	for i := range probes {
		if b, ok := banners[key{probes[i].IP, probes[i].Port}]; ok {
			probes[i].Banner = b
		}
	}
}

// addrLess 按 IP 数值、端口升序比较
func addrLess(ipA string, portA int, ipB string, portB int) bool {
	if ipA != ipB {
		a, b := net.ParseIP(ipA), net.ParseIP(ipB)
		if a == nil || b == nil {
			return ipA < ipB
		}
		return bytes.Compare(a.To16(), b.To16()) < 0
	}
	return portA < portB
}
