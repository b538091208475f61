/**
 * 模型:扫描响应模型
 * @author: Sun977
 * @date: 2026.01.26
 * @description: 扫描接口的响应结构，由 ScanReport 转换得到
 */
package scan

import (
	"time"

	"neoscanner/internal/core/model"
)

// PortScanResponse 端口扫描响应
type PortScanResponse struct {
	ScanID     string                     `json:"scan_id"`
	Target     string                     `json:"target"`
	Ports      string                     `json:"ports"`
	IPs        []string                   `json:"ips"`
	Status     model.ReportStatus         `json:"status"`
	Results    []model.ProbeResult        `json:"results"`
	Services   []model.ServiceFingerprint `json:"services"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// NewPortScanResponse 从报告构造端口扫描响应
func NewPortScanResponse(r *model.ScanReport) *PortScanResponse {
	return &PortScanResponse{
		ScanID:     r.ID,
		Target:     r.Target,
		Ports:      r.Ports,
		IPs:        r.IPs,
		Status:     r.Status,
		Results:    r.Probes,
		Services:   r.Services,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// VulnScanResponse 漏洞扫描响应
type VulnScanResponse struct {
	ScanID          string                       `json:"scan_id"`
	Target          string                       `json:"target"`
	Ports           string                       `json:"ports"`
	Status          model.ReportStatus           `json:"status"`
	Vulnerabilities []model.VulnerabilityFinding `json:"vulnerabilities"`
	RiskLevel       model.Severity               `json:"risk_level"`
	Services        []model.ServiceFingerprint   `json:"services"`
	Exposures       []model.ExposureResult       `json:"exposures"`
	SSL             []model.TLSFinding           `json:"ssl"`
	StartedAt       time.Time                    `json:"started_at"`
	FinishedAt      time.Time                    `json:"finished_at"`
}

func NewVulnScanResponse(r *model.ScanReport) *VulnScanResponse {
	resp := &VulnScanResponse{
		ScanID:          r.ID,
		Target:          r.Target,
		Ports:           r.Ports,
		Status:          r.Status,
		Vulnerabilities: r.Vulnerabilities,
		RiskLevel:       r.RiskLevel,
		Services:        r.Services,
		Exposures:       r.Exposures,
		SSL:             r.TLS,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	if resp.Exposures == nil {
		resp.Exposures = []model.ExposureResult{}
	}
	if resp.SSL == nil {
		resp.SSL = []model.TLSFinding{}
	}
	return resp
}

// SSLScanResponse TLS 检查响应
// 顶层字段取第一个 IP 的检查结果，多 IP 时完整结果在 findings 中
type SSLScanResponse struct {
	*model.TLSFinding
	ScanID          string                       `json:"scan_id"`
	Target          string                       `json:"target"`
	Status          model.ReportStatus           `json:"status"`
	Findings        []model.TLSFinding           `json:"findings"`
	Vulnerabilities []model.VulnerabilityFinding `json:"vulnerabilities"`
	RiskLevel       model.Severity               `json:"risk_level"`
}

func NewSSLScanResponse(r *model.ScanReport) *SSLScanResponse {
	resp := &SSLScanResponse{
		ScanID:          r.ID,
		Target:          r.Target,
		Status:          r.Status,
		Findings:        r.TLS,
		Vulnerabilities: r.Vulnerabilities,
		RiskLevel:       r.RiskLevel,
	}
	if len(r.TLS) > 0 {
		first := r.TLS[0]
		resp.TLSFinding = &first
	} else {
		// 扫描时限先于握手结束
		resp.TLSFinding = &model.TLSFinding{Target: r.Target, Errors: []string{"no tls result before scan deadline"}}
		resp.Findings = []model.TLSFinding{}
	}
	return resp
}

// ScanListResponse 历史记录列表
type ScanListResponse struct {
	Total int           `json:"total"`
	Items []*ScanRecord `json:"items"`
}
