package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"neoscanner/internal/core/model"
)

// table TabularData 的通用实现
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func (t *table) Title() string     { return t.title }
func (t *table) Headers() []string { return t.headers }
func (t *table) Rows() [][]string  { return t.rows }

// PortTable 端口探测结果，open 端口附带识别出的服务
func PortTable(report *model.ScanReport) TabularData {
	services := make(map[string]model.ServiceFingerprint, len(report.Services))
	for _, s := range report.Services {
		services[addrKey(s.IP, s.Port)] = s
	}

	t := &table{
		title:   "Ports",
		headers: []string{"IP", "Port", "State", "Latency(ms)", "Service", "Product", "Version"},
	}
	for _, p := range report.Probes {
		row := []string{p.IP, strconv.Itoa(p.Port), string(p.State), fmt.Sprintf("%.2f", p.LatencyMs), "", "", ""}
		if s, ok := services[addrKey(p.IP, p.Port)]; ok {
			row[4], row[5], row[6] = s.Service, s.Product, s.Version
			if s.PortHint != "" {
				row[4] = s.Service + " (" + s.PortHint + "?)"
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// OpenPortTable 仅包含 open 端口，控制台输出时使用
func OpenPortTable(report *model.ScanReport) TabularData {
	all := PortTable(report).(*table)
	open := &table{title: "Open Ports", headers: all.headers}
	for _, row := range all.rows {
		if row[2] == string(model.StateOpen) {
			open.rows = append(open.rows, row)
		}
	}
	return open
}

// TLSTable TLS 检查结果
func TLSTable(report *model.ScanReport) TabularData {
	t := &table{
		title:   "TLS",
		headers: []string{"Target", "IP", "Port", "Version", "Cipher", "Valid", "Days", "Errors"},
	}
	for _, f := range report.TLS {
		t.rows = append(t.rows, []string{
			f.Target,
			f.IP,
			strconv.Itoa(f.Port),
			f.Version,
			f.CipherSuite,
			strconv.FormatBool(f.CertificateValid),
			strconv.Itoa(f.DaysRemaining),
			strings.Join(f.Errors, "; "),
		})
	}
	return t
}

// ExposureTable 暴露面检查结果
func ExposureTable(report *model.ScanReport) TabularData {
	t := &table{
		title:   "Exposures",
		headers: []string{"IP", "Port", "Check", "Exposed", "Detail"},
	}
	for _, e := range report.Exposures {
		detail := e.Detail
		if e.Error != "" {
			detail = e.Error
		}
		t.rows = append(t.rows, []string{e.IP, strconv.Itoa(e.Port), e.Check, strconv.FormatBool(e.Exposed), detail})
	}
	return t
}

// VulnTable 漏洞规则命中结果
func VulnTable(report *model.ScanReport) TabularData {
	t := &table{
		title:   "Vulnerabilities",
		headers: []string{"Severity", "Rule", "IP", "Port", "Service", "Title", "Evidence"},
	}
	for _, v := range report.Vulnerabilities {
		port := ""
		if v.Port > 0 {
			port = strconv.Itoa(v.Port)
		}
		t.rows = append(t.rows, []string{string(v.Severity), v.RuleID, v.IP, port, v.Service, v.Title, v.Evidence})
	}
	return t
}

// PrimaryTable 报告的主表：端口扫描为端口列表，漏洞扫描为命中规则，SSL 为 TLS 结果
func PrimaryTable(report *model.ScanReport) TabularData {
	switch report.Kind {
	case model.TaskTypeVulnScan:
		return VulnTable(report)
	case model.TaskTypeSSLScan:
		return TLSTable(report)
	default:
		return PortTable(report)
	}
}

func addrKey(ip string, port int) string {
	return ip + "/" + strconv.Itoa(port)
}
