package model

import "time"

// ProbeState 端口探测状态
type ProbeState string

const (
	StateOpen     ProbeState = "open"
	StateClosed   ProbeState = "closed"   // 连接被拒绝
	StateFiltered ProbeState = "filtered" // 不可达、被丢弃或扫描时限内未完成
	StateTimeout  ProbeState = "timeout"  // 单次探测超时
)

// Confidence 指纹置信度
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ProbeResult 单次端口探测结果
type ProbeResult struct {
	IP        string     `json:"ip"`
	Port      int        `json:"port"`
	State     ProbeState `json:"state"`
	LatencyMs float64    `json:"latency_ms"`
	Banner    string     `json:"banner,omitempty"`
}

// ServiceFingerprint 服务识别结果，生成后不再修改
type ServiceFingerprint struct {
	IP         string     `json:"ip"`
	Port       int        `json:"port"`
	Service    string     `json:"service"`
	Product    string     `json:"product,omitempty"`
	Version    string     `json:"version,omitempty"`
	Confidence Confidence `json:"confidence"`
	Banner     string     `json:"banner,omitempty"`
	TLS        bool       `json:"tls"`
	// PortHint 指纹未命中时按常见端口推断的服务名，Service 保持 unknown
	PortHint string `json:"port_service,omitempty"`
}

// ServiceUnknown 指纹未命中时的服务名
const ServiceUnknown = "unknown"

// LikelyService 识别出的服务名，未命中时退化为端口推断
func (f ServiceFingerprint) LikelyService() string {
	if (f.Service == "" || f.Service == ServiceUnknown) && f.PortHint != "" {
		return f.PortHint
	}
	return f.Service
}

// CertSummary 证书链中单张证书的摘要
type CertSummary struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	DNSNames  []string  `json:"dns_names,omitempty"`
	IsCA      bool      `json:"is_ca"`
}

// TLSFinding TLS 握手与证书检查结果
type TLSFinding struct {
	Target           string        `json:"target"`
	Host             string        `json:"host"`
	IP               string        `json:"ip,omitempty"`
	Port             int           `json:"port"`
	Version          string        `json:"ssl_version"`
	CipherSuite      string        `json:"cipher_suite,omitempty"`
	Subject          string        `json:"subject,omitempty"`
	Issuer           string        `json:"issuer,omitempty"`
	NotBefore        *time.Time    `json:"not_before,omitempty"`
	NotAfter         *time.Time    `json:"not_after,omitempty"`
	DaysRemaining    int           `json:"days_remaining"`
	DNSNames         []string      `json:"dns_names,omitempty"`
	Chain            []CertSummary `json:"chain,omitempty"`
	HandshakeOK      bool          `json:"handshake_ok"`
	SelfSigned       bool          `json:"self_signed"`
	Expired          bool          `json:"expired"`
	NotYetValid      bool          `json:"not_yet_valid"`
	ExpiringSoon     bool          `json:"expiring_soon"`
	HostnameValid    bool          `json:"hostname_valid"`
	ChainValid       bool          `json:"chain_valid"`
	CertificateValid bool          `json:"certificate_valid"`
	LegacyProtocol   bool          `json:"legacy_protocol"`
	WeakCipher       bool          `json:"weak_cipher"`
	Errors           []string      `json:"errors"`
}

// ExposureResult 匿名/空口令访问检查结果
type ExposureResult struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Service string `json:"service"`
	Check   string `json:"check"`
	Exposed bool   `json:"exposed"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VulnerabilityFinding 规则命中产生的发现，生成后不再修改
type VulnerabilityFinding struct {
	RuleID      string   `json:"rule_id"`
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IP          string   `json:"ip,omitempty"`
	Port        int      `json:"port,omitempty"`
	Service     string   `json:"service,omitempty"`
	Evidence    string   `json:"evidence,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

// ReportStatus 报告完成状态
type ReportStatus string

const (
	ReportCompleted ReportStatus = "completed"
	ReportPartial   ReportStatus = "partial" // 全局时限触发，部分探测被取消
)

// ScanReport 单个目标的扫描报告，拥有所有子记录
type ScanReport struct {
	ID              string                 `json:"id"`
	Kind            TaskType               `json:"kind"`
	Target          string                 `json:"target"`
	Ports           string                 `json:"ports,omitempty"`
	IPs             []string               `json:"ips"`
	Status          ReportStatus           `json:"status"`
	Probes          []ProbeResult          `json:"results"`
	Services        []ServiceFingerprint   `json:"services"`
	TLS             []TLSFinding           `json:"tls,omitempty"`
	Exposures       []ExposureResult       `json:"exposures,omitempty"`
	Vulnerabilities []VulnerabilityFinding `json:"vulnerabilities"`
	RiskLevel       Severity               `json:"risk_level"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
}

// Duration 扫描耗时
func (r *ScanReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// OpenPorts 返回开放端口数
func (r *ScanReport) OpenPorts() int {
	n := 0
	for _, p := range r.Probes {
		if p.State == StateOpen {
			n++
		}
	}
	return n
}
