package vuln

import (
	"strings"

	"neoscanner/internal/core/model"
)

// Scope 规则作用的事实类型
type Scope string

const (
	ScopeService  Scope = "service"
	ScopeTLS      Scope = "tls"
	ScopeExposure Scope = "exposure"
)

// Facts 单个目标的规则输入
type Facts struct {
	Services  []model.ServiceFingerprint
	TLS       []model.TLSFinding
	Exposures []model.ExposureResult
}

// fact 规则匹配使用的扁平字段表，字段名即规则中的 field
type fact struct {
	ip       string
	port     int
	service  string
	evidence string // 缺省证据
	fields   map[string]interface{}
}

func serviceFact(fp model.ServiceFingerprint) fact {
	return fact{
		ip:       fp.IP,
		port:     fp.Port,
		service:  fp.LikelyService(),
		evidence: firstLine(fp.Banner),
		fields: map[string]interface{}{
			"ip":           fp.IP,
			"port":         fp.Port,
			"service":      fp.Service,
			"port_service": fp.PortHint,
			"product":      fp.Product,
			"version":      fp.Version,
			"confidence":   string(fp.Confidence),
			"banner":       fp.Banner,
			"tls":          fp.TLS,
		},
	}
}

func tlsFact(f model.TLSFinding) fact {
	return fact{
		ip:       f.IP,
		port:     f.Port,
		service:  "tls",
		evidence: strings.Join(f.Errors, "; "),
		fields: map[string]interface{}{
			"ip":                f.IP,
			"host":              f.Host,
			"port":              f.Port,
			"ssl_version":       f.Version,
			"cipher_suite":      f.CipherSuite,
			"subject":           f.Subject,
			"issuer":            f.Issuer,
			"days_remaining":    f.DaysRemaining,
			"handshake_ok":      f.HandshakeOK,
			"self_signed":       f.SelfSigned,
			"expired":           f.Expired,
			"not_yet_valid":     f.NotYetValid,
			"expiring_soon":     f.ExpiringSoon,
			"hostname_valid":    f.HostnameValid,
			"chain_valid":       f.ChainValid,
			"certificate_valid": f.CertificateValid,
			"legacy_protocol":   f.LegacyProtocol,
			"weak_cipher":       f.WeakCipher,
			"errors":            f.Errors,
		},
	}
}

func exposureFact(e model.ExposureResult) fact {
	return fact{
		ip:       e.IP,
		port:     e.Port,
		service:  e.Service,
		evidence: e.Detail,
		fields: map[string]interface{}{
			"ip":      e.IP,
			"port":    e.Port,
			"service": e.Service,
			"check":   e.Check,
			"exposed": e.Exposed,
			"detail":  e.Detail,
			"error":   e.Error,
		},
	}
}

// byScope 按作用域展开事实，保持输入顺序
func (f Facts) byScope(scope Scope) []fact {
	var out []fact
	switch scope {
	case ScopeService:
		for _, fp := range f.Services {
			out = append(out, serviceFact(fp))
		}
	case ScopeTLS:
		for _, t := range f.TLS {
			out = append(out, tlsFact(t))
		}
	case ScopeExposure:
		for _, e := range f.Exposures {
			out = append(out, exposureFact(e))
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return s
}
