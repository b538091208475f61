/**
 * TLS 握手与证书检查
 * @author: sun977
 * @date: 2026.01.24
 * @description: 跳过校验完成握手以拿到完整证书链，再单独做链校验、有效期与主机名检查。
 *               所有失败都作为数据写入 TLSFinding.Errors，不返回 error
 */
package ssl

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/core/model"
)

const (
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultExpiryWarningDays = 30
)

// Options TLS 检查参数
type Options struct {
	HandshakeTimeout  time.Duration
	ExpiryWarningDays int
	CAFile            string // 为空时使用系统根证书
	Dialer            dialer.Dialer
}

// Inspector TLS 检查器
type Inspector struct {
	timeout  time.Duration
	warnDays int
	roots    *x509.CertPool // nil 表示系统根证书
	dialer   dialer.Dialer
	now      func() time.Time
}

// NewInspector 创建检查器，CAFile 读取或解析失败时返回错误
func NewInspector(opts Options) (*Inspector, error) {
	i := &Inspector{
		timeout:  opts.HandshakeTimeout,
		warnDays: opts.ExpiryWarningDays,
		dialer:   opts.Dialer,
		now:      time.Now,
	}
	if i.timeout <= 0 {
		i.timeout = DefaultHandshakeTimeout
	}
	if i.warnDays <= 0 {
		i.warnDays = DefaultExpiryWarningDays
	}
	if i.dialer == nil {
		i.dialer = dialer.NewDirectDialer()
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca file %s contains no certificates", opts.CAFile)
		}
		i.roots = pool
	}
	return i, nil
}

// Inspect 对 ip:port 握手检查，host 为主机名（用于 SNI 与主机名校验），可为空
// ip 为空时直接连接 host
func (i *Inspector) Inspect(ctx context.Context, host, ip string, port int) *model.TLSFinding {
	dialHost := ip
	if dialHost == "" {
		dialHost = host
	}
	target := host
	if target == "" {
		target = ip
	}
	finding := &model.TLSFinding{
		Target: target,
		Host:   host,
		IP:     ip,
		Port:   port,
		Errors: []string{},
	}

	addr := net.JoinHostPort(dialHost, strconv.Itoa(port))
	state, err := i.handshake(ctx, addr, host)
	if err != nil {
		finding.Errors = append(finding.Errors, (&model.HandshakeError{Addr: addr, Err: err}).Error())
		return finding
	}

	i.analyze(finding, state, host)
	return finding
}

func (i *Inspector) handshake(ctx context.Context, addr, serverName string) (tls.ConnectionState, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	conn, err := i.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return tls.ConnectionState{}, err
	}
	defer conn.Close()

	tconn := tls.Client(conn, &tls.Config{
		InsecureSkipVerify: true,
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS10,
		// 显式列出不安全套件，才能发现服务端仍在使用它们
		CipherSuites: allCipherSuites(),
	})
	if err := tconn.HandshakeContext(ctx); err != nil {
		return tls.ConnectionState{}, err
	}
	return tconn.ConnectionState(), nil
}

// analyze 根据握手结果填充证书相关字段
func (i *Inspector) analyze(f *model.TLSFinding, state tls.ConnectionState, host string) {
	f.HandshakeOK = true
	f.Version = tls.VersionName(state.Version)
	f.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
	f.LegacyProtocol = state.Version < tls.VersionTLS12
	f.WeakCipher = isInsecureSuite(state.CipherSuite)

	if len(state.PeerCertificates) == 0 {
		f.Errors = append(f.Errors, "no peer certificate presented")
		return
	}

	leaf := state.PeerCertificates[0]
	now := i.now()

	f.Subject = leaf.Subject.String()
	f.Issuer = leaf.Issuer.String()
	notBefore, notAfter := leaf.NotBefore, leaf.NotAfter
	f.NotBefore = &notBefore
	f.NotAfter = &notAfter
	f.DNSNames = leaf.DNSNames
	for _, c := range state.PeerCertificates {
		f.Chain = append(f.Chain, model.CertSummary{
			Subject:   c.Subject.String(),
			Issuer:    c.Issuer.String(),
			NotBefore: c.NotBefore,
			NotAfter:  c.NotAfter,
			DNSNames:  c.DNSNames,
			IsCA:      c.IsCA,
		})
	}

	// 有效期
	f.DaysRemaining = int(math.Floor(notAfter.Sub(now).Hours() / 24))
	switch {
	case now.After(notAfter):
		f.Expired = true
		f.Errors = append(f.Errors, fmt.Sprintf("certificate expired %d days ago", daysBetween(notAfter, now)))
	case now.Before(notBefore):
		f.NotYetValid = true
		f.Errors = append(f.Errors, fmt.Sprintf("certificate not valid for %d more days", daysBetween(now, notBefore)))
	case f.DaysRemaining < i.warnDays:
		// 仅告警，不影响 CertificateValid
		f.ExpiringSoon = true
		f.Errors = append(f.Errors, fmt.Sprintf("certificate expires in %d days", f.DaysRemaining))
	}

	// 主机名，没有主机名（直接给 IP）时不检查
	f.HostnameValid = true
	if host != "" {
		if err := leaf.VerifyHostname(host); err != nil {
			f.HostnameValid = false
			f.Errors = append(f.Errors, "hostname mismatch: "+err.Error())
		}
	}

	// 证书链，校验时间取证书有效期内，过期问题已在上面单独报告
	f.SelfSigned = isSelfSigned(leaf)
	intermediates := x509.NewCertPool()
	for _, c := range state.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         i.roots,
		Intermediates: intermediates,
		CurrentTime:   verifyTime(leaf, now),
	})
	f.ChainValid = err == nil
	if err != nil {
		if f.SelfSigned {
			f.Errors = append(f.Errors, "self-signed certificate")
		} else {
			f.Errors = append(f.Errors, "untrusted certificate chain: "+err.Error())
		}
	}

	f.CertificateValid = f.ChainValid && !f.Expired && !f.NotYetValid && f.HostnameValid
}

// verifyTime 证书不在有效期内时，取有效期内的时间点做链校验
func verifyTime(leaf *x509.Certificate, now time.Time) time.Time {
	if now.After(leaf.NotAfter) {
		return leaf.NotAfter.Add(-time.Second)
	}
	if now.Before(leaf.NotBefore) {
		return leaf.NotBefore.Add(time.Second)
	}
	return now
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func isSelfSigned(cert *x509.Certificate) bool {
	if cert.Subject.String() != cert.Issuer.String() {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}

func isInsecureSuite(id uint16) bool {
	for _, s := range tls.InsecureCipherSuites() {
		if s.ID == id {
			return true
		}
	}
	return false
}

func allCipherSuites() []uint16 {
	var ids []uint16
	for _, s := range tls.CipherSuites() {
		ids = append(ids, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		ids = append(ids, s.ID)
	}
	return ids
}
