package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/yl2chen/cidranger"

	"neoscanner/internal/core/model"
)

const defaultLookupTimeout = 5 * time.Second

var (
	hostnamePattern = regexp.MustCompile(`^(?i)[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9])?(\.[a-z0-9_]([a-z0-9_-]{0,61}[a-z0-9])?)*\.?$`)
	numericPattern  = regexp.MustCompile(`^[0-9.]+$`)
)

// ResolverOptions 目标解析参数
type ResolverOptions struct {
	MaxCIDRHosts  int           // CIDR/区间展开上限
	DNSServer     string        // 非空时通过 miekg/dns 直接查询该服务器 (host:port)
	DenyCIDRs     []string      // 禁止扫描的网段
	LookupTimeout time.Duration // 域名解析超时
}

// Resolver 将目标表达式解析为 IP 列表
// 支持：单个 IP、CIDR、IP 区间 (a-b)、域名、带 scheme 的 URL
type Resolver struct {
	maxHosts int
	server   string
	timeout  time.Duration
	deny     cidranger.Ranger
	lookup   func(ctx context.Context, host string) ([]net.IP, error)
}

// NewResolver 创建解析器，deny 网段格式错误时返回错误
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	r := &Resolver{
		maxHosts: opts.MaxCIDRHosts,
		server:   opts.DNSServer,
		timeout:  opts.LookupTimeout,
	}
	if r.maxHosts <= 0 {
		r.maxHosts = 1024
	}
	if r.timeout <= 0 {
		r.timeout = defaultLookupTimeout
	}
	if r.server != "" {
		if _, _, err := net.SplitHostPort(r.server); err != nil {
			r.server = net.JoinHostPort(r.server, "53")
		}
		r.lookup = r.lookupDNS
	} else {
		r.lookup = lookupSystem
	}

	if len(opts.DenyCIDRs) > 0 {
		r.deny = cidranger.NewPCTrieRanger()
		for _, c := range opts.DenyCIDRs {
			_, network, err := net.ParseCIDR(strings.TrimSpace(c))
			if err != nil {
				return nil, fmt.Errorf("invalid deny cidr %q: %w", c, err)
			}
			if err := r.deny.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
				return nil, fmt.Errorf("insert deny cidr %q: %w", c, err)
			}
		}
	}
	return r, nil
}

// ResolveTarget 解析目标表达式
// 格式错误或无地址返回 ResolutionError，展开超限返回 RangeTooLargeError
func (r *Resolver) ResolveTarget(ctx context.Context, spec string) (*model.ScanTarget, error) {
	original := spec
	spec = normalizeTarget(spec)
	if spec == "" {
		return nil, &model.ResolutionError{Target: original, Reason: "empty target"}
	}

	target := &model.ScanTarget{Original: original}

	switch {
	case strings.Contains(spec, "/"):
		ips, err := r.expandCIDR(original, spec)
		if err != nil {
			return nil, err
		}
		target.IPs = ips

	case isIPRange(spec):
		ips, err := r.expandRange(original, spec)
		if err != nil {
			return nil, err
		}
		target.IPs = ips

	default:
		if ip := net.ParseIP(spec); ip != nil {
			target.IPs = []net.IP{ip}
			break
		}
		if numericPattern.MatchString(spec) {
			return nil, &model.ResolutionError{Target: original, Reason: "invalid IP address"}
		}
		if !hostnamePattern.MatchString(spec) || len(spec) > 253 {
			return nil, &model.ResolutionError{Target: original, Reason: "malformed hostname"}
		}

		lctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		ips, err := r.lookup(lctx, spec)
		if err != nil {
			return nil, &model.ResolutionError{Target: original, Reason: "lookup failed", Err: err}
		}
		if len(ips) == 0 {
			return nil, &model.ResolutionError{Target: original, Reason: "no addresses found"}
		}
		target.Hostname = strings.TrimSuffix(spec, ".")
		target.IPs = ips
	}

	target.IPs = sortUnique(target.IPs)
	if err := r.checkPolicy(original, target.IPs); err != nil {
		return nil, err
	}
	return target, nil
}

// checkPolicy 目标策略：禁止扫描 deny 网段内的地址
func (r *Resolver) checkPolicy(original string, ips []net.IP) error {
	if r.deny == nil {
		return nil
	}
	for _, ip := range ips {
		denied, err := r.deny.Contains(ip)
		if err != nil {
			return &model.ResolutionError{Target: original, Reason: "policy check failed", Err: err}
		}
		if denied {
			return &model.ResolutionError{Target: original, Reason: fmt.Sprintf("target %s denied by policy", ip)}
		}
	}
	return nil
}

// expandCIDR 展开 CIDR，IPv4 前缀短于 /31 时去掉网络地址与广播地址
func (r *Resolver) expandCIDR(original, spec string) ([]net.IP, error) {
	_, network, err := net.ParseCIDR(spec)
	if err != nil {
		return nil, &model.ResolutionError{Target: original, Reason: "invalid CIDR", Err: err}
	}

	ones, bits := network.Mask.Size()
	hostBits := bits - ones
	var total uint64 = math.MaxUint64
	if hostBits < 64 {
		total = uint64(1) << uint(hostBits)
	}
	trimEdges := bits == 32 && hostBits >= 2
	usable := total
	if trimEdges {
		usable -= 2
	}
	if usable > uint64(r.maxHosts) {
		return nil, &model.RangeTooLargeError{Target: original, Hosts: usable, Limit: r.maxHosts}
	}

	ips := make([]net.IP, 0, usable)
	start := network.IP.Mask(network.Mask)
	for ip := cloneIP(start); network.Contains(ip); inc(ip) {
		ips = append(ips, cloneIP(ip))
		if len(ips) > int(total) {
			break
		}
	}
	if trimEdges && len(ips) >= 2 {
		ips = ips[1 : len(ips)-1]
	}
	return ips, nil
}

// expandRange 展开 "a-b" 形式的地址区间
func (r *Resolver) expandRange(original, spec string) ([]net.IP, error) {
	parts := strings.SplitN(spec, "-", 2)
	startIP := net.ParseIP(strings.TrimSpace(parts[0]))
	endIP := net.ParseIP(strings.TrimSpace(parts[1]))
	if startIP == nil || endIP == nil {
		return nil, &model.ResolutionError{Target: original, Reason: "invalid IP range"}
	}
	if s4, e4 := startIP.To4(), endIP.To4(); s4 != nil && e4 != nil {
		startIP, endIP = s4, e4
	} else if (s4 == nil) != (e4 == nil) {
		return nil, &model.ResolutionError{Target: original, Reason: "mixed address families in range"}
	}
	if bytes.Compare(startIP, endIP) > 0 {
		return nil, &model.ResolutionError{Target: original, Reason: "range start is after range end"}
	}

	var ips []net.IP
	for ip := cloneIP(startIP); bytes.Compare(ip, endIP) <= 0; inc(ip) {
		if len(ips) >= r.maxHosts {
			return nil, &model.RangeTooLargeError{Target: original, Hosts: uint64(len(ips)) + 1, Limit: r.maxHosts}
		}
		ips = append(ips, cloneIP(ip))
		if isMax(ip) {
			break
		}
	}
	return ips, nil
}

// lookupSystem 使用系统解析器
func lookupSystem(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// lookupDNS 直接向配置的 DNS 服务器查询 A/AAAA 记录
func (r *Resolver) lookupDNS(ctx context.Context, host string) ([]net.IP, error) {
	client := &dns.Client{Timeout: r.timeout}
	var ips []net.IP
	var lastErr error

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		in, _, err := client.ExchangeContext(ctx, msg, r.server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("dns %s: %s", dns.TypeToString[qtype], dns.RcodeToString[in.Rcode])
			continue
		}
		for _, rr := range in.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				ips = append(ips, rec.A)
			case *dns.AAAA:
				ips = append(ips, rec.AAAA)
			}
		}
	}
	if len(ips) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return ips, nil
}

// normalizeTarget 去掉空白、URL scheme 与路径
func normalizeTarget(spec string) string {
	spec = strings.TrimSpace(spec)
	if strings.Contains(spec, "://") {
		if u, err := url.Parse(spec); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if strings.HasPrefix(spec, "[") && strings.HasSuffix(spec, "]") {
		return spec[1 : len(spec)-1]
	}
	return spec
}

// SplitTargetPort 拆分 "host:port"，没有端口时返回 0
func SplitTargetPort(spec string) (string, int) {
	spec = strings.TrimSpace(spec)
	if strings.Contains(spec, "://") {
		if u, err := url.Parse(spec); err == nil && u.Hostname() != "" {
			port, _ := strconv.Atoi(u.Port())
			if port == 0 && u.Scheme == "https" {
				port = 443
			}
			return u.Hostname(), port
		}
	}
	host, portStr, err := net.SplitHostPort(spec)
	if err != nil {
		return spec, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return spec, 0
	}
	return host, port
}

func sortUnique(ips []net.IP) []net.IP {
	norm := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		norm = append(norm, ip.To16())
	}
	sort.Slice(norm, func(i, j int) bool { return bytes.Compare(norm[i], norm[j]) < 0 })

	out := norm[:0]
	for i, ip := range norm {
		if i > 0 && ip.Equal(norm[i-1]) {
			continue
		}
		out = append(out, ip)
	}
	for i, ip := range out {
		if v4 := ip.To4(); v4 != nil {
			out[i] = v4
		}
	}
	return out
}

func isIPRange(spec string) bool {
	parts := strings.Split(spec, "-")
	return len(parts) == 2 &&
		net.ParseIP(strings.TrimSpace(parts[0])) != nil &&
		net.ParseIP(strings.TrimSpace(parts[1])) != nil
}

func cloneIP(ip net.IP) net.IP {
	c := make(net.IP, len(ip))
	copy(c, ip)
	return c
}

func isMax(ip net.IP) bool {
	for _, b := range ip {
		if b != 0xff {
			return false
		}
	}
	return true
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
