/**
 * 轻量服务识别
 * @author: sun977
 * @date: 2026.01.23
 * @description: 对开放端口读取 Banner（HTTP 端口主动发 HEAD，443/8443 先握手），
 *               按指纹表顺序匹配，未命中时按常见端口推断
 */
package service

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"

	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/core/lib/network/qos"
	"neoscanner/internal/core/model"
)

const (
	DefaultBannerBytes   = 2048
	DefaultBannerTimeout = 1500 * time.Millisecond

	httpProbe  = "HEAD / HTTP/1.0\r\n\r\n"
	nudgeProbe = "\r\n"

	// 首包之后继续读取剩余数据的等待时间
	drainWait = 100 * time.Millisecond
	// RTT 估算得到的读取窗口下限
	minReadWindow = 300 * time.Millisecond
)

// Options 服务识别参数
type Options struct {
	BannerBytes    int
	BannerTimeout  time.Duration // 不超过 ProbeTimeout
	ProbeTimeout   time.Duration // 建连与 TLS 握手超时
	Dialer         dialer.Dialer
	RTT            *qos.RttEstimator // 可选，用于缩短读取窗口
	SignaturesFile string
}

// Engine 服务识别引擎，指纹表只读，可并发使用
type Engine struct {
	signatures    []*Signature
	bannerBytes   int
	bannerTimeout time.Duration
	probeTimeout  time.Duration
	dialer        dialer.Dialer
	rtt           *qos.RttEstimator
}

// NewEngine 加载指纹表并创建引擎
func NewEngine(opts Options) (*Engine, error) {
	sigs, err := LoadSignatures(opts.SignaturesFile)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		signatures:    sigs,
		bannerBytes:   opts.BannerBytes,
		bannerTimeout: opts.BannerTimeout,
		probeTimeout:  opts.ProbeTimeout,
		dialer:        opts.Dialer,
		rtt:           opts.RTT,
	}
	if e.bannerBytes <= 0 {
		e.bannerBytes = DefaultBannerBytes
	}
	if e.probeTimeout <= 0 {
		e.probeTimeout = 2 * time.Second
	}
	if e.bannerTimeout <= 0 {
		e.bannerTimeout = DefaultBannerTimeout
	}
	if e.bannerTimeout > e.probeTimeout {
		e.bannerTimeout = e.probeTimeout
	}
	if e.dialer == nil {
		e.dialer = dialer.NewDirectDialer()
	}
	return e, nil
}

// WithRTT 返回共享指纹表、使用独立 RTT 估算器的副本，每次扫描各用一份
func (e *Engine) WithRTT(rtt *qos.RttEstimator) *Engine {
	c := *e
	c.rtt = rtt
	return &c
}

// Identify 识别开放端口上的服务，未命中时 Service 为 unknown 并附带端口推断，不返回错误
func (e *Engine) Identify(ctx context.Context, probe model.ProbeResult) model.ServiceFingerprint {
	raw, isTLS := e.grab(ctx, probe.IP, probe.Port)

	fp := e.Match(raw, probe.Port)
	fp.IP = probe.IP
	fp.Port = probe.Port
	fp.TLS = isTLS
	if isTLS && fp.Service == "http" {
		fp.Service = "https"
	}
	return fp
}

// Match 用指纹表匹配原始 banner，不做网络操作
func (e *Engine) Match(raw []byte, port int) model.ServiceFingerprint {
	fp := model.ServiceFingerprint{Port: port, Banner: printable(raw)}

	if len(raw) > 0 {
		text := latin1(raw)
		for _, sig := range e.signatures {
			ok, version := sig.match(text)
			if !ok {
				continue
			}
			fp.Service = sig.Service
			fp.Product = sig.Product
			fp.Version = version
			fp.Confidence = sig.Confidence
			return fp
		}
	}

	fp.Service = model.ServiceUnknown
	fp.PortHint = ServiceByPort(port)
	fp.Confidence = model.ConfidenceLow
	return fp
}

// grab 读取 banner；连接失败返回空
// 建连、握手、被动读取与换行试探共用一个 probeTimeout 预算
func (e *Engine) grab(ctx context.Context, ip string, port int) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := e.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, false
	}
	defer conn.Close()

	// 预算耗尽或扫描时限到达时中断阻塞的读写，conn 被替换后同样生效
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	isTLS := false
	if tlsWrapPorts[port] {
		tconn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS10})
		if err := tconn.HandshakeContext(ctx); err == nil {
			conn = tconn
			isTLS = true
		} else {
			// 握手失败后原连接已不可用，重新建连按明文处理
			conn.Close()
			conn, err = e.dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, false
			}
			defer conn.Close()
		}
	}

	window := e.readWindow()
	if isTLS || httpPorts[port] {
		if err := writeWithDeadline(ctx, conn, httpProbe, window); err != nil {
			return nil, isTLS
		}
		return e.read(ctx, conn, window), isTLS
	}

	// 被动读取，服务不主动发送时补一个换行
	if data := e.read(ctx, conn, window); len(data) > 0 {
		return data, isTLS
	}
	if ctx.Err() != nil {
		return nil, isTLS
	}
	if err := writeWithDeadline(ctx, conn, nudgeProbe, window); err != nil {
		return nil, isTLS
	}
	return e.read(ctx, conn, window), isTLS
}

// readWindow 有 RTT 样本时按 RTO 缩短等待，上限为 banner 超时
func (e *Engine) readWindow() time.Duration {
	if e.rtt == nil {
		return e.bannerTimeout
	}
	floor := minReadWindow
	if floor > e.bannerTimeout {
		floor = e.bannerTimeout
	}
	return e.rtt.Window(floor, e.bannerTimeout)
}

// read 等待首包，之后短暂继续读取直到缓冲满
// 整个读取不超过 window，也不超过 ctx 的截止时间，持续慢速发送的服务不会延长等待
func (e *Engine) read(ctx context.Context, conn net.Conn, window time.Duration) []byte {
	buf := make([]byte, e.bannerBytes)
	total := 0

	end := deadlineWithin(ctx, window)
	conn.SetReadDeadline(end)
	for total < len(buf) && ctx.Err() == nil {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			break
		}
		if total > 0 {
			drain := time.Now().Add(drainWait)
			if drain.After(end) {
				drain = end
			}
			conn.SetReadDeadline(drain)
		}
	}
	return buf[:total]
}

func writeWithDeadline(ctx context.Context, conn net.Conn, payload string, timeout time.Duration) error {
	conn.SetWriteDeadline(deadlineWithin(ctx, timeout))
	_, err := conn.Write([]byte(payload))
	return err
}

// deadlineWithin 取 now+d 与 ctx 截止时间中较早的一个
func deadlineWithin(ctx context.Context, d time.Duration) time.Time {
	end := time.Now().Add(d)
	if dl, ok := ctx.Deadline(); ok && dl.Before(end) {
		return dl
	}
	return end
}

// latin1 按字节逐一映射为 rune，使 \xff 这类字节可以被正则匹配
func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// printable 将 banner 转为可展示文本
func printable(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		r := rune(c)
		switch {
		case r == '\r':
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r < 0x80 && unicode.IsPrint(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('.')
		}
	}
	return strings.TrimSpace(sb.String())
}
