package dialer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Dialer 定义了网络连接器接口，端口探测、Banner 读取、TLS 握手都通过它建连
type Dialer interface {
	// DialContext 建立连接
	// network: 协议 (tcp, udp)
	// address: 目标地址 (ip:port)
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DirectDialer 直连拨号器，超时由调用方的 context 控制
type DirectDialer struct {
	KeepAlive time.Duration
}

func NewDirectDialer() *DirectDialer {
	// 探测连接都是短连接，关闭 keepalive
	return &DirectDialer{KeepAlive: -1}
}

func (d *DirectDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := &net.Dialer{KeepAlive: d.KeepAlive}
	return nd.DialContext(ctx, network, address)
}

// ProxyDialer SOCKS5 代理拨号器
// 经代理探测时，关闭与超时都由代理返回，closed/filtered 的区分精度会下降
type ProxyDialer struct {
	ProxyURL *url.URL
	forward  proxy.Dialer
}

// NewProxyDialer 创建代理拨号器，仅支持 socks5/socks5h
func NewProxyDialer(proxyAddr string) (*ProxyDialer, error) {
	u, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported proxy scheme: %s (only socks5 is supported for raw tcp)", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		auth = &proxy.Auth{User: u.User.Username()}
		if p, ok := u.User.Password(); ok {
			auth.Password = p
		}
	}

	forward, err := proxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{KeepAlive: -1})
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}

	return &ProxyDialer{ProxyURL: u, forward: forward}, nil
}

func (d *ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := d.forward.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := d.forward.Dial(network, address)
		ch <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		// 迟到的连接需要关闭
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-ch:
		return res.conn, res.err
	}
}

// New 按代理配置创建拨号器，proxyAddr 为空时直连
func New(proxyAddr string) (Dialer, error) {
	if proxyAddr == "" {
		return NewDirectDialer(), nil
	}
	return NewProxyDialer(proxyAddr)
}
