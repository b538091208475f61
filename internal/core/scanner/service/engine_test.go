package service

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoscanner/internal/core/model"
)

// redirectDialer 把所有连接转到本地测试服务
type redirectDialer struct {
	addr string
}

func (d redirectDialer) DialContext(ctx context.Context, network, _ string) (net.Conn, error) {
	var nd net.Dialer
	return nd.DialContext(ctx, network, d.addr)
}

func newEngine(t *testing.T, addr string) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		BannerTimeout: 300 * time.Millisecond,
		ProbeTimeout:  time.Second,
		Dialer:        redirectDialer{addr: addr},
	})
	require.NoError(t, err)
	return e
}

// serve 启动本地服务，每个连接交给 handle 处理
func serve(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				handle(c)
			}()
		}
	}()
	return ln.Addr().String()
}

func TestEngine_Match(t *testing.T) {
	e := newEngine(t, "127.0.0.1:1")

	tests := []struct {
		name       string
		banner     string
		port       int
		service    string
		product    string
		version    string
		confidence model.Confidence
		portHint   string
	}{
		{"openssh", "SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n", 22, "ssh", "OpenSSH", "7.2p2", model.ConfidenceHigh, ""},
		{"vsftpd", "220 (vsFTPd 3.0.3)\r\n", 21, "ftp", "vsftpd", "3.0.3", model.ConfidenceHigh, ""},
		{"generic ftp", "220 Welcome to the ftp server\r\n", 2121, "ftp", "", "", model.ConfidenceMedium, ""},
		{"nginx", "HTTP/1.1 200 OK\r\nDate: Mon, 01 Jan 2026 00:00:00 GMT\r\nServer: nginx/1.18.0\r\n\r\n", 80, "http", "nginx", "1.18.0", model.ConfidenceHigh, ""},
		{"iis", "HTTP/1.1 404 Not Found\r\nServer: Microsoft-IIS/7.5\r\n\r\n", 8080, "http", "Microsoft IIS httpd", "7.5", model.ConfidenceHigh, ""},
		{"mysql", "\x4a\x00\x00\x00\x0a5.7.33-log\x00\x08\x00\x00\x00", 3306, "mysql", "MySQL", "5.7.33-log", model.ConfidenceHigh, ""},
		{"mariadb", "\x4a\x00\x00\x00\x0a5.5.5-10.3.27-MariaDB\x00", 3306, "mysql", "MariaDB", "10.3.27", model.ConfidenceHigh, ""},
		{"telnet", "\xff\xfd\x18\xff\xfd\x20", 23, "telnet", "", "", model.ConfidenceHigh, ""},
		{"redis noauth", "-NOAUTH Authentication required.\r\n", 6379, "redis", "", "", model.ConfidenceMedium, ""},
		{"no banner well-known", "", 6379, "unknown", "", "", model.ConfidenceLow, "redis"},
		{"no banner unknown", "", 40000, "unknown", "", "", model.ConfidenceLow, ""},
		{"unmatched banner", "hello\r\n", 5432, "unknown", "", "", model.ConfidenceLow, "postgresql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := e.Match([]byte(tt.banner), tt.port)
			assert.Equal(t, tt.service, fp.Service)
			assert.Equal(t, tt.product, fp.Product)
			assert.Equal(t, tt.version, fp.Version)
			assert.Equal(t, tt.confidence, fp.Confidence)
			assert.Equal(t, tt.portHint, fp.PortHint)
		})
	}
}

func TestEngine_IdentifyPassiveBanner(t *testing.T) {
	addr := serve(t, func(c net.Conn) {
		c.Write([]byte("SSH-2.0-OpenSSH_8.9p1\r\n"))
		time.Sleep(200 * time.Millisecond)
	})
	e := newEngine(t, addr)

	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 22, State: model.StateOpen})
	assert.Equal(t, "ssh", fp.Service)
	assert.Equal(t, "8.9p1", fp.Version)
	assert.Equal(t, "SSH-2.0-OpenSSH_8.9p1", fp.Banner)
	assert.False(t, fp.TLS)
}

func TestEngine_IdentifyNudge(t *testing.T) {
	// 只有收到换行才回应，类似 memcached
	addr := serve(t, func(c net.Conn) {
		line, err := bufio.NewReader(c).ReadString('\n')
		if err == nil && strings.TrimSpace(line) == "" {
			c.Write([]byte("ERROR\r\n"))
		}
	})
	e := newEngine(t, addr)

	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 11211, State: model.StateOpen})
	assert.Equal(t, "memcached", fp.Service)
	assert.Equal(t, model.ConfidenceMedium, fp.Confidence)
}

func TestEngine_IdentifyHTTPHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Apache/2.4.49 (Unix)")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	e := newEngine(t, srv.Listener.Addr().String())

	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 8080, State: model.StateOpen})
	assert.Equal(t, "http", fp.Service)
	assert.Equal(t, "Apache httpd", fp.Product)
	assert.Equal(t, "2.4.49", fp.Version)
}

func TestEngine_IdentifyTLSWrap(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	e := newEngine(t, srv.Listener.Addr().String())

	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 443, State: model.StateOpen})
	assert.True(t, fp.TLS)
	assert.Equal(t, "https", fp.Service)
}

func TestEngine_IdentifyConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	e := newEngine(t, addr)

	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 3306, State: model.StateOpen})
	assert.Equal(t, "unknown", fp.Service)
	assert.Equal(t, "mysql", fp.PortHint)
	assert.Equal(t, "mysql", fp.LikelyService())
	assert.Equal(t, model.ConfidenceLow, fp.Confidence)
}

// TestEngine_IdentifySlowBanner 持续慢速发送的服务不能拖过读取窗口
func TestEngine_IdentifySlowBanner(t *testing.T) {
	addr := serve(t, func(c net.Conn) {
		for i := 0; i < 100; i++ {
			if _, err := c.Write([]byte("A")); err != nil {
				return
			}
			time.Sleep(80 * time.Millisecond)
		}
	})
	e := newEngine(t, addr)

	start := time.Now()
	fp := e.Identify(context.Background(), model.ProbeResult{IP: "127.0.0.1", Port: 40000, State: model.StateOpen})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 700*time.Millisecond)
	assert.True(t, strings.HasPrefix(fp.Banner, "A"))
	assert.Less(t, len(fp.Banner), 10)
}

func TestLoadSignatures_Extra(t *testing.T) {
	extra := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte(`
signatures:
  - service: neo-agent
    product: NeoAgent
    pattern: '^NEO (?<version>\d+\.\d+)'
    confidence: high
`), 0644))

	e, err := NewEngine(Options{SignaturesFile: extra})
	require.NoError(t, err)
	fp := e.Match([]byte("NEO 1.2 ready"), 7000)
	assert.Equal(t, "neo-agent", fp.Service)
	assert.Equal(t, "1.2", fp.Version)

	_, err = ParseSignatures([]byte("signatures:\n  - service: x\n    pattern: '('\n"))
	assert.Error(t, err)
}
