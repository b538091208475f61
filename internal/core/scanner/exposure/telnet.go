package exposure

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/ziutek/telnet"

	"neoscanner/internal/core/lib/network/dialer"
)

// TelnetChecker 连接后不经登录直接给出 Shell 提示符
type TelnetChecker struct {
	dialer  dialer.Dialer
	reLogin *regexp.Regexp
	reShell *regexp.Regexp
}

func NewTelnetChecker(d dialer.Dialer) *TelnetChecker {
	return &TelnetChecker{
		dialer: orDirect(d),
		// login:, Username:, User Name:, Password:
		reLogin: regexp.MustCompile(`(?i)(login|user\s*name|username|user|password|pass)[\s:]*$`),
		// #, $, >, % 结尾
		reShell: regexp.MustCompile(`[#$>%]\s*$`),
	}
}

func (c *TelnetChecker) Name() string {
	return "telnet"
}

func (c *TelnetChecker) Ports() []int {
	return []int{23}
}

func (c *TelnetChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	timeout := remaining(ctx, defaultCheckTimeout)
	raw, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false, "", classify(err)
	}
	defer raw.Close()
	conn, err := telnet.NewConn(raw)
	if err != nil {
		return false, "", classify(err)
	}

	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()
	conn.SetReadDeadline(time.Now().Add(timeout))

	data, err := c.readPrompt(conn)
	switch {
	case c.reLogin.Match(data):
		return false, "login prompt presented", nil
	case c.reShell.Match(data):
		return true, "shell prompt without login: " + lastLine(data), nil
	case err != nil && len(data) == 0:
		return false, "", classify(err)
	}
	return false, "no prompt recognised", nil
}

// readPrompt 读取直到出现登录或 Shell 提示符，或者超时
func (c *TelnetChecker) readPrompt(conn *telnet.Conn) ([]byte, error) {
	var buf []byte
	b := make([]byte, 256)
	for len(buf) < 4096 {
		n, err := conn.Read(b)
		if n > 0 {
			buf = append(buf, b[:n]...)
			if c.reLogin.Match(buf) || c.reShell.Match(buf) {
				return buf, nil
			}
		}
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

func lastLine(data []byte) string {
	end := len(data)
	for end > 0 && (data[end-1] == '\n' || data[end-1] == '\r' || data[end-1] == ' ') {
		end--
	}
	start := end
	for start > 0 && data[start-1] != '\n' {
		start--
	}
	return string(data[start:end])
}
