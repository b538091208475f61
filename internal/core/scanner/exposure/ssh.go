package exposure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"neoscanner/internal/core/lib/network/dialer"
)

var errAuthProbe = errors.New("auth method probe")

// SSHChecker 服务端是否允许口令类认证
// 只发送 none 认证拿到服务端允许的方法列表，回调里直接中止，不提交任何口令
type SSHChecker struct {
	dialer dialer.Dialer
}

func NewSSHChecker(d dialer.Dialer) *SSHChecker {
	return &SSHChecker{dialer: orDirect(d)}
}

func (c *SSHChecker) Name() string {
	return "ssh"
}

func (c *SSHChecker) Ports() []int {
	return []int{22}
}

func (c *SSHChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, "", classify(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(remaining(ctx, defaultCheckTimeout)))

	var offered []string
	config := &ssh.ClientConfig{
		User: "root",
		Auth: []ssh.AuthMethod{
			ssh.PasswordCallback(func() (string, error) {
				offered = append(offered, "password")
				return "", errAuthProbe
			}),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				offered = append(offered, "keyboard-interactive")
				return nil, errAuthProbe
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         remaining(ctx, defaultCheckTimeout),
	}

	client, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err == nil {
		// none 认证直接通过
		go ssh.DiscardRequests(reqs)
		go func() {
			for ch := range chans {
				ch.Reject(ssh.Prohibited, "no channels")
			}
		}()
		client.Close()
		return true, "server accepted none authentication", nil
	}

	if len(offered) > 0 {
		return true, "password authentication offered (" + strings.Join(offered, ", ") + ")", nil
	}
	if containsAny(err.Error(), "unable to authenticate") {
		return false, "password authentication disabled", nil
	}
	if containsAny(err.Error(), "handshake failed") && !containsAny(err.Error(), connectionHints...) {
		return false, "", fmt.Errorf("%w: %v", ErrProtocolError, err)
	}
	return false, "", classify(err)
}
