package exposure

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"neoscanner/internal/core/lib/network/dialer"
)

// FTPChecker 匿名登录
type FTPChecker struct {
	dialer dialer.Dialer
}

// NewFTPChecker d 为 nil 时直连
func NewFTPChecker(d dialer.Dialer) *FTPChecker {
	return &FTPChecker{dialer: orDirect(d)}
}

func (c *FTPChecker) Name() string {
	return "ftp"
}

func (c *FTPChecker) Ports() []int {
	return []int{21}
}

func (c *FTPChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	timeout := remaining(ctx, defaultCheckTimeout)
	// 控制连接与数据连接都经由扫描拨号器，读写受检查时限约束
	dial := func(network, address string) (net.Conn, error) {
		conn, err := c.dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		conn.SetDeadline(time.Now().Add(timeout))
		return conn, nil
	}

	conn, err := ftp.Dial(net.JoinHostPort(host, strconv.Itoa(port)),
		ftp.DialWithDialFunc(dial),
		ftp.DialWithTimeout(timeout),
		ftp.DialWithDisabledEPSV(true),
	)
	if err != nil {
		return false, "", classify(err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		// 530 Login incorrect / Not logged in
		if containsAny(err.Error(), "530", "login incorrect", "not logged in") {
			return false, "anonymous login rejected", nil
		}
		return false, "", classify(err)
	}
	conn.Logout()

	return true, "anonymous login accepted", nil
}

// remaining ctx 剩余时间，没有截止时间时返回 fallback
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return fallback
}
