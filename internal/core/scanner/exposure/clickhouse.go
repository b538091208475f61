package exposure

import (
	"context"
	"net"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2"

	"neoscanner/internal/core/lib/network/dialer"
	"neoscanner/internal/pkg/version"
)

// ClickHouseChecker default 用户空口令
type ClickHouseChecker struct {
	dialer dialer.Dialer
}

func NewClickHouseChecker(d dialer.Dialer) *ClickHouseChecker {
	return &ClickHouseChecker{dialer: orDirect(d)}
}

func (c *ClickHouseChecker) Name() string {
	return "clickhouse"
}

func (c *ClickHouseChecker) Ports() []int {
	return []int{9000, 8123}
}

func (c *ClickHouseChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	protocol := clickhouse.Native
	if port == 8123 {
		protocol = clickhouse.HTTP
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Protocol: protocol,
		Addr:     []string{net.JoinHostPort(host, strconv.Itoa(port))},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "neoscan-scanner", Version: version.Version},
			},
		},
		DialTimeout: remaining(ctx, defaultCheckTimeout),
		DialContext: func(ctx context.Context, addr string) (net.Conn, error) {
			return c.dialer.DialContext(ctx, "tcp", addr)
		},
	})
	if err != nil {
		return false, "", classify(err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		// Code: 516 Authentication failed / Code: 192 Unknown user
		if containsAny(err.Error(), "code: 516", "code: 192", "authentication failed", "unknown user") {
			return false, "default user requires a password", nil
		}
		return false, "", classify(err)
	}

	return true, "default user with empty password accepted", nil
}
