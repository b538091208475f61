package exposure

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const defaultCheckTimeout = 3 * time.Second

// pingConnector 用单连接 Ping 一次，连接池参数避免残留连接
func pingConnector(ctx context.Context, connector driver.Connector) error {
	db := sql.OpenDB(connector)
	defer db.Close()

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Second)

	return db.PingContext(ctx)
}

// MySQLChecker root 空口令
type MySQLChecker struct{}

func NewMySQLChecker() *MySQLChecker {
	return &MySQLChecker{}
}

func (c *MySQLChecker) Name() string {
	return "mysql"
}

func (c *MySQLChecker) Ports() []int {
	return []int{3306}
}

func (c *MySQLChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	cfg := mysql.NewConfig()
	cfg.User = "root"
	cfg.Passwd = ""
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.Timeout = remaining(ctx, defaultCheckTimeout)
	cfg.ReadTimeout = cfg.Timeout
	cfg.WriteTimeout = cfg.Timeout

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return false, "", classify(err)
	}

	if err := pingConnector(ctx, connector); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) {
			switch myErr.Number {
			case 1044, 1045: // Access denied
				return false, "root login with empty password rejected", nil
			case 1130: // Host is not allowed to connect
				return false, "remote connections not allowed", nil
			}
		}
		if errors.Is(err, mysql.ErrInvalidConn) {
			return false, "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		return false, "", classify(err)
	}

	return true, "root login with empty password accepted", nil
}

// PostgresChecker postgres 用户空口令
type PostgresChecker struct{}

func NewPostgresChecker() *PostgresChecker {
	return &PostgresChecker{}
}

func (c *PostgresChecker) Name() string {
	return "postgres"
}

func (c *PostgresChecker) Ports() []int {
	return []int{5432}
}

func (c *PostgresChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	timeout := int(remaining(ctx, defaultCheckTimeout).Seconds())
	if timeout < 1 {
		timeout = 1
	}
	dsn := fmt.Sprintf("host=%s port=%d user=postgres password='' dbname=postgres sslmode=disable connect_timeout=%d",
		host, port, timeout)

	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return false, "", classify(err)
	}

	if err := pingConnector(ctx, connector); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "28P01", "28000": // invalid_password / invalid_authorization_specification
				return false, "postgres login with empty password rejected", nil
			case "53300": // too_many_connections
				return false, "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
			}
		}
		// 服务端要求密码时 lib/pq 在本地就会失败
		if containsAny(err.Error(), "password authentication", "no password supplied") {
			return false, "password required", nil
		}
		return false, "", classify(err)
	}

	return true, "postgres login with empty password accepted", nil
}

// MSSQLChecker sa 空口令
type MSSQLChecker struct{}

func NewMSSQLChecker() *MSSQLChecker {
	return &MSSQLChecker{}
}

func (c *MSSQLChecker) Name() string {
	return "mssql"
}

func (c *MSSQLChecker) Ports() []int {
	return []int{1433}
}

func (c *MSSQLChecker) Check(ctx context.Context, host string, port int) (bool, string, error) {
	query := url.Values{}
	query.Add("database", "master")
	query.Add("encrypt", "disable")
	query.Add("connection timeout", strconv.Itoa(int(remaining(ctx, defaultCheckTimeout).Seconds())+1))

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword("sa", ""),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: query.Encode(),
	}

	connector, err := mssql.NewConnector(u.String())
	if err != nil {
		return false, "", classify(err)
	}

	if err := pingConnector(ctx, connector); err != nil {
		// Error 18456: Login failed for user 'sa'.
		if containsAny(err.Error(), "login failed") {
			return false, "sa login with empty password rejected", nil
		}
		return false, "", classify(err)
	}

	return true, "sa login with empty password accepted", nil
}
