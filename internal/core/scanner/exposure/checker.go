/**
 * 暴露面检查
 * @author: sun977
 * @date: 2026.01.26
 * @description: 对已识别服务做一次匿名/空口令访问尝试，不遍历字典。
 *               每个协议一个 Checker，由 Registry 按服务名或端口挑选
 */
package exposure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"neoscanner/internal/core/lib/network/dialer"
)

var (
	// ErrConnectionFailed 连接失败 (超时/拒绝/重置)
	ErrConnectionFailed = errors.New("connection failed")

	// ErrProtocolError 协议交互错误 (非预期响应，多半不是该服务)
	ErrProtocolError = errors.New("protocol error")
)

// Checker 协议检查器
type Checker interface {
	// Name 检查名，同时作为配置 exposure.checks 中的标识
	Name() string

	// Ports 该协议的常见端口
	Ports() []int

	// Check 对 host:port 做一次匿名访问尝试
	// 返回:
	// - exposed: true 表示无需凭据即可访问
	// - detail: 可读的证据
	// - err: ErrConnectionFailed / ErrProtocolError 包装后的错误
	Check(ctx context.Context, host string, port int) (bool, string, error)
}

// connectionHints 判定为连接类错误的关键字
var connectionHints = []string{
	"timeout",
	"connection refused",
	"no route to host",
	"network is unreachable",
	"connection reset",
	"broken pipe",
	"context deadline exceeded",
	"context canceled",
	"server selection error",
	"eof",
	"i/o timeout",
	"actively refused", // Windows
	"connectex",
}

// classify 将驱动错误归类为 ErrConnectionFailed 或 ErrProtocolError，保留原始信息
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrProtocolError) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range connectionHints {
		if strings.Contains(msg, hint) {
			return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProtocolError, err)
}

// orDirect nil 时使用直连拨号器
func orDirect(d dialer.Dialer) dialer.Dialer {
	if d == nil {
		return dialer.NewDirectDialer()
	}
	return d
}

// containsAny 忽略大小写的包含判断
func containsAny(msg string, keywords ...string) bool {
	msg = strings.ToLower(msg)
	for _, k := range keywords {
		if strings.Contains(msg, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
