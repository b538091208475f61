package model

import (
	"errors"
	"fmt"
)

// ResolutionError 目标格式错误、无法解析或被策略拒绝
type ResolutionError struct {
	Target string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Target, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// RangeTooLargeError CIDR 展开后的主机数超过上限
type RangeTooLargeError struct {
	Target string
	Hosts  uint64
	Limit  int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("target %q expands to %d hosts, limit is %d", e.Target, e.Hosts, e.Limit)
}

// InvalidPortSpecError 端口表达式非法
type InvalidPortSpecError struct {
	Spec   string
	Token  string
	Reason string
}

func (e *InvalidPortSpecError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("invalid port spec %q: token %q: %s", e.Spec, e.Token, e.Reason)
	}
	return fmt.Sprintf("invalid port spec %q: %s", e.Spec, e.Reason)
}

// HandshakeError TLS 握手失败，作为数据记录在 TLSFinding 中
type HandshakeError struct {
	Addr string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s failed: %v", e.Addr, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// IsRequestError 是否为请求级错误（应返回 4xx）
func IsRequestError(err error) bool {
	var re *ResolutionError
	var rl *RangeTooLargeError
	var ip *InvalidPortSpecError
	return errors.As(err, &re) || errors.As(err, &rl) || errors.As(err, &ip)
}
