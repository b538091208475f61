package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// NormalizeIP 统一客户端地址写法，用作限流分桶与日志字段
// 转发列表取第一个，去掉端口，IPv4-mapped IPv6 还原为 IPv4；无法解析时原样返回
func NormalizeIP(input string) string {
	if input == "" {
		return ""
	}

	addr := strings.TrimSpace(strings.Split(input, ",")[0])
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// GetClientIP 从Gin上下文获取客户端IP
// 转发头只在 gin 信任的代理后面才会被采用
func GetClientIP(c *gin.Context) string {
	return NormalizeIP(c.ClientIP())
}

// IPInList 判断 ip 是否命中列表，条目可以是单个 IP 或 CIDR；列表为空时不命中
func IPInList(ip string, entries []string) bool {
	parsed := net.ParseIP(NormalizeIP(ip))
	if parsed == nil {
		return false
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil && network.Contains(parsed) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(parsed) {
			return true
		}
	}
	return false
}
