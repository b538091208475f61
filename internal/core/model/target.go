package model

import (
	"net"
	"strconv"
	"strings"
)

// ScanTarget 解析后的扫描目标，解析完成后不再修改
type ScanTarget struct {
	Original string   `json:"original"`
	Hostname string   `json:"hostname,omitempty"` // 输入为域名时保留，用于 SNI 和证书主机名校验
	IPs      []net.IP `json:"ips"`
}

// IPStrings 返回字符串形式的地址列表
func (t *ScanTarget) IPStrings() []string {
	out := make([]string, len(t.IPs))
	for i, ip := range t.IPs {
		out[i] = ip.String()
	}
	return out
}

// PortSpec 升序、去重的端口集合
type PortSpec []int

// Contains 二分查找端口
func (p PortSpec) Contains(port int) bool {
	lo, hi := 0, len(p)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case p[mid] == port:
			return true
		case p[mid] < port:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// String 紧凑序列化，连续端口合并为区间："22,80-82"
func (p PortSpec) String() string {
	var b strings.Builder
	for i := 0; i < len(p); {
		j := i
		for j+1 < len(p) && p[j+1] == p[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(p[j]))
		}
		i = j + 1
	}
	return b.String()
}
