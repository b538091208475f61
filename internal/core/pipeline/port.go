package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"neoscanner/internal/core/model"
)

// ParsePortSpec 解析端口表达式，例如 "22,80,443" 或 "1-1000,8080"
// 返回升序去重的端口集合，任一 token 非法时整体失败
func ParsePortSpec(spec string) (model.PortSpec, error) {
	return ParsePortSpecLimit(spec, 0)
}

// ParsePortSpecLimit 同 ParsePortSpec，limit > 0 时限制端口总数
func ParsePortSpecLimit(spec string, limit int) (model.PortSpec, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, &model.InvalidPortSpecError{Spec: spec, Reason: "empty port specification"}
	}

	seen := make(map[int]struct{})
	for _, raw := range strings.Split(spec, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			return nil, &model.InvalidPortSpecError{Spec: spec, Token: raw, Reason: "empty token"}
		}

		start, end, err := parseToken(spec, token)
		if err != nil {
			return nil, err
		}
		for p := start; p <= end; p++ {
			seen[p] = struct{}{}
		}
		if limit > 0 && len(seen) > limit {
			return nil, &model.InvalidPortSpecError{Spec: spec, Reason: "too many ports, limit is " + strconv.Itoa(limit)}
		}
	}

	ports := make(model.PortSpec, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}

func parseToken(spec, token string) (int, int, error) {
	if lo, hi, ok := strings.Cut(token, "-"); ok {
		start, err := parsePort(spec, token, strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, err
		}
		end, err := parsePort(spec, token, strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, err
		}
		if start > end {
			return 0, 0, &model.InvalidPortSpecError{Spec: spec, Token: token, Reason: "range start is greater than end"}
		}
		return start, end, nil
	}

	p, err := parsePort(spec, token, token)
	return p, p, err
}

func parsePort(spec, token, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &model.InvalidPortSpecError{Spec: spec, Token: token, Reason: "not a number"}
	}
	if n < 1 || n > 65535 {
		return 0, &model.InvalidPortSpecError{Spec: spec, Token: token, Reason: "port out of range 1-65535"}
	}
	return n, nil
}
