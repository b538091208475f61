package model

import "strings"

// Severity 风险等级，low < medium < high < critical
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank 返回排序权重，未知等级为 -1
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// Valid 是否为合法等级
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// ParseSeverity 大小写不敏感地解析等级
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// MaxSeverity 返回最高等级，空输入为 low
func MaxSeverity(levels ...Severity) Severity {
	max := SeverityLow
	for _, s := range levels {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}
